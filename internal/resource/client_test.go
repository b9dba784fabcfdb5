package resource_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-console/internal/fakeapi"
	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/resource"
	"github.com/jwalitptl/clinic-console/internal/session"
	"github.com/jwalitptl/clinic-console/pkg/errors"
)

const adminToken = "test-admin-token"

type fixture struct {
	fake     *fakeapi.Server
	srv      *httptest.Server
	tokens   *session.Store
	requests *int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := fakeapi.NewServer()
	fake.AllowToken(adminToken, "admin")

	var requests int64
	counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		fake.Handler().ServeHTTP(w, r)
	})
	srv := httptest.NewServer(counted)
	t.Cleanup(srv.Close)

	tokens := session.NewStore()
	tokens.SetToken(session.RoleAdmin, adminToken)

	return &fixture{fake: fake, srv: srv, tokens: tokens, requests: &requests}
}

func (f *fixture) clinics(opts ...resource.Option[model.Clinic]) *resource.Client[model.Clinic] {
	opts = append(opts, resource.WithListKey[model.Clinic]("clinicList"))
	return resource.NewClient[model.Clinic](f.srv.URL, "/api/v1", "clinics", f.tokens, session.RoleAdmin, opts...)
}

func TestListWrappedEnvelope(t *testing.T) {
	f := newFixture(t)
	f.fake.Seed("clinics",
		gin.H{"name": "Sunrise", "status": "active"},
		gin.H{"name": "Riverside", "status": "inactive"},
	)

	res, err := f.clinics().List(context.Background(), resource.ServerFilter{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, 2, res.TotalCount)
	assert.Equal(t, "Sunrise", res.Items[0].Name)
}

func TestListBareArrayEnvelope(t *testing.T) {
	f := newFixture(t)
	f.fake.Seed("bookings",
		gin.H{"patient_name": "Pat Doe", "status": "pending"},
	)

	client := resource.NewClient[model.Booking](f.srv.URL, "/api/v1", "bookings", f.tokens, session.RoleAdmin)
	res, err := client.List(context.Background(), resource.ServerFilter{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Pat Doe", res.Items[0].PatientName)
}

func TestListServerSideStatusFilter(t *testing.T) {
	f := newFixture(t)
	f.fake.Seed("clinics",
		gin.H{"name": "Sunrise", "status": "active"},
		gin.H{"name": "Riverside", "status": "inactive"},
	)

	res, err := f.clinics().List(context.Background(), resource.ServerFilter{Status: "active"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Sunrise", res.Items[0].Name)
}

func TestAliasNormalizationAfterFetch(t *testing.T) {
	f := newFixture(t)
	f.fake.Seed("users", gin.H{"fullname": "Pat Doe", "email": "pat@example.com"})

	client := resource.NewClient[model.User](f.srv.URL, "/api/v1", "users", f.tokens, session.RoleAdmin,
		resource.WithListKey[model.User]("userList"))
	res, err := client.List(context.Background(), resource.ServerFilter{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Pat Doe", res.Items[0].Name, "fullname folds onto name")
	assert.Empty(t, res.Items[0].Fullname)
}

func TestGetByID(t *testing.T) {
	f := newFixture(t)
	ids := f.fake.Seed("clinics", gin.H{"name": "Sunrise", "status": "active"})

	clinic, err := f.clinics().Get(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[0], clinic.ID)
	assert.Equal(t, "Sunrise", clinic.Name)
}

func TestGetUnknownIDIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.clinics().Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.False(t, errors.IsServer(err), "not found is distinct from server errors")
}

func TestMissingTokenShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.tokens.Clear(session.RoleAdmin)

	_, err := f.clinics().List(context.Background(), resource.ServerFilter{})
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
	assert.EqualValues(t, 0, atomic.LoadInt64(f.requests), "no network call without a token")
}

func TestRejectedTokenIsAuthError(t *testing.T) {
	f := newFixture(t)
	f.tokens.SetToken(session.RoleAdmin, "wrong-token")

	_, err := f.clinics().List(context.Background(), resource.ServerFilter{})
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
	assert.EqualValues(t, 1, atomic.LoadInt64(f.requests))
}

func TestTokenReadAtCallTime(t *testing.T) {
	f := newFixture(t)
	f.fake.Seed("clinics", gin.H{"name": "Sunrise", "status": "active"})
	client := f.clinics()

	// Built while a bad token was stored; a later refresh must be honored.
	f.tokens.SetToken(session.RoleAdmin, "stale-token")
	_, err := client.List(context.Background(), resource.ServerFilter{})
	require.Error(t, err)

	f.tokens.SetToken(session.RoleAdmin, adminToken)
	_, err = client.List(context.Background(), resource.ServerFilter{})
	assert.NoError(t, err)
}

func TestServerErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message": "database unavailable"}`))
	}))
	defer srv.Close()

	tokens := session.NewStore()
	tokens.SetToken(session.RoleAdmin, adminToken)
	client := resource.NewClient[model.Clinic](srv.URL, "/api/v1", "clinics", tokens, session.RoleAdmin)

	_, err := client.List(context.Background(), resource.ServerFilter{})
	require.Error(t, err)
	assert.True(t, errors.IsServer(err))
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestMalformedBodyIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	tokens := session.NewStore()
	tokens.SetToken(session.RoleAdmin, adminToken)
	client := resource.NewClient[model.Clinic](srv.URL, "/api/v1", "clinics", tokens, session.RoleAdmin)

	_, err := client.List(context.Background(), resource.ServerFilter{})
	require.Error(t, err)
	assert.True(t, errors.IsNetwork(err))
}

func TestCreateAssignsServerID(t *testing.T) {
	f := newFixture(t)

	clinic, err := f.clinics().Create(context.Background(), model.Clinic{
		Name: "New Clinic", Address: "1 Road", Phone: "0123456789",
		Email: "new@example.com", BookingLimit: 10, Status: "active",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, clinic.ID, "the server mints the id")
	assert.Equal(t, 1, f.fake.Count("clinics"))
}

func TestAnonymousBookingCreate(t *testing.T) {
	f := newFixture(t)
	f.tokens.Clear(session.RolePatient)

	client := resource.NewClient[model.Booking](f.srv.URL, "/api/v1", "bookings", f.tokens, session.RolePatient,
		resource.WithAnonymousCreate[model.Booking]())
	booking, err := client.Create(context.Background(), model.Booking{
		PatientName: "Pat Doe", PatientPhone: "0123456789",
		PatientEmail: "pat@example.com", ClinicID: "clinic-1",
		Date: "2031-05-01", TimeSlot: "09:00",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, booking.ID)
}

func TestUpdateSendsPartialPayload(t *testing.T) {
	f := newFixture(t)
	ids := f.fake.Seed("clinics", gin.H{"name": "Sunrise", "address": "12 High St", "status": "active"})

	updated, err := f.clinics().Update(context.Background(), ids[0], resource.Partial{"name": "Sunset"})
	require.NoError(t, err)
	assert.Equal(t, "Sunset", updated.Name)
	assert.Equal(t, "12 High St", updated.Address, "untouched fields survive a partial update")
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ids := f.fake.Seed("clinics", gin.H{"name": "Sunrise", "status": "active"})

	require.NoError(t, f.clinics().Delete(context.Background(), ids[0]))
	assert.Equal(t, 0, f.fake.Count("clinics"))

	err := f.clinics().Delete(context.Background(), ids[0])
	assert.True(t, errors.IsNotFound(err))
}
