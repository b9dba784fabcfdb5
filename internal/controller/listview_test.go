package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-console/internal/model"
	"github.com/jwalitptl/clinic-console/internal/resource"
	"github.com/jwalitptl/clinic-console/pkg/errors"
)

type stubListClient[T model.Entity] struct {
	name    string
	listFn  func(ctx context.Context, f resource.ServerFilter) (resource.ListResult[T], error)
	calls   int
	filters []resource.ServerFilter
}

func (s *stubListClient[T]) List(ctx context.Context, f resource.ServerFilter) (resource.ListResult[T], error) {
	s.calls++
	s.filters = append(s.filters, f)
	return s.listFn(ctx, f)
}

func (s *stubListClient[T]) Resource() string { return s.name }

func makeClinics(n int) []model.Clinic {
	out := make([]model.Clinic, n)
	for i := range out {
		out[i] = model.Clinic{
			Base:         model.Base{ID: fmt.Sprintf("clinic-%02d", i+1)},
			Name:         fmt.Sprintf("Clinic %02d", i+1),
			Status:       model.ClinicStatusActive,
			BookingLimit: 10,
		}
	}
	return out
}

func fixedList(items []model.Clinic) *stubListClient[model.Clinic] {
	return &stubListClient[model.Clinic]{
		name: "clinics",
		listFn: func(ctx context.Context, f resource.ServerFilter) (resource.ListResult[model.Clinic], error) {
			return resource.ListResult[model.Clinic]{Items: items, TotalCount: len(items)}, nil
		},
	}
}

func clinicSearch(c model.Clinic, f ViewFilter) bool {
	if f.StatusFilter != "" && c.Status != f.StatusFilter {
		return false
	}
	if f.SearchText == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.SearchText))
}

func TestFilterChangeResetsPageIndex(t *testing.T) {
	v := NewListView[model.Clinic](fixedList(makeClinics(30)), nil, 10, WithLocalFilter(clinicSearch))
	require.NoError(t, v.Load(context.Background()))

	require.NoError(t, v.SetFilter(context.Background(), FilterPatch{PageIndex: intp(3)}))
	assert.Equal(t, 3, v.Filter().PageIndex)

	// Any non-PageIndex change resets to page 1.
	require.NoError(t, v.SetFilter(context.Background(), FilterPatch{SearchText: strp("Clinic")}))
	assert.Equal(t, 1, v.Filter().PageIndex)

	require.NoError(t, v.SetFilter(context.Background(), FilterPatch{PageIndex: intp(2)}))
	require.NoError(t, v.SetFilter(context.Background(), FilterPatch{StatusFilter: strp("active")}))
	assert.Equal(t, 1, v.Filter().PageIndex)
}

func TestVisiblePagePagination(t *testing.T) {
	v := NewListView[model.Clinic](fixedList(makeClinics(12)), nil, 10, WithLocalFilter(clinicSearch))
	require.NoError(t, v.Load(context.Background()))

	page := v.VisiblePage()
	require.Len(t, page, 10)
	assert.Equal(t, "clinic-01", page[0].ID)
	assert.Equal(t, "clinic-10", page[9].ID)

	require.NoError(t, v.SetFilter(context.Background(), FilterPatch{PageIndex: intp(2)}))
	page = v.VisiblePage()
	require.Len(t, page, 2)
	assert.Equal(t, "clinic-11", page[0].ID)
	assert.Equal(t, "clinic-12", page[1].ID)
}

func TestVisiblePageNeverNegative(t *testing.T) {
	v := NewListView[model.Clinic](fixedList(makeClinics(5)), nil, 10, WithLocalFilter(clinicSearch))
	require.NoError(t, v.Load(context.Background()))

	// A page index beyond the data is clamped, not sliced negative.
	require.NoError(t, v.SetFilter(context.Background(), FilterPatch{PageIndex: intp(9)}))
	assert.Equal(t, 1, v.Filter().PageIndex)
	assert.Len(t, v.VisiblePage(), 5)
}

func TestEmptyPatchLeavesCollectionUnchanged(t *testing.T) {
	v := NewListView[model.Clinic](fixedList(makeClinics(4)), nil, 10)
	require.NoError(t, v.Load(context.Background()))

	before, err := json.Marshal(v.Collection())
	require.NoError(t, err)

	v.PatchEntity("clinic-02", resource.Partial{})

	after, err := json.Marshal(v.Collection())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPatchEntityMergesInPlace(t *testing.T) {
	v := NewListView[model.Clinic](fixedList(makeClinics(3)), nil, 10)
	require.NoError(t, v.Load(context.Background()))

	v.PatchEntity("clinic-02", resource.Partial{"name": "Renamed"})

	col := v.Collection()
	assert.Equal(t, "Renamed", col[1].Name)
	assert.Equal(t, "Clinic 01", col[0].Name)

	// Absent id is a no-op, not an error.
	v.PatchEntity("missing", resource.Partial{"name": "X"})
	assert.Len(t, v.Collection(), 3)
}

func TestRemoveEntity(t *testing.T) {
	v := NewListView[model.Clinic](fixedList(makeClinics(3)), nil, 10)
	require.NoError(t, v.Load(context.Background()))

	v.RemoveEntity("clinic-02")
	col := v.Collection()
	require.Len(t, col, 2)
	assert.Equal(t, "clinic-01", col[0].ID)
	assert.Equal(t, "clinic-03", col[1].ID)

	v.RemoveEntity("missing")
	assert.Len(t, v.Collection(), 2)
}

func TestRemoveShrinkClampsPage(t *testing.T) {
	v := NewListView[model.Clinic](fixedList(makeClinics(11)), nil, 10, WithLocalFilter(clinicSearch))
	require.NoError(t, v.Load(context.Background()))
	require.NoError(t, v.SetFilter(context.Background(), FilterPatch{PageIndex: intp(2)}))
	require.Len(t, v.VisiblePage(), 1)

	// Removing the only entity on page 2 pulls the view back to page 1.
	v.RemoveEntity("clinic-11")
	assert.Equal(t, 1, v.Filter().PageIndex)
	assert.Len(t, v.VisiblePage(), 10)
}

func TestFailedLoadKeepsStaleCollection(t *testing.T) {
	items := makeClinics(3)
	fail := false
	client := &stubListClient[model.Clinic]{
		name: "clinics",
		listFn: func(ctx context.Context, f resource.ServerFilter) (resource.ListResult[model.Clinic], error) {
			if fail {
				return resource.ListResult[model.Clinic]{}, errors.Network(fmt.Errorf("connection refused"))
			}
			return resource.ListResult[model.Clinic]{Items: items, TotalCount: 3}, nil
		},
	}
	v := NewListView[model.Clinic](client, nil, 10)
	require.NoError(t, v.Load(context.Background()))
	require.Equal(t, ListLoaded, v.State())

	fail = true
	err := v.Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsNetwork(err))
	assert.Equal(t, ListError, v.State())

	// Stale data stays renderable behind the error banner.
	assert.Len(t, v.VisiblePage(), 3)
}

func TestLocalFilterNoNetwork(t *testing.T) {
	client := fixedList(makeClinics(20))
	v := NewListView[model.Clinic](client, nil, 10, WithLocalFilter(clinicSearch))
	require.NoError(t, v.Load(context.Background()))
	require.Equal(t, 1, client.calls)

	require.NoError(t, v.SetFilter(context.Background(), FilterPatch{SearchText: strp("Clinic 0")}))
	require.NoError(t, v.SetFilter(context.Background(), FilterPatch{PageIndex: intp(1)}))
	assert.Equal(t, 1, client.calls, "local filtering must not re-fetch")
	assert.Len(t, v.VisiblePage(), 9)
}

func TestServerFilterRefetches(t *testing.T) {
	client := fixedList(makeClinics(5))
	v := NewListView[model.Clinic](client, nil, 10,
		WithServerFilter[model.Clinic](func(f ViewFilter) resource.ServerFilter {
			return resource.ServerFilter{Keyword: f.SearchText, Status: f.StatusFilter}
		}))
	require.NoError(t, v.Load(context.Background()))
	require.Equal(t, 1, client.calls)

	require.NoError(t, v.SetFilter(context.Background(), FilterPatch{SearchText: strp("sun")}))
	require.Equal(t, 2, client.calls)
	assert.Equal(t, "sun", client.filters[1].Keyword)

	// Pagination stays local even in server-filter mode.
	require.NoError(t, v.SetFilter(context.Background(), FilterPatch{PageIndex: intp(1)}))
	assert.Equal(t, 2, client.calls)
}

func TestSortKeyStableAscending(t *testing.T) {
	items := []model.Clinic{
		{Base: model.Base{ID: "a"}, Name: "Beta"},
		{Base: model.Base{ID: "b"}, Name: "Alpha"},
		{Base: model.Base{ID: "c"}, Name: "Alpha"},
	}
	v := NewListView[model.Clinic](fixedList(items), nil, 10,
		WithSortKeys(map[string]func(model.Clinic) string{
			"name": func(c model.Clinic) string { return c.Name },
		}))
	require.NoError(t, v.Load(context.Background()))

	// Without a sort key, collection order is preserved.
	page := v.VisiblePage()
	assert.Equal(t, "a", page[0].ID)

	require.NoError(t, v.SetFilter(context.Background(), FilterPatch{SortKey: strp("name")}))
	page = v.VisiblePage()
	require.Len(t, page, 3)
	assert.Equal(t, "b", page[0].ID, "ascending by name")
	assert.Equal(t, "c", page[1].ID, "equal keys keep original order")
	assert.Equal(t, "a", page[2].ID)
}

func TestSequenceGuardDropsStaleResponse(t *testing.T) {
	slowStarted := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	client := &stubListClient[model.Clinic]{name: "clinics"}
	client.listFn = func(ctx context.Context, f resource.ServerFilter) (resource.ListResult[model.Clinic], error) {
		calls++
		if calls == 1 {
			close(slowStarted)
			<-release
			return resource.ListResult[model.Clinic]{Items: []model.Clinic{{Base: model.Base{ID: "stale"}}}}, nil
		}
		return resource.ListResult[model.Clinic]{Items: []model.Clinic{{Base: model.Base{ID: "fresh"}}}}, nil
	}

	v := NewListView[model.Clinic](client, nil, 10, WithSequenceGuard[model.Clinic]())

	done := make(chan error, 1)
	go func() { done <- v.Load(context.Background()) }()
	<-slowStarted

	// A later-issued fetch completes first.
	require.NoError(t, v.Load(context.Background()))
	require.Equal(t, "fresh", v.Collection()[0].ID)

	// The slow first fetch finishes afterwards and must be discarded.
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, "fresh", v.Collection()[0].ID)
}

func TestWithoutGuardLastResponseWins(t *testing.T) {
	slowStarted := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	client := &stubListClient[model.Clinic]{name: "clinics"}
	client.listFn = func(ctx context.Context, f resource.ServerFilter) (resource.ListResult[model.Clinic], error) {
		calls++
		if calls == 1 {
			close(slowStarted)
			<-release
			return resource.ListResult[model.Clinic]{Items: []model.Clinic{{Base: model.Base{ID: "stale"}}}}, nil
		}
		return resource.ListResult[model.Clinic]{Items: []model.Clinic{{Base: model.Base{ID: "fresh"}}}}, nil
	}

	v := NewListView[model.Clinic](client, nil, 10)

	done := make(chan error, 1)
	go func() { done <- v.Load(context.Background()) }()
	<-slowStarted

	require.NoError(t, v.Load(context.Background()))
	require.Equal(t, "fresh", v.Collection()[0].ID)

	// Shipped behavior: the stale response overwrites the fresher one.
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, "stale", v.Collection()[0].ID)
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }
