package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-console/pkg/errors"
)

// Role identifies which portal a token belongs to. Each role's token is
// stored independently so an admin and a doctor session can coexist.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Store is the process-wide bearer token store. Tokens are read fresh on
// every request, so a logout/login between two calls is honored by any
// call issued after it.
type Store struct {
	tokens *gocache.Cache
}

func NewStore() *Store {
	return &Store{
		tokens: gocache.New(gocache.NoExpiration, time.Minute),
	}
}

// SetToken stores a bearer token for a role. When the token is a JWT with
// an exp claim, the claim becomes the cache TTL so the entry evicts itself
// at expiry. Signature verification stays server-side; only the unverified
// claims are inspected here.
func (s *Store) SetToken(role Role, token string) {
	ttl := gocache.NoExpiration
	if exp, ok := expiryOf(token); ok {
		remaining := time.Until(exp)
		if remaining <= 0 {
			// Already expired, don't store it at all.
			s.tokens.Delete(string(role))
			return
		}
		ttl = remaining
	}
	s.tokens.Set(string(role), token, ttl)
}

// Token returns the current bearer token for a role. A missing or expired
// token yields an auth error so callers can short-circuit before any
// network call.
func (s *Store) Token(role Role) (string, error) {
	raw, ok := s.tokens.Get(string(role))
	if !ok {
		return "", errors.Unauthorized(fmt.Errorf("no token stored for role %s", role))
	}
	token := raw.(string)
	if exp, known := expiryOf(token); known && time.Now().After(exp) {
		s.tokens.Delete(string(role))
		return "", errors.Unauthorized(fmt.Errorf("token for role %s has expired", role))
	}
	return token, nil
}

// Clear removes a role's token, e.g. on logout.
func (s *Store) Clear(role Role) {
	s.tokens.Delete(string(role))
}

func expiryOf(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		// Opaque tokens are fine; they just have no client-known expiry.
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
