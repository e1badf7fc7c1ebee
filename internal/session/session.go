// Package session persists the user's credentials (access token, refresh token, username)
// behind a pluggable key/value Store with per-value expiry.
package session

import (
	"context"
	"errors"
	"time"

	"bloom-client/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Key names one persisted session value. The names double as cookie names.
type Key string

const (
	AccessToken  Key = "access_token"
	RefreshToken Key = "refresh_token"
	Username     Key = "username"
)

// Keys lists every value a session owns; writes and deletes always cover all of them.
var Keys = []Key{AccessToken, RefreshToken, Username}

// Store abstracts where session values live (cookies, memory, Redis, Postgres).
// Get never fails: absent, expired or unreadable values are reported as absent.
type Store interface {
	Get(ctx context.Context, key Key) (string, bool)
	Set(ctx context.Context, key Key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...Key) error
}

// Policy holds the lifetimes applied when credentials are saved.
type Policy struct {
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	UsernameTTL time.Duration
}

// DefaultPolicy matches the backend's token lifetimes (30 minute access, 7 day refresh).
func DefaultPolicy() Policy {
	return Policy{
		AccessTTL:   30 * time.Minute,
		RefreshTTL:  7 * 24 * time.Hour,
		UsernameTTL: 7 * 24 * time.Hour,
	}
}

// Session is the credential view over a Store.
type Session struct {
	store  Store
	policy Policy
	now    func() time.Time
}

func New(store Store, policy Policy) *Session {
	return NewWithClock(store, policy, time.Now)
}

// NewWithClock allows deterministic token expiry in tests.
func NewWithClock(store Store, policy Policy, now func() time.Time) *Session {
	def := DefaultPolicy()
	if policy.AccessTTL <= 0 {
		policy.AccessTTL = def.AccessTTL
	}
	if policy.RefreshTTL <= 0 {
		policy.RefreshTTL = def.RefreshTTL
	}
	if policy.UsernameTTL <= 0 {
		policy.UsernameTTL = def.UsernameTTL
	}
	return &Session{store: store, policy: policy, now: now}
}

// AccessToken is read fresh from the store on every call.
func (s *Session) AccessToken(ctx context.Context) string {
	v, _ := s.store.Get(ctx, AccessToken)
	return v
}

func (s *Session) RefreshToken(ctx context.Context) string {
	v, _ := s.store.Get(ctx, RefreshToken)
	return v
}

func (s *Session) Username(ctx context.Context) string {
	v, _ := s.store.Get(ctx, Username)
	return v
}

// Credentials returns all three values; any of them may be empty.
func (s *Session) Credentials(ctx context.Context) domain.Credentials {
	return domain.Credentials{
		AccessToken:  s.AccessToken(ctx),
		RefreshToken: s.RefreshToken(ctx),
		Username:     s.Username(ctx),
	}
}

// Save writes all three values. An empty value deletes its key so a stale credential from a
// previous login never survives; an access token that has already expired is treated as empty.
func (s *Session) Save(ctx context.Context, creds domain.Credentials) error {
	accessTTL, expired := s.accessExpiry(creds.AccessToken)
	if expired {
		creds.AccessToken = ""
	}
	values := []struct {
		key   Key
		value string
		ttl   time.Duration
	}{
		{AccessToken, creds.AccessToken, accessTTL},
		{RefreshToken, creds.RefreshToken, s.policy.RefreshTTL},
		{Username, creds.Username, s.policy.UsernameTTL},
	}
	var errs []error
	for _, v := range values {
		if v.value == "" {
			errs = append(errs, s.store.Delete(ctx, v.key))
			continue
		}
		errs = append(errs, s.store.Set(ctx, v.key, v.value, v.ttl))
	}
	return errors.Join(errs...)
}

// Clear removes all three values together.
func (s *Session) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, Keys...)
}

// AccessTTL returns the remaining lifetime of a JWT access token, or the policy default when
// the token carries no usable exp claim. An already expired token gets zero. The signature is
// not verified; that is the backend's job.
func (s *Session) AccessTTL(token string) time.Duration {
	ttl, expired := s.accessExpiry(token)
	if expired {
		return 0
	}
	return ttl
}

func (s *Session) accessExpiry(token string) (time.Duration, bool) {
	if token == "" {
		return s.policy.AccessTTL, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return s.policy.AccessTTL, false
	}
	remaining := claims.ExpiresAt.Time.Sub(s.now())
	if remaining <= 0 {
		return 0, true
	}
	return remaining, false
}
