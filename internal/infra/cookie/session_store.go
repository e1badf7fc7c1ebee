// Package cookie stores session values as browser cookies on one HTTP exchange.
package cookie

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bloom-client/internal/session"
)

// Options controls the attributes of every cookie written.
type Options struct {
	// Secure forces the Secure attribute even on plain HTTP (e.g. behind a TLS terminating proxy).
	Secure bool
	// Readable lists keys that client-side scripts may read; the rest are HttpOnly.
	Readable []session.Key
}

// SessionStore reads cookies from the request and writes Set-Cookie headers on the response.
// Values written during the exchange are visible to later reads of the same exchange.
type SessionStore struct {
	r    *http.Request
	w    http.ResponseWriter
	opts Options
	now  func() time.Time

	mu      sync.Mutex
	pending map[session.Key]*string
}

func NewSessionStore(w http.ResponseWriter, r *http.Request, opts Options) *SessionStore {
	return &SessionStore{
		r:       r,
		w:       w,
		opts:    opts,
		now:     time.Now,
		pending: make(map[session.Key]*string),
	}
}

func (s *SessionStore) Get(_ context.Context, key session.Key) (string, bool) {
	s.mu.Lock()
	if v, ok := s.pending[key]; ok {
		s.mu.Unlock()
		if v == nil {
			return "", false
		}
		return *v, true
	}
	s.mu.Unlock()

	c, err := s.r.Cookie(string(key))
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (s *SessionStore) Set(_ context.Context, key session.Key, value string, ttl time.Duration) error {
	c := s.base(key)
	c.Value = value
	if ttl > 0 {
		c.MaxAge = int(ttl / time.Second)
		c.Expires = s.now().Add(ttl)
	}
	http.SetCookie(s.w, c)

	s.mu.Lock()
	s.pending[key] = &value
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Delete(_ context.Context, keys ...session.Key) error {
	for _, k := range keys {
		c := s.base(k)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(s.w, c)

		s.mu.Lock()
		s.pending[k] = nil
		s.mu.Unlock()
	}
	return nil
}

func (s *SessionStore) base(key session.Key) *http.Cookie {
	return &http.Cookie{
		Name:     string(key),
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   s.opts.Secure || s.r.TLS != nil,
		HttpOnly: !s.readable(key),
	}
}

func (s *SessionStore) readable(key session.Key) bool {
	for _, k := range s.opts.Readable {
		if k == key {
			return true
		}
	}
	return false
}

// HasAccessToken is the presence check used by route gating; it does not look at expiry or
// signature.
func HasAccessToken(r *http.Request) bool {
	c, err := r.Cookie(string(session.AccessToken))
	return err == nil && c.Value != ""
}
