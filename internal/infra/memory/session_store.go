package memory

import (
	"context"
	"sync"
	"time"

	"bloom-client/internal/session"
)

// SessionStore is an in-memory implementation of session.Store with per-key expiry.
type SessionStore struct {
	clock func() time.Time

	mu     sync.RWMutex
	values map[session.Key]entry
}

type entry struct {
	value     string
	expiresAt time.Time
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(time.Now)
}

// NewSessionStoreWithClock is used by tests to step over expirations.
func NewSessionStoreWithClock(clock func() time.Time) *SessionStore {
	return &SessionStore{
		clock:  clock,
		values: make(map[session.Key]entry),
	}
}

func (s *SessionStore) Get(_ context.Context, key session.Key) (string, bool) {
	now := s.clock()

	s.mu.RLock()
	e, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(now) {
		s.mu.Lock()
		if cur, ok := s.values[key]; ok && cur == e {
			delete(s.values, key)
		}
		s.mu.Unlock()
		return "", false
	}
	return e.value, true
}

// Set stores value; a non-positive ttl keeps it until deleted.
func (s *SessionStore) Set(_ context.Context, key session.Key, value string, ttl time.Duration) error {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.clock().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = e
	return nil
}

func (s *SessionStore) Delete(_ context.Context, keys ...session.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}
