package redis

import (
	"context"
	"time"

	"bloom-client/internal/session"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps session values in Redis, one string key per value with its own TTL.
// Keys look like bloom:session:{namespace}:{name}; the namespace separates CLI profiles.
type SessionStore struct {
	client    *redis.Client
	namespace string
}

func NewSessionStore(client *redis.Client, namespace string) *SessionStore {
	if namespace == "" {
		namespace = "default"
	}
	return &SessionStore{client: client, namespace: namespace}
}

// Get treats connection failures like a missing value.
func (s *SessionStore) Get(ctx context.Context, key session.Key) (string, bool) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

// Set stores value; a non-positive ttl keeps it until deleted.
func (s *SessionStore) Set(ctx context.Context, key session.Key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, keys ...session.Key) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, s.key(k))
	}
	return s.client.Del(ctx, names...).Err()
}

func (s *SessionStore) key(k session.Key) string {
	return "bloom:session:" + s.namespace + ":" + string(k)
}
