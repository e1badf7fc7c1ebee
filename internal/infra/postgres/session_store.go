package postgres

import (
	"context"
	"fmt"
	"time"

	"bloom-client/internal/session"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SessionStore keeps session values in the session_values table (see migrations).
// Expired rows are ignored on read; PurgeExpired deletes them.
type SessionStore struct {
	pool      *pgxpool.Pool
	namespace string
	clock     func() time.Time
}

func NewSessionStore(pool *pgxpool.Pool, namespace string) *SessionStore {
	if namespace == "" {
		namespace = "default"
	}
	return &SessionStore{pool: pool, namespace: namespace, clock: time.Now}
}

func (s *SessionStore) Get(ctx context.Context, key session.Key) (string, bool) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM session_values
		 WHERE namespace = $1 AND name = $2 AND (expires_at IS NULL OR expires_at > $3)`,
		s.namespace, string(key), s.clock().UTC(),
	).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// Set upserts value; a non-positive ttl keeps it until deleted.
func (s *SessionStore) Set(ctx context.Context, key session.Key, value string, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		at := s.clock().UTC().Add(ttl)
		expiresAt = &at
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_values (namespace, name, value, expires_at, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (namespace, name) DO UPDATE
		 SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()`,
		s.namespace, string(key), value, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("set session value %s: %w", key, err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, keys ...session.Key) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, string(k))
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM session_values WHERE namespace = $1 AND name = ANY($2)`,
		s.namespace, names,
	); err != nil {
		return fmt.Errorf("delete session values: %w", err)
	}
	return nil
}

// PurgeExpired removes rows whose expiry has passed and reports how many were deleted.
func (s *SessionStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM session_values WHERE expires_at IS NOT NULL AND expires_at <= $1`,
		s.clock().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("purge expired session values: %w", err)
	}
	return tag.RowsAffected(), nil
}
