package session_test

import (
	"context"
	"testing"
	"time"

	"bloom-client/internal/domain"
	"bloom-client/internal/infra/memory"
	"bloom-client/internal/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTTLUsesTokenExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	sess := session.NewWithClock(memory.NewSessionStore(), session.DefaultPolicy(), func() time.Time { return now })

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, sess.AccessTTL(token))
}

func TestAccessTTLFallsBackToPolicy(t *testing.T) {
	sess := session.New(memory.NewSessionStore(), session.Policy{AccessTTL: 10 * time.Minute})

	assert.Equal(t, 10*time.Minute, sess.AccessTTL("not-a-jwt"))
	assert.Equal(t, 10*time.Minute, sess.AccessTTL(""))
}

func TestSaveDropsExpiredAccessToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := memory.NewSessionStoreWithClock(clock)
	sess := session.NewWithClock(store, session.DefaultPolicy(), clock)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	assert.Zero(t, sess.AccessTTL(token))
	require.NoError(t, sess.Save(ctx, domain.Credentials{AccessToken: "old", Username: "alice"}))
	require.NoError(t, sess.Save(ctx, domain.Credentials{AccessToken: token, RefreshToken: "r", Username: "alice"}))

	creds := sess.Credentials(ctx)
	assert.Empty(t, creds.AccessToken)
	assert.False(t, creds.Authenticated())
	assert.Equal(t, "r", creds.RefreshToken)
}

func TestSaveAppliesIndependentExpirations(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := memory.NewSessionStoreWithClock(clock)
	sess := session.NewWithClock(store, session.DefaultPolicy(), clock)

	require.NoError(t, sess.Save(ctx, domain.Credentials{AccessToken: "a", RefreshToken: "r", Username: "alice"}))

	now = now.Add(time.Hour)
	creds := sess.Credentials(ctx)
	assert.Empty(t, creds.AccessToken, "access token is short-lived")
	assert.Equal(t, "r", creds.RefreshToken)
	assert.Equal(t, "alice", creds.Username)
	assert.False(t, creds.Authenticated())
}

func TestSaveDropsEmptyValues(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	sess := session.New(store, session.DefaultPolicy())

	require.NoError(t, sess.Save(ctx, domain.Credentials{AccessToken: "a", RefreshToken: "r", Username: "alice"}))
	require.NoError(t, sess.Save(ctx, domain.Credentials{AccessToken: "b", Username: "bob"}))

	_, ok := store.Get(ctx, session.RefreshToken)
	assert.False(t, ok)
	assert.Equal(t, "b", sess.AccessToken(ctx))
	assert.Equal(t, "bob", sess.Username(ctx))
}

func TestReadsOnEmptyStoreNeverFail(t *testing.T) {
	sess := session.New(memory.NewSessionStore(), session.DefaultPolicy())
	assert.Equal(t, domain.Credentials{}, sess.Credentials(context.Background()))
}
