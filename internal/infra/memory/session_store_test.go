package memory

import (
	"context"
	"testing"
	"time"

	"bloom-client/internal/domain"
	"bloom-client/internal/session"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	if _, ok := store.Get(ctx, session.AccessToken); ok {
		t.Fatalf("expected empty store")
	}
	if err := store.Set(ctx, session.AccessToken, "tok", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok := store.Get(ctx, session.AccessToken); !ok || v != "tok" {
		t.Fatalf("expected tok, got %q (%v)", v, ok)
	}

	if err := store.Delete(ctx, session.AccessToken); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.Get(ctx, session.AccessToken); ok {
		t.Fatalf("expected value removed")
	}
}

func TestSessionStoreExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStoreWithClock(func() time.Time { return now })

	_ = store.Set(ctx, session.AccessToken, "short", 30*time.Minute)
	_ = store.Set(ctx, session.Username, "alice", 7*24*time.Hour)

	now = now.Add(31 * time.Minute)
	if _, ok := store.Get(ctx, session.AccessToken); ok {
		t.Fatalf("expected access token to expire")
	}
	if v, ok := store.Get(ctx, session.Username); !ok || v != "alice" {
		t.Fatalf("expected username to survive, got %q", v)
	}
}

func TestSessionClearRemovesAllValues(t *testing.T) {
	ctx := context.Background()
	sess := session.New(NewSessionStore(), session.DefaultPolicy())

	if err := sess.Save(ctx, credentials()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := sess.Credentials(ctx); got != credentials() {
		t.Fatalf("unexpected credentials %+v", got)
	}

	if err := sess.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got := sess.Credentials(ctx)
	if got.AccessToken != "" || got.RefreshToken != "" || got.Username != "" {
		t.Fatalf("expected all values cleared, got %+v", got)
	}
}

func credentials() domain.Credentials {
	return domain.Credentials{AccessToken: "access", RefreshToken: "refresh", Username: "alice"}
}
