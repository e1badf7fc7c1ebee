package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bloom-client/internal/domain"
	"bloom-client/internal/session"
)

func TestSessionStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")

	first := NewSessionStore(path, "cli")
	if _, ok := first.Get(ctx, session.AccessToken); ok {
		t.Fatalf("expected empty store before the file exists")
	}
	if err := first.Set(ctx, session.AccessToken, "tok", time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}

	second := NewSessionStore(path, "cli")
	if v, ok := second.Get(ctx, session.AccessToken); !ok || v != "tok" {
		t.Fatalf("expected tok after reopening, got %q (%v)", v, ok)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}
}

func TestSessionStoreExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStoreWithClock(filepath.Join(t.TempDir(), "session.yaml"), "", func() time.Time { return now })

	_ = store.Set(ctx, session.AccessToken, "short", 30*time.Minute)
	_ = store.Set(ctx, session.Username, "alice", 0)

	now = now.Add(31 * time.Minute)
	if _, ok := store.Get(ctx, session.AccessToken); ok {
		t.Fatalf("access token should have expired")
	}
	if v, ok := store.Get(ctx, session.Username); !ok || v != "alice" {
		t.Fatalf("username without ttl should remain, got %q (%v)", v, ok)
	}
}

func TestSessionStoreNamespacesAndClear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.yaml")
	alice := session.New(NewSessionStore(path, "alice"), session.DefaultPolicy())
	bob := session.New(NewSessionStore(path, "bob"), session.DefaultPolicy())

	if err := alice.Save(ctx, domain.Credentials{AccessToken: "a", RefreshToken: "r", Username: "alice"}); err != nil {
		t.Fatalf("save alice: %v", err)
	}
	if err := bob.Save(ctx, domain.Credentials{AccessToken: "b", Username: "bob"}); err != nil {
		t.Fatalf("save bob: %v", err)
	}
	if err := alice.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := alice.Credentials(ctx); got != (domain.Credentials{}) {
		t.Fatalf("expected empty credentials after clear, got %+v", got)
	}
	if got := bob.Username(ctx); got != "bob" {
		t.Fatalf("other namespace should survive, got %q", got)
	}
}

func TestSessionStoreRejectsCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(path, []byte("namespaces: [not, a, map"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := NewSessionStore(path, "")

	if _, ok := store.Get(ctx, session.AccessToken); ok {
		t.Fatalf("corrupt file should read as empty")
	}
	if err := store.Set(ctx, session.AccessToken, "tok", time.Minute); err == nil {
		t.Fatalf("expected decode error instead of overwriting the file")
	}
}
