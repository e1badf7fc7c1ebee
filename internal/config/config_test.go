package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"BLOOM_API_URL", "PORT", "BLOOM_SESSION_BACKEND", "BLOOM_SESSION_FILE", "REDIS_ADDR", "DATABASE_URL"} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != DefaultAPIURL || cfg.Server.Port != DefaultPort || cfg.Session.Backend != "file" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("api:\n  base_url: http://backend:9000/\nsession:\n  backend: redis\n  access_ttl: 5m\nredis:\n  addr: cache:6379\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "http://backend:9000" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.API.BaseURL)
	}
	if cfg.Session.Backend != "redis" || cfg.Redis.Addr != "cache:6379" {
		t.Fatalf("unexpected session config %+v", cfg.Session)
	}
	if cfg.Server.Port != DefaultPort {
		t.Fatalf("expected default port to survive, got %q", cfg.Server.Port)
	}
	if got := TTLDuration(cfg.Session.AccessTTL, time.Minute); got != 5*time.Minute {
		t.Fatalf("expected 5m, got %v", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"BLOOM_API_URL":         "https://api.example.com/",
		"PORT":                  "9090",
		"BLOOM_SESSION_BACKEND": "Postgres",
		"DATABASE_URL":          "postgres://u:p@db/bloom",
		"BLOOM_SESSION_FILE":    "/tmp/bloom/session.yaml",
	}
	applyEnv(&cfg, func(k string) string { return env[k] })

	if cfg.API.BaseURL != "https://api.example.com" || cfg.Server.Port != "9090" {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.Session.File != "/tmp/bloom/session.yaml" {
		t.Fatalf("unexpected session file %q", cfg.Session.File)
	}
	if cfg.Session.Backend != "postgres" || cfg.Postgres.URL != "postgres://u:p@db/bloom" {
		t.Fatalf("unexpected storage overrides %+v", cfg)
	}
}

func TestTTLDuration(t *testing.T) {
	if TTLDuration("", time.Second) != time.Second {
		t.Fatal("empty should fall back")
	}
	if TTLDuration("bogus", time.Second) != time.Second {
		t.Fatal("invalid should fall back")
	}
	if TTLDuration("90s", time.Second) != 90*time.Second {
		t.Fatal("valid should parse")
	}
}
