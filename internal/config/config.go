package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port          string `yaml:"port"`
		SecureCookies bool   `yaml:"secure_cookies"`
		UISecret      string `yaml:"ui_secret"`
	} `yaml:"server"`
	API struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"api"`
	Session struct {
		Backend     string `yaml:"backend"`
		File        string `yaml:"file"`
		Namespace   string `yaml:"namespace"`
		AccessTTL   string `yaml:"access_ttl"`
		RefreshTTL  string `yaml:"refresh_ttl"`
		UsernameTTL string `yaml:"username_ttl"`
	} `yaml:"session"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL        string `yaml:"url"`
		PurgeEvery string `yaml:"purge_every"`
	} `yaml:"postgres"`
	Logging struct {
		Level     string `yaml:"level"`
		Directory string `yaml:"directory"`
	} `yaml:"logging"`
}

const (
	DefaultAPIURL = "http://localhost:8000"
	DefaultPort   = "8080"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = DefaultPort
	cfg.API.BaseURL = DefaultAPIURL
	cfg.API.Timeout = "15s"
	cfg.Session.Backend = "file"
	cfg.Session.Namespace = "default"
	cfg.Postgres.PurgeEvery = "10m"
	cfg.Logging.Level = "info"
	return cfg
}

// Load reads YAML config from path over the defaults, then applies .env and environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, err
	}
	applyEnv(&cfg, os.Getenv)
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("BLOOM_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := getenv("BLOOM_SESSION_BACKEND"); v != "" {
		cfg.Session.Backend = strings.ToLower(v)
	}
	if v := getenv("BLOOM_SESSION_FILE"); v != "" {
		cfg.Session.File = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
