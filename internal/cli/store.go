package cli

import (
	"context"
	"fmt"
	"time"

	"bloom-client/internal/api"
	"bloom-client/internal/config"
	"bloom-client/internal/infra/file"
	"bloom-client/internal/infra/memory"
	pgstore "bloom-client/internal/infra/postgres"
	redisstore "bloom-client/internal/infra/redis"
	"bloom-client/internal/session"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// openStore builds the session store named by session.backend. The returned func releases
// its connections.
func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (session.Store, func(), error) {
	switch cfg.Session.Backend {
	case "", "file":
		path := cfg.Session.File
		if path == "" {
			var err error
			if path, err = file.DefaultPath(); err != nil {
				return nil, nil, err
			}
		}
		log.Debug("using session file", zap.String("path", path))
		return file.NewSessionStore(path, cfg.Session.Namespace), func() {}, nil
	case "memory":
		return memory.NewSessionStore(), func() {}, nil
	case "redis":
		if cfg.Redis.Addr == "" {
			return nil, nil, fmt.Errorf("redis session backend needs redis.addr or REDIS_ADDR")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return redisstore.NewSessionStore(client, cfg.Session.Namespace), func() { _ = client.Close() }, nil
	case "postgres":
		if err := runMigrations(ctx, cfg, log); err != nil {
			return nil, nil, fmt.Errorf("migrate session schema: %w", err)
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := pgstore.NewSessionStore(pool, cfg.Session.Namespace)
		if n, err := store.PurgeExpired(ctx); err != nil {
			log.Warn("purge expired session values failed", zap.Error(err))
		} else if n > 0 {
			log.Debug("purged expired session values", zap.Int64("rows", n))
		}
		return store, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q (want file, memory, redis or postgres)", cfg.Session.Backend)
	}
}

func sessionPolicy(cfg config.Config) session.Policy {
	return session.Policy{
		AccessTTL:   config.TTLDuration(cfg.Session.AccessTTL, 0),
		RefreshTTL:  config.TTLDuration(cfg.Session.RefreshTTL, 0),
		UsernameTTL: config.TTLDuration(cfg.Session.UsernameTTL, 0),
	}
}

func newAPIClient(cfg config.Config, tokens api.TokenSource, log *zap.Logger) *api.Client {
	return api.NewClient(cfg.API.BaseURL, tokens,
		api.WithTimeout(config.TTLDuration(cfg.API.Timeout, 15*time.Second)),
		api.WithLogger(log),
	)
}

// clientEnv is what the terminal commands share: config, logger, the configured session and a
// client that reads its credential from that session.
type clientEnv struct {
	cfg    config.Config
	log    *zap.Logger
	sess   *session.Session
	client *api.Client
	close  func()
}

func (o *rootOptions) clientEnv(ctx context.Context) (*clientEnv, error) {
	cfg, log, err := o.load()
	if err != nil {
		return nil, err
	}
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}
	sess := session.New(store, sessionPolicy(cfg))
	return &clientEnv{
		cfg:    cfg,
		log:    log,
		sess:   sess,
		client: newAPIClient(cfg, sess, log),
		close: func() {
			closeStore()
			_ = log.Sync()
		},
	}, nil
}
