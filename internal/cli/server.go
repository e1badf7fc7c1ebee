package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bloom-client/internal/config"
	pgstore "bloom-client/internal/infra/postgres"
	transport "bloom-client/internal/transport/http"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the web front end.
func NewStartCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the web front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()
			return runServer(cmd.Context(), cfg, log)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := transport.NewRouter(transport.Options{
		Log:           log,
		API:           newAPIClient(cfg, nil, log),
		Policy:        sessionPolicy(cfg),
		SecureCookies: cfg.Server.SecureCookies,
		UISecret:      cfg.Server.UISecret,
		Development:   cfg.Logging.Level == "debug",
	})
	if err != nil {
		return err
	}

	port := cfg.Server.Port
	if port == "" {
		port = config.DefaultPort
	}
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.Session.Backend == "postgres" && cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(runCtx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := runMigrations(runCtx, cfg, log); err != nil {
			return err
		}
		go purgeLoop(runCtx, pgstore.NewSessionStore(pool, cfg.Session.Namespace),
			config.TTLDuration(cfg.Postgres.PurgeEvery, 10*time.Minute), log)
	}

	go func() {
		log.Info("starting web front end", zap.String("addr", server.Addr), zap.String("api", cfg.API.BaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-runCtx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

type expiringStore interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// purgeLoop removes expired session rows every interval until ctx is done.
func purgeLoop(ctx context.Context, store expiringStore, every time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				log.Warn("purge expired session values failed", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("purged expired session values", zap.Int64("rows", n))
			}
		}
	}
}
