package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"bloom-client/internal/domain"
	pgstore "bloom-client/internal/infra/postgres"
	pgmigrations "bloom-client/internal/infra/postgres/migrations"
	infraredis "bloom-client/internal/infra/redis"
	"bloom-client/internal/session"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestPostgresSessionStore(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	migrateSchema(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := pgstore.NewSessionStore(pool, "alice-laptop")
	other := pgstore.NewSessionStore(pool, "bob-desktop")
	exerciseStore(t, ctx, store, other)

	if err := store.Set(ctx, session.RefreshToken, "stale", time.Millisecond); err != nil {
		t.Fatalf("set short-lived: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := store.Get(ctx, session.RefreshToken); ok {
		t.Fatal("expired value should read as absent")
	}
	n, err := store.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged row, got %d", n)
	}
}

func TestRedisSessionStore(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	client, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer client.Close()

	exerciseStore(t, ctx, infraredis.NewSessionStore(client, "alice-laptop"), infraredis.NewSessionStore(client, "bob-desktop"))
}

// exerciseStore runs the save/read/clear cycle through a Session and checks namespaces stay apart.
func exerciseStore(t *testing.T, ctx context.Context, store, other session.Store) {
	t.Helper()
	sess := session.New(store, session.DefaultPolicy())
	otherSess := session.New(other, session.DefaultPolicy())

	creds := domain.Credentials{AccessToken: "acc", RefreshToken: "ref", Username: "alice"}
	if err := sess.Save(ctx, creds); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := otherSess.Save(ctx, domain.Credentials{AccessToken: "acc2", Username: "bob"}); err != nil {
		t.Fatalf("save other: %v", err)
	}
	if got := sess.Credentials(ctx); got != creds {
		t.Fatalf("expected %+v, got %+v", creds, got)
	}

	if err := sess.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := sess.Credentials(ctx); got != (domain.Credentials{}) {
		t.Fatalf("expected empty credentials after clear, got %+v", got)
	}
	if got := otherSess.Username(ctx); got != "bob" {
		t.Fatalf("other namespace should survive, got %q", got)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "bloom", "POSTGRES_PASSWORD": "bloompass", "POSTGRES_DB": "bloom"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://bloom:bloompass@%s:%s/bloom?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
