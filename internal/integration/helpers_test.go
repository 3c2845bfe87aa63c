//go:build integration

package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/profile-api/internal/api"
	"github.com/couchcryptid/profile-api/internal/database"
	"github.com/couchcryptid/profile-api/internal/diagnostics"
	"github.com/couchcryptid/profile-api/internal/observability"
	"github.com/couchcryptid/profile-api/internal/store"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testPoolOptions disables the TLS requirement; the test containers serve plaintext.
func testPoolOptions() database.PoolOptions {
	return database.PoolOptions{MaxConns: 4, AcquireTimeout: 5 * time.Second}
}

func startMySQL(ctx context.Context, t *testing.T) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.4",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "root",
			"MYSQL_USER":          "test",
			"MYSQL_PASSWORD":      "test",
			"MYSQL_DATABASE":      "testdb",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(90 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start mysql")
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "3306")
	return fmt.Sprintf("mysql://test:test@%s:%s/testdb", host, port.Port())
}

// execMySQL runs a statement outside of the service, which never writes.
func execMySQL(ctx context.Context, t *testing.T, cfg database.ConnectionConfig, query string, args ...any) {
	t.Helper()
	mcfg := mysql.NewConfig()
	mcfg.User, mcfg.Passwd = "test", "test"
	mcfg.Net, mcfg.Addr, mcfg.DBName = "tcp", cfg.Address(), cfg.Database
	db, err := sql.Open("mysql", mcfg.FormatDSN())
	require.NoError(t, err)
	defer db.Close()
	_, err = db.ExecContext(ctx, query, args...)
	require.NoError(t, err)
}

func execPostgres(ctx context.Context, t *testing.T, dsn string, query string, args ...any) {
	t.Helper()
	conn, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, query, args...)
	require.NoError(t, err)
}

func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start postgres")
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432")
	return fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
}

// seed applies the schema and inserts one row over a direct connection.
func seed(ctx context.Context, t *testing.T, dsn string) {
	t.Helper()
	cfg, err := database.ParseConnectionConfig(dsn, testPoolOptions())
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(cfg))

	if cfg.Dialect == database.DialectPostgres {
		execPostgres(ctx, t, dsn, "INSERT INTO profiles (username, full_name, profile_photo_url) VALUES ($1, $2, $3)",
			"juan", "Juan Perez", "http://x/p.jpg")
		return
	}
	execMySQL(ctx, t, cfg, "INSERT INTO profiles (username, full_name, profile_photo_url) VALUES (?, ?, ?)",
		"juan", "Juan Perez", "http://x/p.jpg")
}

// startAPI builds the full handler stack against dsn.
func startAPI(t *testing.T, dsn string) *httptest.Server {
	t.Helper()
	logger := discardLogger()
	metrics := observability.NewTestMetrics()
	manager := database.NewManager(dsn, testPoolOptions(), logger)
	t.Cleanup(manager.Close)

	router := api.NewRouter(api.RouterConfig{
		Handler: api.NewHandler(
			store.New(manager, metrics),
			diagnostics.New(manager.Probe(), manager, metrics, logger),
			"juan", logger,
		),
		Metrics:     metrics,
		Readiness:   database.NewPoolReadiness(manager),
		MaxInFlight: 4,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func get(ctx context.Context, t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
