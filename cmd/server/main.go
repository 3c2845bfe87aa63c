package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/profile-api/internal/api"
	"github.com/couchcryptid/profile-api/internal/config"
	"github.com/couchcryptid/profile-api/internal/database"
	"github.com/couchcryptid/profile-api/internal/diagnostics"
	"github.com/couchcryptid/profile-api/internal/observability"
	"github.com/couchcryptid/profile-api/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	root := &cobra.Command{
		Use:   "profile-api",
		Short: "Profile directory API with layered database diagnostics",
		Long: `profile-api serves read-only profile lookups from MySQL or PostgreSQL.

  profile-api serve     Run the HTTP server (default)
  profile-api diag      Run connectivity diagnostics once and print the report
  profile-api migrate   Apply the embedded profiles schema`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(newServeCmd(), newDiagCmd(), newMigrateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE:  runServe,
	}
}

func poolOptions(cfg *config.Config) database.PoolOptions {
	return database.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLifetime,
		AcquireTimeout:  cfg.DBAcquireTimeout,
		RequireTLS:      cfg.DBRequireTLS,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Database: nothing is opened until the first request needs the pool.
	manager := database.NewManager(cfg.DatabaseURL, poolOptions(cfg), logger)
	defer manager.Close()

	s := store.New(manager, metrics)
	diag := diagnostics.New(manager.Probe(), manager, metrics, logger, diagnostics.WithTimeout(cfg.ProbeTimeout))

	router := api.NewRouter(api.RouterConfig{
		Handler:          api.NewHandler(s, diag, cfg.DefaultUsername, logger),
		Metrics:          metrics,
		Readiness:        database.NewPoolReadiness(manager),
		MaxInFlight:      cfg.DBMaxConns,
		ReadinessTimeout: cfg.ProbeTimeout,
		Logger:           logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           http.TimeoutHandler(router, cfg.RequestTimeout, `{"status":"timeout"}`),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server started", "port", cfg.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
