package main

import (
	"github.com/couchcryptid/profile-api/internal/config"
	"github.com/couchcryptid/profile-api/internal/database"
	"github.com/couchcryptid/profile-api/internal/observability"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded profiles schema to DATABASE_URL",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := observability.NewLogger(cfg)

			conn, err := database.ParseConnectionConfig(cfg.DatabaseURL, poolOptions(cfg))
			if err != nil {
				logger.Error("parse DATABASE_URL", "error", err)
				return err
			}
			if err := database.RunMigrations(conn); err != nil {
				logger.Error("run migrations", "error", err)
				return err
			}
			logger.Info("migrations applied", "dialect", conn.Dialect, "host", conn.Host)
			return nil
		},
	}
}
