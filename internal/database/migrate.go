package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations applies the embedded profiles schema for cfg's dialect.
func RunMigrations(cfg ConnectionConfig) error {
	drv, ok := lookupDriver(cfg.Dialect)
	if !ok {
		return fmt.Errorf("%w: %s", ErrDependencyUnavailable, cfg.Dialect)
	}
	source, err := iofs.New(migrationsFS, "migrations/"+string(cfg.Dialect))
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	databaseURL, err := drv.migrationURL(cfg)
	if err != nil {
		return fmt.Errorf("build migration url: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
