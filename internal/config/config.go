package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds application settings loaded from environment variables.
type Config struct {
	Port            string
	DatabaseURL     string
	DefaultUsername string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	ProbeTimeout    time.Duration

	DBMaxConns        int
	DBMinConns        int
	DBMaxConnLifetime time.Duration
	DBAcquireTimeout  time.Duration
	DBRequireTLS      bool
}

// Load reads configuration from environment variables and returns it,
// or an error if values are present but invalid.
//
// DATABASE_URL has no default. A missing connection string is reported by the
// pool manager at request time so that /health keeps answering.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:            sharedcfg.EnvOrDefault("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DefaultUsername: sharedcfg.EnvOrDefault("DEFAULT_USERNAME", "juan"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.RequestTimeout, err = parseDuration("REQUEST_TIMEOUT", "25s"); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout, err = parseDuration("PROBE_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.DBMaxConnLifetime, err = parseDuration("DB_MAX_CONN_LIFETIME", "300s"); err != nil {
		return nil, err
	}
	if cfg.DBAcquireTimeout, err = parseDuration("DB_ACQUIRE_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.DBMaxConns, err = parseInt("DB_MAX_CONNS", "4"); err != nil {
		return nil, err
	}
	if cfg.DBMinConns, err = parseInt("DB_MIN_CONNS", "0"); err != nil {
		return nil, err
	}
	if cfg.DBRequireTLS, err = strconv.ParseBool(sharedcfg.EnvOrDefault("DB_REQUIRE_TLS", "true")); err != nil {
		return nil, fmt.Errorf("invalid DB_REQUIRE_TLS: %w", err)
	}

	if cfg.DBMaxConns < 1 {
		return nil, errors.New("DB_MAX_CONNS must be at least 1")
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return nil, errors.New("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS")
	}
	if cfg.DefaultUsername == "" {
		return nil, errors.New("DEFAULT_USERNAME must not be empty")
	}

	return cfg, nil
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func parseInt(key, fallback string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
