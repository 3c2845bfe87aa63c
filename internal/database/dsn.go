package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Dialect identifies the relational store behind a connection string.
type Dialect string

// Supported dialects.
const (
	DialectMySQL    Dialect = "mysql"
	DialectPostgres Dialect = "postgres"
)

// DefaultDialect is assumed for capability checks when no connection string is configured.
const DefaultDialect = DialectMySQL

// DefaultPort returns the well-known TCP port for the dialect.
func (d Dialect) DefaultPort() int {
	if d == DialectPostgres {
		return 5432
	}
	return 3306
}

// PoolOptions bounds the pool built from a connection string.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	AcquireTimeout  time.Duration
	RequireTLS      bool
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.MaxConns <= 0 {
		o.MaxConns = 4
	}
	if o.MinConns < 0 || o.MinConns > o.MaxConns {
		o.MinConns = 0
	}
	if o.MaxConnLifetime <= 0 {
		o.MaxConnLifetime = 300 * time.Second
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = 5 * time.Second
	}
	return o
}

// ConnectionConfig is the parsed, immutable form of the configured connection string.
type ConnectionConfig struct {
	PoolOptions

	DSN      string
	Dialect  Dialect
	Host     string
	Port     int
	Database string
}

// Address returns host:port suitable for net.Dial.
func (c ConnectionConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DialectOf infers the dialect from the URL scheme. SQLAlchemy style driver
// suffixes ("mysql+pymysql", "postgresql+psycopg2") are accepted.
func DialectOf(dsn string) (Dialect, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", fmt.Errorf("%w: connection string is empty", ErrConfigurationMissing)
	}
	scheme, _, found := strings.Cut(dsn, "://")
	if !found {
		return "", fmt.Errorf("%w: connection string is not a URL", ErrUnsupportedDialect)
	}
	base, _, _ := strings.Cut(strings.ToLower(scheme), "+")
	switch base {
	case "mysql", "mariadb":
		return DialectMySQL, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, scheme)
}

// ParseConnectionConfig parses a URL connection string. The host is taken from
// the URL authority, so credentials containing separators and query parameters
// do not leak into it.
func ParseConnectionConfig(dsn string, opts PoolOptions) (ConnectionConfig, error) {
	dialect, err := DialectOf(dsn)
	if err != nil {
		return ConnectionConfig{}, err
	}
	u, err := url.Parse(strings.TrimSpace(dsn))
	if err != nil {
		return ConnectionConfig{}, fmt.Errorf("parse connection string: %w", redact(err))
	}
	host := u.Hostname()
	if host == "" {
		return ConnectionConfig{}, fmt.Errorf("parse connection string: %w: no host", ErrConfigurationMissing)
	}
	port := dialect.DefaultPort()
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return ConnectionConfig{}, fmt.Errorf("parse connection string: invalid port %q", p)
		}
	}
	return ConnectionConfig{
		PoolOptions: opts.withDefaults(),
		DSN:         strings.TrimSpace(dsn),
		Dialect:     dialect,
		Host:        host,
		Port:        port,
		Database:    strings.TrimPrefix(u.Path, "/"),
	}, nil
}

// redact strips the input from a url.Error; it carries the password.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
