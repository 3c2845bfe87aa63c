//go:build !nopgx

package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "github.com/golang-migrate/migrate/v4/database/postgres" // register postgres driver for migrate
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func init() {
	registerDriver(DialectPostgres, driver{open: openPostgres, migrationURL: postgresMigrationURL})
}

func openPostgres(ctx context.Context, cfg ConnectionConfig) (Pool, error) {
	poolConfig, err := pgxPoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return &pgxPool{pool: pool, acquireTimeout: cfg.AcquireTimeout}, nil
}

// postgresURL normalizes the scheme and forces sslmode=require unless a
// verifying mode was asked for.
func postgresURL(cfg ConnectionConfig) (*url.URL, error) {
	u, err := url.Parse(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", redact(err))
	}
	u.Scheme = "postgres"
	if cfg.RequireTLS {
		q := u.Query()
		switch q.Get("sslmode") {
		case "require", "verify-ca", "verify-full":
		default:
			q.Set("sslmode", "require")
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func pgxPoolConfig(cfg ConnectionConfig) (*pgxpool.Config, error) {
	u, err := postgresURL(cfg)
	if err != nil {
		return nil, err
	}
	poolConfig, err := pgxpool.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns) //nolint:gosec // bounded by config validation
	poolConfig.MinConns = int32(cfg.MinConns) //nolint:gosec // bounded by config validation
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	// Runs on every checkout. A connection that fails the ping is destroyed
	// and the pool hands out another one.
	poolConfig.PrepareConn = func(ctx context.Context, conn *pgx.Conn) (bool, error) {
		return conn.Ping(ctx) == nil, nil
	}
	return poolConfig, nil
}

func postgresMigrationURL(cfg ConnectionConfig) (string, error) {
	u, err := postgresURL(cfg)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

type pgxPool struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

func (p *pgxPool) Dialect() Dialect { return DialectPostgres }

func (p *pgxPool) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()
	conn, err := p.pool.Acquire(acquireCtx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return conn, nil
}

func (p *pgxPool) QueryRow(ctx context.Context, query string, args []any, dest ...any) error {
	conn, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	err = conn.QueryRow(ctx, query, args...).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRows
	}
	return err
}

func (p *pgxPool) Ping(ctx context.Context) error {
	conn, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()
	return conn.Ping(ctx)
}

func (p *pgxPool) Close() {
	p.pool.Close()
}
