package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Pool is the process-wide connection pool. Connections are checked out for
// a single statement and returned; the pool itself is never replaced.
type Pool interface {
	Dialect() Dialect
	// QueryRow runs query and scans the first row into dest.
	// It returns ErrNoRows when the query matched nothing.
	QueryRow(ctx context.Context, query string, args []any, dest ...any) error
	// Ping checks out a connection and performs a round trip.
	Ping(ctx context.Context) error
	Close()
}

// driver builds pools and migration URLs for one dialect. Drivers register
// themselves from build-tagged files, so a binary built with -tags nomysql
// or -tags nopgx reports the dialect as unavailable.
type driver struct {
	open         func(ctx context.Context, cfg ConnectionConfig) (Pool, error)
	migrationURL func(cfg ConnectionConfig) (string, error)
}

var drivers = map[Dialect]driver{}

func registerDriver(d Dialect, drv driver) {
	drivers[d] = drv
}

func lookupDriver(d Dialect) (driver, bool) {
	drv, ok := drivers[d]
	return drv, ok
}

// openPool dispatches to the registered driver for cfg.Dialect.
func openPool(ctx context.Context, cfg ConnectionConfig) (Pool, error) {
	drv, ok := lookupDriver(cfg.Dialect)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDependencyUnavailable, cfg.Dialect)
	}
	return drv.open(ctx, cfg)
}

// sqlPool adapts a database/sql handle to Pool.
type sqlPool struct {
	db             *sql.DB
	dialect        Dialect
	acquireTimeout time.Duration
}

func (p *sqlPool) Dialect() Dialect { return p.dialect }

func (p *sqlPool) conn(ctx context.Context) (*sql.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()
	c, err := p.db.Conn(acquireCtx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return c, nil
}

func (p *sqlPool) QueryRow(ctx context.Context, query string, args []any, dest ...any) error {
	c, err := p.conn(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	err = c.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoRows
	}
	return err
}

func (p *sqlPool) Ping(ctx context.Context) error {
	c, err := p.conn(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.PingContext(ctx)
}

func (p *sqlPool) Close() {
	_ = p.db.Close()
}
