package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// StateKind tags a PoolState.
type StateKind int

// Pool lifecycle. The only transitions are Uninitialized → Ready and
// Uninitialized → Unavailable.
const (
	Uninitialized StateKind = iota
	Ready
	Unavailable
)

func (k StateKind) String() string {
	switch k {
	case Ready:
		return "ready"
	case Unavailable:
		return "unavailable"
	default:
		return "uninitialized"
	}
}

// PoolState is the resolved lifecycle state. Pool is set when Kind is Ready,
// Err when Kind is Unavailable.
type PoolState struct {
	Kind StateKind
	Pool Pool
	Err  error
}

// Manager lazily builds the single shared pool on first use.
type Manager struct {
	dsn    string
	opts   PoolOptions
	probe  *CapabilityProbe
	open   func(ctx context.Context, cfg ConnectionConfig) (Pool, error)
	logger *slog.Logger

	state atomic.Pointer[PoolState]
	group singleflight.Group
}

// NewManager returns a manager for dsn. Nothing is opened until Pool is called.
func NewManager(dsn string, opts PoolOptions, logger *slog.Logger) *Manager {
	dialect, err := DialectOf(dsn)
	if err != nil {
		dialect = DefaultDialect
	}
	return &Manager{
		dsn:    dsn,
		opts:   opts,
		probe:  NewCapabilityProbe(dialect, logger),
		open:   openPool,
		logger: logger,
	}
}

// Probe returns the capability probe consulted before construction.
func (m *Manager) Probe() *CapabilityProbe { return m.probe }

// Config parses the configured connection string.
func (m *Manager) Config() (ConnectionConfig, error) {
	return ParseConnectionConfig(m.dsn, m.opts)
}

// Pool returns the resolved state, constructing the pool on first call.
// Concurrent first callers share a single construction attempt.
func (m *Manager) Pool(ctx context.Context) PoolState {
	if s := m.state.Load(); s != nil {
		return *s
	}
	v, _, _ := m.group.Do("pool", func() (any, error) {
		if s := m.state.Load(); s != nil {
			return s, nil
		}
		s := m.resolve(context.WithoutCancel(ctx))
		m.state.Store(s)
		return s, nil
	})
	return *v.(*PoolState)
}

func (m *Manager) resolve(ctx context.Context) *PoolState {
	if !m.probe.Available() {
		return m.unavailable(m.probe.Err())
	}
	cfg, err := m.Config()
	if err != nil {
		return m.unavailable(err)
	}
	pool, err := m.build(ctx, cfg)
	if err != nil {
		return m.unavailable(err)
	}
	m.logger.Info("database pool ready",
		"dialect", cfg.Dialect,
		"host", cfg.Host,
		"port", cfg.Port,
		"max_conns", cfg.MaxConns,
		"max_conn_lifetime", cfg.MaxConnLifetime,
		"require_tls", cfg.RequireTLS,
	)
	return &PoolState{Kind: Ready, Pool: pool}
}

func (m *Manager) build(ctx context.Context, cfg ConnectionConfig) (pool Pool, err error) {
	defer func() {
		if r := recover(); r != nil {
			pool, err = nil, fmt.Errorf("build %s pool: panic: %v", cfg.Dialect, r)
		}
	}()
	pool, err = m.open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build %s pool: %w", cfg.Dialect, err)
	}
	return pool, nil
}

func (m *Manager) unavailable(err error) *PoolState {
	m.logger.Error("database pool unavailable", "error", err)
	return &PoolState{Kind: Unavailable, Err: err}
}

// Close releases the pool if one was built.
func (m *Manager) Close() {
	if s := m.state.Load(); s != nil && s.Kind == Ready {
		s.Pool.Close()
	}
}
