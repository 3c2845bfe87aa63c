package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePool struct {
	dialect Dialect
	pingErr error
	closed  atomic.Bool
}

func (p *fakePool) Dialect() Dialect { return p.dialect }

func (p *fakePool) QueryRow(context.Context, string, []any, ...any) error { return ErrNoRows }

func (p *fakePool) Ping(context.Context) error { return p.pingErr }

func (p *fakePool) Close() { p.closed.Store(true) }

// countingOpener returns an opener that records how often it was invoked.
func countingOpener(pool Pool, err error, delay time.Duration) (func(context.Context, ConnectionConfig) (Pool, error), *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context, ConnectionConfig) (Pool, error) {
		calls.Add(1)
		time.Sleep(delay)
		if err != nil {
			return nil, err
		}
		return pool, nil
	}, &calls
}

func TestManager_MissingConfiguration(t *testing.T) {
	m := NewManager("", PoolOptions{}, discardLogger())
	open, calls := countingOpener(&fakePool{}, nil, 0)
	m.open = open

	state := m.Pool(context.Background())

	assert.Equal(t, Unavailable, state.Kind)
	require.ErrorIs(t, state.Err, ErrConfigurationMissing)
	assert.Contains(t, state.Err.Error(), "missing configuration")
	assert.Zero(t, calls.Load())
}

func TestManager_DriverUnavailable(t *testing.T) {
	m := NewManager("mysql://u:p@db/app", PoolOptions{}, discardLogger())
	m.probe.lookup = func(Dialect) bool { return false }
	open, calls := countingOpener(&fakePool{}, nil, 0)
	m.open = open

	state := m.Pool(context.Background())

	assert.Equal(t, Unavailable, state.Kind)
	require.ErrorIs(t, state.Err, ErrDependencyUnavailable)
	assert.Contains(t, state.Err.Error(), "driver unavailable")
	assert.Zero(t, calls.Load())
}

func TestManager_Ready(t *testing.T) {
	pool := &fakePool{dialect: DialectPostgres}
	m := NewManager("postgres://u:p@db/app", PoolOptions{}, discardLogger())
	open, _ := countingOpener(pool, nil, 0)
	m.open = open

	state := m.Pool(context.Background())

	assert.Equal(t, Ready, state.Kind)
	assert.Same(t, pool, state.Pool)
	assert.NoError(t, state.Err)
}

func TestManager_ConstructionErrorBecomesUnavailable(t *testing.T) {
	m := NewManager("postgres://u:p@db/app", PoolOptions{}, discardLogger())
	open, _ := countingOpener(nil, errors.New("bad sslmode"), 0)
	m.open = open

	state := m.Pool(context.Background())

	assert.Equal(t, Unavailable, state.Kind)
	assert.Contains(t, state.Err.Error(), "bad sslmode")
}

func TestManager_ConstructionPanicBecomesUnavailable(t *testing.T) {
	m := NewManager("postgres://u:p@db/app", PoolOptions{}, discardLogger())
	m.open = func(context.Context, ConnectionConfig) (Pool, error) { panic("boom") }

	var state PoolState
	require.NotPanics(t, func() { state = m.Pool(context.Background()) })
	assert.Equal(t, Unavailable, state.Kind)
	assert.Contains(t, state.Err.Error(), "boom")
}

func TestManager_Idempotent(t *testing.T) {
	for _, dsn := range []string{"", "postgres://u:p@db/app", "oracle://x"} {
		t.Run(dsn, func(t *testing.T) {
			m := NewManager(dsn, PoolOptions{}, discardLogger())
			open, calls := countingOpener(&fakePool{}, nil, 0)
			m.open = open

			first := m.Pool(context.Background())
			second := m.Pool(context.Background())

			assert.Equal(t, first, second)
			assert.LessOrEqual(t, calls.Load(), int32(1))
		})
	}
}

func TestManager_ConcurrentFirstUseBuildsOnce(t *testing.T) {
	pool := &fakePool{}
	m := NewManager("mysql://u:p@db/app", PoolOptions{}, discardLogger())
	open, calls := countingOpener(pool, nil, 20*time.Millisecond)
	m.open = open

	const n = 64
	start := make(chan struct{})
	states := make([]PoolState, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			states[i] = m.Pool(context.Background())
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, s := range states {
		assert.Equal(t, Ready, s.Kind)
		assert.Same(t, pool, s.Pool)
	}
}

func TestManager_CancelledCallerDoesNotPoisonConstruction(t *testing.T) {
	m := NewManager("mysql://u:p@db/app", PoolOptions{}, discardLogger())
	m.open = func(ctx context.Context, _ ConnectionConfig) (Pool, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &fakePool{}, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, Ready, m.Pool(ctx).Kind)
}

func TestManager_Close(t *testing.T) {
	pool := &fakePool{}
	m := NewManager("mysql://u:p@db/app", PoolOptions{}, discardLogger())
	open, _ := countingOpener(pool, nil, 0)
	m.open = open

	m.Close()
	assert.False(t, pool.closed.Load(), "close before use must not build a pool")

	m.Pool(context.Background())
	m.Close()
	assert.True(t, pool.closed.Load())
}

func TestPoolReadiness(t *testing.T) {
	m := NewManager("mysql://u:p@db/app", PoolOptions{}, discardLogger())
	open, _ := countingOpener(&fakePool{pingErr: errors.New("connection refused")}, nil, 0)
	m.open = open

	err := NewPoolReadiness(m).CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPoolReadiness_Unavailable(t *testing.T) {
	m := NewManager("", PoolOptions{}, discardLogger())

	err := NewPoolReadiness(m).CheckReadiness(context.Background())
	require.ErrorIs(t, err, ErrConfigurationMissing)
}
