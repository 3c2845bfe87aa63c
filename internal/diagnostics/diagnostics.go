// Package diagnostics isolates which layer of the database connection is
// broken: the driver, the network path to the host, or the authenticated
// session. Stages run in order and stop at the first failure.
package diagnostics

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/couchcryptid/profile-api/internal/database"
	"github.com/couchcryptid/profile-api/internal/observability"
)

// DefaultTimeout bounds the reachability probe and the liveness query.
const DefaultTimeout = 5 * time.Second

// Capability reports whether the database driver is usable.
type Capability interface {
	Dialect() database.Dialect
	Available() bool
	Err() error
}

// Target exposes the configured connection and the shared pool.
type Target interface {
	Config() (database.ConnectionConfig, error)
	Pool(ctx context.Context) database.PoolState
}

// Resolver resolves host names; *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Dialer opens network connections; *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Option customizes a Diagnostics.
type Option func(*Diagnostics)

// WithResolver replaces the DNS resolver.
func WithResolver(r Resolver) Option { return func(d *Diagnostics) { d.resolver = r } }

// WithDialer replaces the TCP dialer.
func WithDialer(dl Dialer) Option { return func(d *Diagnostics) { d.dialer = dl } }

// WithTimeout overrides DefaultTimeout.
func WithTimeout(t time.Duration) Option { return func(d *Diagnostics) { d.timeout = t } }

// Diagnostics runs the three-stage connectivity check.
type Diagnostics struct {
	capability Capability
	target     Target
	resolver   Resolver
	dialer     Dialer
	timeout    time.Duration
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// New returns a Diagnostics using the system resolver and dialer.
func New(c Capability, t Target, m *observability.Metrics, logger *slog.Logger, opts ...Option) *Diagnostics {
	d := &Diagnostics{
		capability: c,
		target:     t,
		resolver:   net.DefaultResolver,
		dialer:     &net.Dialer{},
		timeout:    DefaultTimeout,
		metrics:    m,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes the stages in order and returns the report. It never panics;
// a panicking stage is reported as failed.
func (d *Diagnostics) Run(ctx context.Context) Report {
	r := Report{Dialect: d.capability.Dialect()}

	steps := []struct {
		stage Stage
		run   func(context.Context, *Report) StageResult
	}{
		{StageDriverPresence, d.driverPresence},
		{StageHostReachability, d.hostReachability},
		{StageAuthenticatedQuery, d.authenticatedQuery},
	}
	for _, step := range steps {
		res := d.guard(ctx, &r, step.stage, step.run)
		r.Stages = append(r.Stages, res)
		d.metrics.DiagnosticStages.WithLabelValues(string(res.Stage), string(res.Outcome)).Inc()
		if res.Outcome != OutcomeOK {
			d.logger.Warn("diagnostic stage failed", "stage", res.Stage, "host", res.Host, "error", res.Err)
			break
		}
	}
	return r
}

func (d *Diagnostics) guard(ctx context.Context, r *Report, stage Stage, run func(context.Context, *Report) StageResult) (res StageResult) {
	defer func() {
		if p := recover(); p != nil {
			res = StageResult{Stage: stage}.fail(fmt.Errorf("panic: %v", p))
		}
	}()
	return run(ctx, r)
}

func (d *Diagnostics) driverPresence(context.Context, *Report) StageResult {
	res := StageResult{Stage: StageDriverPresence, Outcome: OutcomeOK}
	if !d.capability.Available() {
		return res.fail(d.capability.Err())
	}
	return res
}

func (d *Diagnostics) hostReachability(ctx context.Context, r *Report) StageResult {
	res := StageResult{Stage: StageHostReachability, Outcome: OutcomeOK}
	cfg, err := d.target.Config()
	if err != nil {
		return res.fail(err)
	}
	r.Port = cfg.Port
	res.Host = cfg.Host

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	ip, err := d.resolve(ctx, cfg.Host)
	if err != nil {
		return res.fail(fmt.Errorf("%w: resolve %s: %w", database.ErrNetworkUnreachable, cfg.Host, err))
	}
	res.ResolvedIP = ip

	addr := net.JoinHostPort(ip, strconv.Itoa(cfg.Port))
	conn, err := d.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return res.fail(fmt.Errorf("%w: dial %s: %w", database.ErrNetworkUnreachable, addr, err))
	}
	_ = conn.Close()
	return res
}

// resolve returns the first IPv4 address for host, falling back to the first
// address of any family.
func (d *Diagnostics) resolve(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}
	addrs, err := d.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", fmt.Errorf("no addresses for %s", host)
	}
	for _, a := range addrs {
		if a.IP.To4() != nil {
			return a.IP.String(), nil
		}
	}
	return addrs[0].IP.String(), nil
}

func (d *Diagnostics) authenticatedQuery(ctx context.Context, _ *Report) StageResult {
	res := StageResult{Stage: StageAuthenticatedQuery, Outcome: OutcomeOK}
	state := d.target.Pool(ctx)
	if state.Kind != database.Ready {
		return res.fail(state.Err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var one int
	if err := state.Pool.QueryRow(ctx, "SELECT 1", nil, &one); err != nil {
		return res.fail(fmt.Errorf("%w: %w", database.ErrAuthOrProtocol, err))
	}
	return res
}
