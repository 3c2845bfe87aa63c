package database

import (
	"fmt"
	"log/slog"
	"sync"
)

// CapabilityProbe reports whether the driver for a dialect is usable in this
// binary. The check runs at most once per process; the result is cached.
type CapabilityProbe struct {
	dialect Dialect
	logger  *slog.Logger
	lookup  func(Dialect) bool

	once sync.Once
	ok   bool
	err  error
}

// NewCapabilityProbe returns a probe for the given dialect's driver.
func NewCapabilityProbe(d Dialect, logger *slog.Logger) *CapabilityProbe {
	return &CapabilityProbe{
		dialect: d,
		logger:  logger,
		lookup: func(d Dialect) bool {
			_, ok := lookupDriver(d)
			return ok
		},
	}
}

// Dialect returns the dialect whose driver is probed.
func (p *CapabilityProbe) Dialect() Dialect { return p.dialect }

// Available reports whether the driver is usable. It never panics.
func (p *CapabilityProbe) Available() bool {
	p.once.Do(p.probe)
	return p.ok
}

// Err returns the cause recorded when the driver is unavailable, or nil.
func (p *CapabilityProbe) Err() error {
	p.once.Do(p.probe)
	return p.err
}

func (p *CapabilityProbe) probe() {
	defer func() {
		if r := recover(); r != nil {
			p.ok = false
			p.err = fmt.Errorf("%w: probing %s driver: %v", ErrDependencyUnavailable, p.dialect, r)
		}
		if !p.ok {
			p.logger.Warn("database driver unavailable", "dialect", p.dialect, "error", p.err)
		}
	}()

	if p.lookup(p.dialect) {
		p.ok = true
		return
	}
	p.err = fmt.Errorf("%w: %s driver is not compiled into this binary", ErrDependencyUnavailable, p.dialect)
}
