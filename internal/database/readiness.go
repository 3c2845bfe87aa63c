package database

import (
	"context"
	"fmt"
)

// PoolReadiness implements observability.ReadinessChecker on top of the manager.
type PoolReadiness struct {
	manager *Manager
}

// NewPoolReadiness returns a readiness checker backed by the given manager.
func NewPoolReadiness(m *Manager) *PoolReadiness {
	return &PoolReadiness{manager: m}
}

// CheckReadiness resolves the pool and pings the database.
func (p *PoolReadiness) CheckReadiness(ctx context.Context) error {
	state := p.manager.Pool(ctx)
	if state.Kind != Ready {
		return fmt.Errorf("pool %s: %w", state.Kind, state.Err)
	}
	return state.Pool.Ping(ctx)
}
