package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/profile-api/internal/database"
	"github.com/couchcryptid/profile-api/internal/model"
	"github.com/couchcryptid/profile-api/internal/observability"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"    // register mysql dialect
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // register postgres dialect
)

const profilesTable = "profiles"

// PoolProvider hands out the process-wide pool state.
type PoolProvider interface {
	Pool(ctx context.Context) database.PoolState
}

// Store provides read access to profiles.
type Store struct {
	pools   PoolProvider
	metrics *observability.Metrics
}

// New creates a Store backed by the given pool provider and metrics.
func New(p PoolProvider, m *observability.Metrics) *Store {
	return &Store{pools: p, metrics: m}
}

func (s *Store) observeQuery(operation string, start time.Time) {
	s.metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// FindByUsername returns the profile whose username equals username. No
// query is issued when the pool is unavailable.
func (s *Store) FindByUsername(ctx context.Context, username string) (res model.LookupResult) {
	defer func() { s.metrics.LookupResults.WithLabelValues(res.Status.String()).Inc() }()

	state := s.pools.Pool(ctx)
	if state.Kind != database.Ready {
		return model.Unconfigured(state.Err)
	}

	query, args, err := findByUsernameQuery(state.Pool.Dialect(), username)
	if err != nil {
		return model.StoreError(fmt.Errorf("build profile query: %w", err))
	}

	defer s.observeQuery("find_by_username", time.Now())
	var p model.Profile
	err = state.Pool.QueryRow(ctx, query, args, &p.ID, &p.Username, &p.FullName, &p.ProfilePhotoURL)
	switch {
	case errors.Is(err, database.ErrNoRows):
		return model.NotFound()
	case err != nil:
		return model.StoreError(fmt.Errorf("find profile: %w", err))
	}
	return model.Found(p)
}

// findByUsernameQuery builds the lookup with every value bound as a parameter.
func findByUsernameQuery(d database.Dialect, username string) (string, []any, error) {
	return goqu.Dialect(string(d)).
		From(profilesTable).
		Prepared(true).
		Select(
			goqu.C("id"),
			goqu.C("username"),
			goqu.COALESCE(goqu.C("full_name"), "").As("full_name"),
			goqu.COALESCE(goqu.C("profile_photo_url"), "").As("profile_photo_url"),
		).
		Where(goqu.C("username").Eq(username)).
		Limit(1).
		ToSQL()
}
