package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/profile-api/internal/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig collects what NewRouter mounts.
type RouterConfig struct {
	Handler     *Handler
	Metrics     *observability.Metrics
	Readiness   observability.ReadinessChecker
	MaxInFlight int
	// ReadinessTimeout bounds /readyz; zero means five seconds.
	ReadinessTimeout time.Duration
	// Logger receives access logs; nil means slog.Default().
	Logger *slog.Logger
}

// NewRouter builds the HTTP surface. Routes that need the database share a
// concurrency limit; /health, /readyz and /metrics do not.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(observability.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.AllowAll().Handler)
	r.Use(observability.MetricsMiddleware(cfg.Metrics))

	r.Get("/health", Health)
	r.Get("/readyz", observability.ReadinessHandler(cfg.Readiness, cfg.ReadinessTimeout))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(ConcurrencyLimit(max(cfg.MaxInFlight, 1)))
		r.Get("/profile", cfg.Handler.Profile)
		r.Get("/profile/{username}", cfg.Handler.Profile)
		r.Get("/diag", cfg.Handler.Diag)
		r.Get("/diag-db", cfg.Handler.DiagDB)
	})
	return r
}
