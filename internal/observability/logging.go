package observability

import (
	"log/slog"

	"github.com/couchcryptid/profile-api/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const serviceName = "profile-api"

// NewLogger creates a structured logger based on config and sets it as the default.
// Every record carries service=profile-api.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", serviceName)
	slog.SetDefault(logger)
	return logger
}
