package observability

import (
	"context"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const defaultReadinessTimeout = 5 * time.Second

// ReadinessChecker reports whether a dependency is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ReadinessHandler returns 200 when checker passes within timeout and 503
// otherwise. A non-positive timeout falls back to five seconds.
func ReadinessHandler(checker ReadinessChecker, timeout time.Duration) http.HandlerFunc {
	if timeout <= 0 {
		timeout = defaultReadinessTimeout
	}
	return sharedobs.ReadinessHandler(boundedChecker{checker: checker, timeout: timeout})
}

type boundedChecker struct {
	checker ReadinessChecker
	timeout time.Duration
}

func (b boundedChecker) CheckReadiness(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.checker.CheckReadiness(ctx)
}
