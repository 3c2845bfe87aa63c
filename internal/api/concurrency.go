package api

import "net/http"

// ConcurrencyLimit restricts the number of concurrent requests that reach the
// connection pool. Requests over the limit get 503 instead of queueing on
// checkout. /health is mounted outside of it.
func ConcurrencyLimit(limit int) func(http.Handler) http.Handler {
	sem := make(chan struct{}, limit)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
				next.ServeHTTP(w, r)
			default:
				writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "busy", Detail: "server busy, try again"})
			}
		})
	}
}
