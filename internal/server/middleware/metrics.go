package middleware

import (
	"net/http"
	"time"

	"saas-control-plane/backend/internal/metrics"
)

// Metrics reports every request to rec, labeled by its route pattern rather than its path
// so slugs and ids do not explode label cardinality.
func Metrics(rec metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrap(w, r)
			next.ServeHTTP(ww, r)
			rec.RecordRequest(r.Method, routePattern(r), statusOf(ww), time.Since(start))
		})
	}
}
