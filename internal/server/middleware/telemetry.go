package middleware

import (
	"net/http"
	"time"

	"saas-control-plane/backend/internal/telemetry"
	telemetrydomain "saas-control-plane/backend/internal/telemetry/domain"
)

// httpRequestMetadata is the JSON shape of http_request event metadata.
type httpRequestMetadata struct {
	Method     string `json:"method"`
	Route      string `json:"route"`
	Status     int    `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// Telemetry emits an http_request event after each request. A nil emitter disables it.
// skipRoutes holds route patterns that are not reported, e.g. the probes.
func Telemetry(emitter telemetry.EventEmitter, skipRoutes map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if emitter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := wrap(w, r)
			next.ServeHTTP(ww, r)

			route := routePattern(r)
			if skipRoutes[route] {
				return
			}
			userID, _ := UserIDFromContext(r.Context())
			telemetry.EmitAsync(r.Context(), emitter, telemetrydomain.NewEvent(
				telemetrydomain.EventHTTPRequest, "http_middleware", "", userID,
				httpRequestMetadata{
					Method:     r.Method,
					Route:      route,
					Status:     statusOf(ww),
					DurationMs: time.Since(start).Milliseconds(),
					ClientIP:   ClientIP(r),
				},
			))
		})
	}
}
