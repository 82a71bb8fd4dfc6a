// Package middleware holds the chi middleware chain of the HTTP API: authentication, request
// logging, panic recovery, rate limiting, metrics, audit and telemetry.
package middleware

import (
	"context"
	"net"
	"net/http"
)

type contextKey struct{ name string }

var (
	userIDKey = contextKey{"user_id"}
	stateKey  = contextKey{"request_state"}
)

// requestState is shared by the whole middleware chain of one request. Outer middleware
// (logging, telemetry) sees the user id that Authenticate sets further in.
type requestState struct {
	clientIP string
	userID   string
}

// RequestState stores the client IP and an empty identity slot in the request context.
// Mount it first, after TrustedRealIP.
func RequestState(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := &requestState{clientIP: ClientIP(r)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), stateKey, st)))
	})
}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	if st, ok := ctx.Value(stateKey).(*requestState); ok {
		st.userID = userID
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id and true if set; otherwise "", false.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(userIDKey).(string); ok && v != "" {
		return v, true
	}
	if st, ok := ctx.Value(stateKey).(*requestState); ok && st.userID != "" {
		return st.userID, true
	}
	return "", false
}

// ClientIPFromContext returns the client IP stored by RequestState, or "".
// Its signature matches audit.IPExtractor.
func ClientIPFromContext(ctx context.Context) string {
	if st, ok := ctx.Value(stateKey).(*requestState); ok {
		return st.clientIP
	}
	return ""
}

// ClientIP returns the host part of r.RemoteAddr, or "unknown". Place TrustedRealIP before
// anything that calls it so headers from trusted proxies are honored.
func ClientIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
