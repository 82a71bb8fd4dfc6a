package middleware

import (
	"net/http"
	"strings"

	"saas-control-plane/backend/internal/platform/apperr"
	"saas-control-plane/backend/internal/platform/httpx"
)

const bearerPrefix = "bearer "

// TokenValidator validates an access token and returns its subject.
type TokenValidator interface {
	ValidateAccess(token string) (userID string, err error)
}

// Authenticate rejects requests without a valid Bearer access token and stores the
// token's user id in the request context.
func Authenticate(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r.Header.Get("Authorization"))
			if token == "" {
				httpx.WriteError(w, r, apperr.Unauthorized("Missing auth token."))
				return
			}
			userID, err := tokens.ValidateAccess(token)
			if err != nil || userID == "" {
				httpx.WriteError(w, r, apperr.Unauthorized("Invalid auth token."))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// extractBearer returns the token of an "Authorization: Bearer <token>" value, or "" if missing or malformed.
func extractBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

// CurrentUser returns the authenticated user id. When there is none it writes a 401 and
// returns false; handlers mounted behind Authenticate never hit that branch.
func CurrentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, r, apperr.Unauthorized("Invalid auth token."))
		return "", false
	}
	return userID, true
}
