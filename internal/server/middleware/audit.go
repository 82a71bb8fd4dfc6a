package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"saas-control-plane/backend/internal/audit"
	orgdomain "saas-control-plane/backend/internal/organization/domain"
)

// OrgLookup finds an organization by slug. A missing organization is (nil, nil).
type OrgLookup interface {
	GetBySlug(ctx context.Context, slug string) (*orgdomain.Org, error)
}

type auditTargetKey struct{}

// auditTarget is filled in by AuditOrg once routing has reached an organization subrouter.
type auditTarget struct {
	orgID string
	slug  string
}

type auditMetadata struct {
	Slug      string `json:"slug,omitempty"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
}

// Audit records every mutating request after it has been handled. The action and resource come
// from the route pattern; the organization is whatever AuditOrg captured, or the sentinel org.
// Denied requests (401, 403) always go to the sentinel org: the caller may not belong to the
// organization in the URL and must not be able to write into its log. Recording is best effort and never changes the response.
func Audit(logger audit.AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !mutating(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			target := &auditTarget{}
			r = r.WithContext(context.WithValue(r.Context(), auditTargetKey{}, target))
			ww := wrap(w, r)
			next.ServeHTTP(ww, r)

			userID, _ := UserIDFromContext(r.Context())
			ar := audit.ParseRoute(r.Method, routePattern(r))
			status := statusOf(ww)
			orgID := target.orgID
			if status == http.StatusUnauthorized || status == http.StatusForbidden {
				orgID = ""
			}
			meta, err := json.Marshal(auditMetadata{
				Slug:      target.slug,
				Status:    status,
				RequestID: chimw.GetReqID(r.Context()),
			})
			if err != nil {
				slog.WarnContext(r.Context(), "audit: marshal metadata", slog.Any("error", err))
				meta = []byte("{}")
			}
			logger.LogEvent(r.Context(), orgID, userID, ar.Action, ar.Resource, string(meta))
		})
	}
}

// AuditOrg resolves the {slug} URL parameter before the handler runs, so the audit entry still
// names the organization after a shutdown has deleted it. Mount it inside the
// "/organizations/{slug}" subrouter.
func AuditOrg(orgs OrgLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			target, ok := r.Context().Value(auditTargetKey{}).(*auditTarget)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			target.slug = chi.URLParam(r, "slug")
			if target.slug != "" {
				org, err := orgs.GetBySlug(r.Context(), target.slug)
				switch {
				case err != nil:
					slog.WarnContext(r.Context(), "audit: resolve organization",
						slog.String("slug", target.slug),
						slog.Any("error", err),
					)
				case org != nil:
					target.orgID = org.ID
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
