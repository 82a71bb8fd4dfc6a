// Package server assembles the HTTP API: the chi router, its middleware chain and the route table.
package server

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"saas-control-plane/backend/internal/audit"
	audithandler "saas-control-plane/backend/internal/audit/handler"
	billinghandler "saas-control-plane/backend/internal/billing/handler"
	healthhandler "saas-control-plane/backend/internal/health/handler"
	identityhandler "saas-control-plane/backend/internal/identity/handler"
	invitehandler "saas-control-plane/backend/internal/invite/handler"
	membershiphandler "saas-control-plane/backend/internal/membership/handler"
	"saas-control-plane/backend/internal/metrics"
	organizationhandler "saas-control-plane/backend/internal/organization/handler"
	"saas-control-plane/backend/internal/platform/httpx"
	projecthandler "saas-control-plane/backend/internal/project/handler"
	"saas-control-plane/backend/internal/server/middleware"
	"saas-control-plane/backend/internal/telemetry"
)

// Deps holds everything the router mounts.
type Deps struct {
	Logger      *slog.Logger
	ServiceName string
	Tokens      middleware.TokenValidator

	Identity      *identityhandler.Handler
	Organizations *organizationhandler.Handler
	Members       *membershiphandler.Handler
	Invites       *invitehandler.Handler
	Projects      *projecthandler.Handler
	Billing       *billinghandler.Handler
	AuditLogs     *audithandler.Handler
	Health        *healthhandler.Handler

	// AuditLogger and Orgs enable audit logging of mutating requests. Either may be nil to disable it.
	AuditLogger audit.AuditLogger
	Orgs        middleware.OrgLookup
	// TrustedProxies are the peers whose X-Forwarded-For, X-Real-IP or True-Client-IP is honored.
	TrustedProxies []netip.Prefix
	// AuthLimiter throttles the unauthenticated auth routes per client IP. Nil disables it.
	AuthLimiter *middleware.RateLimiter
	// Metrics records request metrics; MetricsHandler serves them on /metrics. Both may be nil.
	Metrics        metrics.Recorder
	MetricsHandler http.Handler
	// Emitter receives an http_request event per request. Nil disables it.
	Emitter telemetry.EventEmitter
}

// probeRoutes are left out of telemetry events.
var probeRoutes = map[string]bool{"/healthz": true, "/readyz": true, "/metrics": true}

// NewRouter returns the API handler.
//
// Route table:
//   - public:        /users, /sessions/*, /password/*, GET /invites/{inviteID}, probes, /metrics
//   - authenticated: /profile, /pending-invites, invite accept/reject, /organizations/...
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := d.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}
	serviceName := d.ServiceName
	if serviceName == "" {
		serviceName = "saas-api"
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.TrustedRealIP(d.TrustedProxies))
	r.Use(middleware.RequestState)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery)
	r.Use(otelhttp.NewMiddleware(serviceName))
	r.Use(middleware.Metrics(rec))
	r.Use(middleware.Telemetry(d.Emitter, probeRoutes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorBody{Code: "not_found", Message: "Route not found."})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusMethodNotAllowed, httpx.ErrorBody{Code: "method_not_allowed", Message: "Method not allowed."})
	})

	r.Get("/healthz", d.Health.Live)
	r.Get("/readyz", d.Health.Ready)
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	// Public auth routes.
	r.Group(func(r chi.Router) {
		if d.AuthLimiter != nil {
			r.Use(d.AuthLimiter.Middleware)
		}
		r.Post("/users", d.Identity.CreateAccount)
		r.Post("/sessions/password", d.Identity.AuthenticateWithPassword)
		r.Post("/sessions/github", d.Identity.AuthenticateWithGitHub)
		r.Post("/password/recover", d.Identity.RequestPasswordRecover)
		r.Post("/password/reset", d.Identity.ResetPassword)
	})
	r.Get("/invites/{inviteID}", d.Invites.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(d.Tokens))
		auditing := d.AuditLogger != nil && d.Orgs != nil
		if auditing {
			r.Use(middleware.Audit(d.AuditLogger))
		}

		r.Get("/profile", d.Identity.GetProfile)
		r.Get("/pending-invites", d.Invites.ListPending)
		r.Post("/invites/{inviteID}/accept", d.Invites.Accept)
		r.Post("/invites/{inviteID}/reject", d.Invites.Reject)

		r.Post("/organizations", d.Organizations.Create)
		r.Get("/organizations", d.Organizations.List)
		r.Route("/organizations/{slug}", func(r chi.Router) {
			if auditing {
				r.Use(middleware.AuditOrg(d.Orgs))
			}
			r.Get("/", d.Organizations.Get)
			r.Put("/", d.Organizations.Update)
			r.Delete("/", d.Organizations.Shutdown)
			r.Patch("/owner", d.Organizations.TransferOwnership)
			r.Get("/membership", d.Organizations.GetMembership)

			r.Get("/members", d.Members.List)
			r.Put("/members/{memberID}", d.Members.UpdateRole)
			r.Delete("/members/{memberID}", d.Members.Remove)

			r.Post("/invites", d.Invites.Create)
			r.Get("/invites", d.Invites.ListForOrg)
			r.Delete("/invites/{inviteID}", d.Invites.Revoke)

			r.Post("/projects", d.Projects.Create)
			r.Get("/projects", d.Projects.List)
			r.Get("/projects/{projectSlug}", d.Projects.Get)
			r.Put("/projects/{projectID}", d.Projects.Update)
			r.Delete("/projects/{projectID}", d.Projects.Delete)

			r.Get("/billing", d.Billing.Get)
			r.Get("/audit-logs", d.AuditLogs.List)
		})
	})

	return r
}
