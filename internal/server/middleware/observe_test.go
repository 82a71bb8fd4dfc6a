package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	orgdomain "saas-control-plane/backend/internal/organization/domain"
	telemetrydomain "saas-control-plane/backend/internal/telemetry/domain"
)

type recordedRequest struct {
	method, route string
	status        int
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeRecorder) RecordRequest(method, route string, status int, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{method, route, status})
}
func (f *fakeRecorder) RecordAuthAttempt(string, bool)  {}
func (f *fakeRecorder) RecordInviteTransition(string) {}

type auditEntry struct {
	orgID, userID, action, resource, metadata string
}

type fakeAuditLogger struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (f *fakeAuditLogger) LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditEntry{orgID, userID, action, resource, metadata})
}

type fakeOrgLookup struct{ orgs map[string]*orgdomain.Org }

func (f fakeOrgLookup) GetBySlug(ctx context.Context, slug string) (*orgdomain.Org, error) {
	return f.orgs[slug], nil
}

type chanEmitter chan *telemetrydomain.Event

func (c chanEmitter) Emit(ctx context.Context, e *telemetrydomain.Event) error {
	c <- e
	return nil
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	rec := &fakeRecorder{}
	r := chi.NewRouter()
	r.Use(Metrics(rec))
	r.Get("/organizations/{slug}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/organizations/acme", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if len(rec.requests) != 2 {
		t.Fatalf("requests = %+v", rec.requests)
	}
	if got := rec.requests[0]; got.route != "/organizations/{slug}" || got.status != http.StatusTeapot {
		t.Errorf("first = %+v", got)
	}
	if got := rec.requests[1]; got.status != http.StatusNotFound {
		t.Errorf("unmatched = %+v", got)
	}
}

func TestLogging_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(RequestState, Logging(logger))
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) })
	r.Get("/bad", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) })
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/bad", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("log lines = %d", len(lines))
	}
	wantLevels := []string{"INFO", "WARN", "ERROR"}
	for i, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if entry["level"] != wantLevels[i] || entry["msg"] != "http_request" {
			t.Errorf("line %d = %v", i, entry)
		}
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "kaboom") {
		t.Errorf("panic value leaked: %s", rec.Body.String())
	}
}

func TestAudit_RecordsMutatingRoutes(t *testing.T) {
	logger := &fakeAuditLogger{}
	orgs := fakeOrgLookup{orgs: map[string]*orgdomain.Org{"acme": {ID: "org-1", Slug: "acme"}}}

	r := chi.NewRouter()
	r.Use(RequestState)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), "user-1")))
		})
	})
	r.Use(Audit(logger))
	r.Get("/organizations", func(w http.ResponseWriter, r *http.Request) {})
	r.Post("/organizations", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })
	r.Route("/organizations/{slug}", func(r chi.Router) {
		r.Use(AuditOrg(orgs))
		r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
			// The org is gone by the time the audit entry is written.
			delete(orgs.orgs, "acme")
			w.WriteHeader(http.StatusNoContent)
		})
		r.Post("/projects", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/organizations", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/organizations", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/organizations/acme/projects", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/organizations/acme", nil))

	if len(logger.entries) != 3 {
		t.Fatalf("entries = %+v", logger.entries)
	}
	create := logger.entries[0]
	if create.orgID != "" || create.action != "create" || create.resource != "organization" || create.userID != "user-1" {
		t.Errorf("create = %+v", create)
	}
	project := logger.entries[1]
	if project.orgID != "org-1" || project.action != "create" || project.resource != "project" {
		t.Errorf("project = %+v", project)
	}
	var meta auditMetadata
	if err := json.Unmarshal([]byte(project.metadata), &meta); err != nil || meta.Slug != "acme" || meta.Status != http.StatusCreated {
		t.Errorf("metadata = %s (%v)", project.metadata, err)
	}
	shutdown := logger.entries[2]
	if shutdown.orgID != "org-1" || shutdown.action != "shutdown" {
		t.Errorf("shutdown = %+v", shutdown)
	}
}

func TestAudit_DeniedRequestsStayOutOfOrgLog(t *testing.T) {
	logger := &fakeAuditLogger{}
	orgs := fakeOrgLookup{orgs: map[string]*orgdomain.Org{"acme": {ID: "org-1", Slug: "acme"}}}

	r := chi.NewRouter()
	r.Use(RequestState)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), "outsider")))
		})
	})
	r.Use(Audit(logger))
	r.Route("/organizations/{slug}", func(r chi.Router) {
		r.Use(AuditOrg(orgs))
		r.Post("/projects", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) })
		r.Delete("/projects/{projectID}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) })
		r.Put("/projects/{projectID}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) })
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/organizations/acme/projects", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/organizations/acme/projects/p-1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/organizations/acme/projects/p-1", nil))

	if len(logger.entries) != 3 {
		t.Fatalf("entries = %+v", logger.entries)
	}
	for i, wantOrg := range []string{"", "", "org-1"} {
		e := logger.entries[i]
		if e.orgID != wantOrg {
			t.Errorf("entry %d orgID = %q, want %q", i, e.orgID, wantOrg)
		}
		var meta auditMetadata
		if err := json.Unmarshal([]byte(e.metadata), &meta); err != nil || meta.Slug != "acme" {
			t.Errorf("entry %d metadata = %s (%v)", i, e.metadata, err)
		}
	}
}

func TestTelemetry(t *testing.T) {
	events := make(chanEmitter, 2)
	r := chi.NewRouter()
	r.Use(Telemetry(events, map[string]bool{"/healthz": true}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/invites/{inviteID}", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/invites/abc", nil))

	select {
	case e := <-events:
		if e.EventType != telemetrydomain.EventHTTPRequest {
			t.Errorf("event type = %q", e.EventType)
		}
		var meta httpRequestMetadata
		if err := json.Unmarshal(e.Metadata, &meta); err != nil || meta.Route != "/invites/{inviteID}" || meta.Status != http.StatusOK {
			t.Errorf("metadata = %s (%v)", e.Metadata, err)
		}
	case <-time.After(time.Second):
		t.Fatal("no event emitted")
	}
	select {
	case e := <-events:
		t.Errorf("unexpected second event: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTelemetry_NilEmitterPassesThrough(t *testing.T) {
	called := false
	h := Telemetry(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("handler not called")
	}
}
