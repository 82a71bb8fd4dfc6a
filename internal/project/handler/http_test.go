package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"saas-control-plane/backend/internal/platform/apperr"
	"saas-control-plane/backend/internal/project/domain"
	"saas-control-plane/backend/internal/project/service"
	"saas-control-plane/backend/internal/server/middleware"
)

type fakeProjects struct {
	input   service.Input
	updated string
	deleted string
	err     error
}

func (f *fakeProjects) Create(ctx context.Context, userID, orgSlug string, in service.Input) (*domain.Project, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Project{ID: "p-1", Name: in.Name, Slug: "web-app", OwnerID: userID}, nil
}

func (f *fakeProjects) List(ctx context.Context, userID, orgSlug string) ([]*domain.WithOwner, error) {
	return nil, f.err
}

func (f *fakeProjects) GetBySlug(ctx context.Context, userID, orgSlug, projectSlug string) (*domain.WithOwner, error) {
	if projectSlug != "web-app" {
		return nil, apperr.NotFound("Project not found.")
	}
	return &domain.WithOwner{
		Project:   domain.Project{ID: "p-1", Name: "Web App", Slug: projectSlug, OrgID: "org-1", OwnerID: "u-1"},
		OwnerName: "Olivia",
	}, nil
}

func (f *fakeProjects) Update(ctx context.Context, userID, orgSlug, projectID string, in service.Input) (*domain.Project, error) {
	f.updated, f.input = projectID, in
	return &domain.Project{ID: projectID}, f.err
}

func (f *fakeProjects) Delete(ctx context.Context, userID, orgSlug, projectID string) error {
	f.deleted = projectID
	return f.err
}

func newRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUserID(req.Context(), "u-1")))
		})
	})
	r.Route("/organizations/{slug}/projects", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{projectSlug}", h.Get)
		r.Put("/{projectID}", h.Update)
		r.Delete("/{projectID}", h.Delete)
	})
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreate(t *testing.T) {
	svc := &fakeProjects{}
	rec := do(newRouter(NewHandler(svc)), http.MethodPost, "/organizations/acme/projects", `{"name":"Web App","description":"front"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"projectId":"p-1"`) || !strings.Contains(rec.Body.String(), `"slug":"web-app"`) {
		t.Errorf("body = %s", rec.Body)
	}
	if svc.input != (service.Input{Name: "Web App", Description: "front"}) {
		t.Errorf("input = %+v", svc.input)
	}
}

func TestCreate_Conflict(t *testing.T) {
	svc := &fakeProjects{err: apperr.Conflict("Another project with same name already exists in this organization.")}
	rec := do(newRouter(NewHandler(svc)), http.MethodPost, "/organizations/acme/projects", `{"name":"Web App"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestGetAndList(t *testing.T) {
	r := newRouter(NewHandler(&fakeProjects{}))

	rec := do(r, http.MethodGet, "/organizations/acme/projects/web-app", "")
	var body struct {
		Project struct {
			Slug           string `json:"slug"`
			OrganizationID string `json:"organizationId"`
			Owner          struct {
				ID   string  `json:"id"`
				Name *string `json:"name"`
			} `json:"owner"`
		} `json:"project"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	p := body.Project
	if p.Slug != "web-app" || p.OrganizationID != "org-1" || p.Owner.ID != "u-1" || p.Owner.Name == nil || *p.Owner.Name != "Olivia" {
		t.Errorf("project = %s", rec.Body)
	}

	if rec := do(r, http.MethodGet, "/organizations/acme/projects/missing", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("missing status = %d, want 400", rec.Code)
	}
	rec = do(r, http.MethodGet, "/organizations/acme/projects", "")
	if strings.TrimSpace(rec.Body.String()) != `{"projects":[]}` {
		t.Errorf("list = %s", rec.Body)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc := &fakeProjects{}
	r := newRouter(NewHandler(svc))

	if rec := do(r, http.MethodPut, "/organizations/acme/projects/p-1", `{"name":"Renamed"}`); rec.Code != http.StatusNoContent {
		t.Errorf("update status = %d", rec.Code)
	}
	if svc.updated != "p-1" || svc.input.Name != "Renamed" {
		t.Errorf("updated = %q %+v", svc.updated, svc.input)
	}
	if rec := do(r, http.MethodDelete, "/organizations/acme/projects/p-1", ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if svc.deleted != "p-1" {
		t.Errorf("deleted = %q", svc.deleted)
	}

	svc.err = apperr.Unauthorized("You're not allowed to delete this project.")
	if rec := do(r, http.MethodDelete, "/organizations/acme/projects/p-1", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("forbidden delete status = %d, want 401", rec.Code)
	}
}
