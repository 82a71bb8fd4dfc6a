package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	membershipdomain "saas-control-plane/backend/internal/membership/domain"
	"saas-control-plane/backend/internal/organization/domain"
	"saas-control-plane/backend/internal/organization/service"
	"saas-control-plane/backend/internal/platform/apperr"
	"saas-control-plane/backend/internal/server/middleware"
)

type fakeOrgService struct {
	lastInput  service.Input
	transferTo string
	shutdown   []string
	err        error
}

func (f *fakeOrgService) Create(ctx context.Context, userID string, in service.Input) (*domain.Org, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Org{ID: "org-9", Name: in.Name, Slug: "rocket", OwnerID: userID}, nil
}

func (f *fakeOrgService) List(ctx context.Context, userID string) ([]*domain.WithRole, error) {
	return []*domain.WithRole{
		{Org: domain.Org{ID: "org-1", Name: "Acme", Slug: "acme"}, Role: membershipdomain.RoleAdmin},
	}, nil
}

func (f *fakeOrgService) Get(ctx context.Context, userID, slug string) (*domain.Org, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Org{ID: "org-1", Name: "Acme", Slug: slug, Domain: "acme.com", ShouldAttachUsersByDomain: true, OwnerID: "u-owner"}, nil
}

func (f *fakeOrgService) GetMembership(ctx context.Context, userID, slug string) (*membershipdomain.Membership, error) {
	return &membershipdomain.Membership{ID: "m-1", UserID: userID, OrgID: "org-1", Role: membershipdomain.RoleMember}, nil
}

func (f *fakeOrgService) Update(ctx context.Context, userID, slug string, in service.Input) (*domain.Org, error) {
	f.lastInput = in
	return &domain.Org{ID: "org-1", Name: in.Name, Slug: slug}, f.err
}

func (f *fakeOrgService) Shutdown(ctx context.Context, userID, slug string) error {
	f.shutdown = append(f.shutdown, slug)
	return f.err
}

func (f *fakeOrgService) TransferOwnership(ctx context.Context, userID, slug, targetUserID string) error {
	f.transferTo = targetUserID
	return f.err
}

func newRouter(h *Handler, userID string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if userID != "" {
				req = req.WithContext(middleware.WithUserID(req.Context(), userID))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/organizations", h.Create)
	r.Get("/organizations", h.List)
	r.Get("/organizations/{slug}", h.Get)
	r.Put("/organizations/{slug}", h.Update)
	r.Delete("/organizations/{slug}", h.Shutdown)
	r.Patch("/organizations/{slug}/owner", h.TransferOwnership)
	r.Get("/organizations/{slug}/membership", h.GetMembership)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreate(t *testing.T) {
	svc := &fakeOrgService{}
	rec := do(newRouter(NewHandler(svc), "u-1"), http.MethodPost, "/organizations",
		`{"name":"Rocket","domain":"rocket.io","shouldAttachUsersByDomain":true}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["organizationId"] != "org-9" || body["slug"] != "rocket" {
		t.Errorf("body = %v", body)
	}
	if svc.lastInput != (service.Input{Name: "Rocket", Domain: "rocket.io", ShouldAttachUsersByDomain: true}) {
		t.Errorf("input = %+v", svc.lastInput)
	}
}

func TestCreate_InvalidJSON(t *testing.T) {
	rec := do(newRouter(NewHandler(&fakeOrgService{}), "u-1"), http.MethodPost, "/organizations", `{"name":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListAndGet(t *testing.T) {
	r := newRouter(NewHandler(&fakeOrgService{}), "u-1")

	rec := do(r, http.MethodGet, "/organizations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Organizations []struct {
			Slug      string  `json:"slug"`
			Role      string  `json:"role"`
			AvatarURL *string `json:"avatarUrl"`
		} `json:"organizations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Organizations) != 1 || list.Organizations[0].Role != "ADMIN" || list.Organizations[0].AvatarURL != nil {
		t.Errorf("organizations = %+v", list.Organizations)
	}

	rec = do(r, http.MethodGet, "/organizations/acme", "")
	var got struct {
		Organization struct {
			Slug   string  `json:"slug"`
			Domain *string `json:"domain"`
		} `json:"organization"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Organization.Slug != "acme" || got.Organization.Domain == nil || *got.Organization.Domain != "acme.com" {
		t.Errorf("organization = %s", rec.Body)
	}

	rec = do(r, http.MethodGet, "/organizations/acme/membership", "")
	if !strings.Contains(rec.Body.String(), `"organizationId":"org-1"`) || !strings.Contains(rec.Body.String(), `"role":"MEMBER"`) {
		t.Errorf("membership = %s", rec.Body)
	}
}

func TestGet_NotMember(t *testing.T) {
	svc := &fakeOrgService{err: apperr.Unauthorized("You're not a member of this organization.")}
	rec := do(newRouter(NewHandler(svc), "u-1"), http.MethodGet, "/organizations/acme", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMutations(t *testing.T) {
	svc := &fakeOrgService{}
	r := newRouter(NewHandler(svc), "u-owner")

	if rec := do(r, http.MethodPut, "/organizations/acme", `{"name":"Acme Corp"}`); rec.Code != http.StatusNoContent {
		t.Errorf("update status = %d", rec.Code)
	}
	if svc.lastInput.Name != "Acme Corp" {
		t.Errorf("update input = %+v", svc.lastInput)
	}
	if rec := do(r, http.MethodPatch, "/organizations/acme/owner", `{"transferToUserId":"u-2"}`); rec.Code != http.StatusNoContent {
		t.Errorf("transfer status = %d", rec.Code)
	}
	if svc.transferTo != "u-2" {
		t.Errorf("transferTo = %q", svc.transferTo)
	}
	if rec := do(r, http.MethodDelete, "/organizations/acme", ""); rec.Code != http.StatusNoContent {
		t.Errorf("shutdown status = %d", rec.Code)
	}
	if len(svc.shutdown) != 1 || svc.shutdown[0] != "acme" {
		t.Errorf("shutdown = %v", svc.shutdown)
	}
}

func TestRequiresUser(t *testing.T) {
	rec := do(newRouter(NewHandler(&fakeOrgService{}), ""), http.MethodGet, "/organizations", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
