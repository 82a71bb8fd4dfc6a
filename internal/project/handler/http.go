// Package handler exposes project CRUD over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"saas-control-plane/backend/internal/platform/httpx"
	"saas-control-plane/backend/internal/project/domain"
	"saas-control-plane/backend/internal/project/service"
	"saas-control-plane/backend/internal/server/middleware"
)

// ProjectService is the project service surface used by the handlers.
type ProjectService interface {
	Create(ctx context.Context, userID, orgSlug string, in service.Input) (*domain.Project, error)
	List(ctx context.Context, userID, orgSlug string) ([]*domain.WithOwner, error)
	GetBySlug(ctx context.Context, userID, orgSlug, projectSlug string) (*domain.WithOwner, error)
	Update(ctx context.Context, userID, orgSlug, projectID string, in service.Input) (*domain.Project, error)
	Delete(ctx context.Context, userID, orgSlug, projectID string) error
}

// Handler serves the project endpoints.
type Handler struct {
	projects ProjectService
}

// NewHandler returns a project Handler.
func NewHandler(projects ProjectService) *Handler {
	return &Handler{projects: projects}
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatarUrl"`
}

func (req projectRequest) input() service.Input {
	return service.Input{Name: req.Name, Description: req.Description, AvatarURL: req.AvatarURL}
}

type owner struct {
	ID        string  `json:"id"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
}

type project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Slug           string    `json:"slug"`
	Description    string    `json:"description"`
	AvatarURL      *string   `json:"avatarUrl"`
	OrganizationID string    `json:"organizationId"`
	OwnerID        string    `json:"ownerId"`
	CreatedAt      time.Time `json:"createdAt"`
	Owner          owner     `json:"owner"`
}

func toProject(p *domain.WithOwner) project {
	return project{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		AvatarURL:      httpx.Optional(p.AvatarURL),
		OrganizationID: p.OrgID,
		OwnerID:        p.OwnerID,
		CreatedAt:      p.CreatedAt,
		Owner: owner{
			ID:        p.OwnerID,
			Name:      httpx.Optional(p.OwnerName),
			AvatarURL: httpx.Optional(p.OwnerAvatarURL),
		},
	}
}

// Create handles POST /organizations/{slug}/projects.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var req projectRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	p, err := h.projects.Create(r.Context(), userID, chi.URLParam(r, "slug"), req.input())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"projectId": p.ID, "slug": p.Slug})
}

// List handles GET /organizations/{slug}/projects.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	ps, err := h.projects.List(r.Context(), userID, chi.URLParam(r, "slug"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]project, 0, len(ps))
	for _, p := range ps {
		out = append(out, toProject(p))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"projects": out})
}

// Get handles GET /organizations/{slug}/projects/{projectSlug}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	p, err := h.projects.GetBySlug(r.Context(), userID, chi.URLParam(r, "slug"), chi.URLParam(r, "projectSlug"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"project": toProject(p)})
}

// Update handles PUT /organizations/{slug}/projects/{projectID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var req projectRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if _, err := h.projects.Update(r.Context(), userID, chi.URLParam(r, "slug"), chi.URLParam(r, "projectID"), req.input()); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// Delete handles DELETE /organizations/{slug}/projects/{projectID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if err := h.projects.Delete(r.Context(), userID, chi.URLParam(r, "slug"), chi.URLParam(r, "projectID")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
