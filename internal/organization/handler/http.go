// Package handler exposes organization management over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	membershipdomain "saas-control-plane/backend/internal/membership/domain"
	"saas-control-plane/backend/internal/organization/domain"
	"saas-control-plane/backend/internal/organization/service"
	"saas-control-plane/backend/internal/platform/httpx"
	"saas-control-plane/backend/internal/server/middleware"
)

// OrgService is the organization service surface used by the handlers.
type OrgService interface {
	Create(ctx context.Context, userID string, in service.Input) (*domain.Org, error)
	List(ctx context.Context, userID string) ([]*domain.WithRole, error)
	Get(ctx context.Context, userID, slug string) (*domain.Org, error)
	GetMembership(ctx context.Context, userID, slug string) (*membershipdomain.Membership, error)
	Update(ctx context.Context, userID, slug string, in service.Input) (*domain.Org, error)
	Shutdown(ctx context.Context, userID, slug string) error
	TransferOwnership(ctx context.Context, userID, slug, targetUserID string) error
}

// Handler serves the organization endpoints.
type Handler struct {
	orgs OrgService
}

// NewHandler returns an organization Handler.
func NewHandler(orgs OrgService) *Handler {
	return &Handler{orgs: orgs}
}

type orgRequest struct {
	Name                      string `json:"name"`
	Domain                    string `json:"domain"`
	ShouldAttachUsersByDomain bool   `json:"shouldAttachUsersByDomain"`
	AvatarURL                 string `json:"avatarUrl"`
}

func (req orgRequest) input() service.Input {
	return service.Input{
		Name:                      req.Name,
		Domain:                    req.Domain,
		ShouldAttachUsersByDomain: req.ShouldAttachUsersByDomain,
		AvatarURL:                 req.AvatarURL,
	}
}

type transferRequest struct {
	TransferToUserID string `json:"transferToUserId"`
}

type organization struct {
	ID                        string    `json:"id"`
	Name                      string    `json:"name"`
	Slug                      string    `json:"slug"`
	Domain                    *string   `json:"domain"`
	ShouldAttachUsersByDomain bool      `json:"shouldAttachUsersByDomain"`
	AvatarURL                 *string   `json:"avatarUrl"`
	OwnerID                   string    `json:"ownerId"`
	CreatedAt                 time.Time `json:"createdAt"`
	UpdatedAt                 time.Time `json:"updatedAt"`
}

func toOrganization(o *domain.Org) organization {
	return organization{
		ID:                        o.ID,
		Name:                      o.Name,
		Slug:                      o.Slug,
		Domain:                    httpx.Optional(o.Domain),
		ShouldAttachUsersByDomain: o.ShouldAttachUsersByDomain,
		AvatarURL:                 httpx.Optional(o.AvatarURL),
		OwnerID:                   o.OwnerID,
		CreatedAt:                 o.CreatedAt,
		UpdatedAt:                 o.UpdatedAt,
	}
}

type organizationWithRole struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Slug      string                `json:"slug"`
	AvatarURL *string               `json:"avatarUrl"`
	Role      membershipdomain.Role `json:"role"`
}

type membership struct {
	ID             string                `json:"id"`
	Role           membershipdomain.Role `json:"role"`
	UserID         string                `json:"userId"`
	OrganizationID string                `json:"organizationId"`
}

// Create handles POST /organizations.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var req orgRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	org, err := h.orgs.Create(r.Context(), userID, req.input())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"organizationId": org.ID, "slug": org.Slug})
}

// List handles GET /organizations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	orgs, err := h.orgs.List(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]organizationWithRole, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, organizationWithRole{
			ID:        o.ID,
			Name:      o.Name,
			Slug:      o.Slug,
			AvatarURL: httpx.Optional(o.AvatarURL),
			Role:      o.Role,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"organizations": out})
}

// Get handles GET /organizations/{slug}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	org, err := h.orgs.Get(r.Context(), userID, chi.URLParam(r, "slug"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"organization": toOrganization(org)})
}

// GetMembership handles GET /organizations/{slug}/membership.
func (h *Handler) GetMembership(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	m, err := h.orgs.GetMembership(r.Context(), userID, chi.URLParam(r, "slug"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"membership": membership{
		ID:             m.ID,
		Role:           m.Role,
		UserID:         m.UserID,
		OrganizationID: m.OrgID,
	}})
}

// Update handles PUT /organizations/{slug}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var req orgRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if _, err := h.orgs.Update(r.Context(), userID, chi.URLParam(r, "slug"), req.input()); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// Shutdown handles DELETE /organizations/{slug}.
func (h *Handler) Shutdown(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if err := h.orgs.Shutdown(r.Context(), userID, chi.URLParam(r, "slug")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// TransferOwnership handles PATCH /organizations/{slug}/owner.
func (h *Handler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.orgs.TransferOwnership(r.Context(), userID, chi.URLParam(r, "slug"), req.TransferToUserID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
