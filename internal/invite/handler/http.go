// Package handler exposes the invite lifecycle over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"saas-control-plane/backend/internal/invite/domain"
	membershipdomain "saas-control-plane/backend/internal/membership/domain"
	"saas-control-plane/backend/internal/platform/httpx"
	"saas-control-plane/backend/internal/server/middleware"
)

// InviteService is the invite service surface used by the handlers.
type InviteService interface {
	Create(ctx context.Context, userID, slug, email string, role membershipdomain.Role) (*domain.Invite, error)
	Get(ctx context.Context, inviteID string) (*domain.Details, error)
	ListPendingForUser(ctx context.Context, userID string) ([]*domain.Details, error)
	ListForOrg(ctx context.Context, userID, slug string) ([]*domain.Details, error)
	Accept(ctx context.Context, userID, inviteID string) error
	Reject(ctx context.Context, userID, inviteID string) error
	Revoke(ctx context.Context, userID, slug, inviteID string) error
}

// Handler serves the invite endpoints.
type Handler struct {
	invites InviteService
}

// NewHandler returns an invite Handler.
func NewHandler(invites InviteService) *Handler {
	return &Handler{invites: invites}
}

type createRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type author struct {
	ID        string  `json:"id"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
}

type organization struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type invite struct {
	ID           string                `json:"id"`
	Email        string                `json:"email"`
	Role         membershipdomain.Role `json:"role"`
	CreatedAt    time.Time             `json:"createdAt"`
	Organization organization          `json:"organization"`
	Author       *author               `json:"author"`
}

func toInvite(d *domain.Details) invite {
	out := invite{
		ID:           d.ID,
		Email:        d.Email,
		Role:         d.Role,
		CreatedAt:    d.CreatedAt,
		Organization: organization{Name: d.OrgName, Slug: d.OrgSlug},
	}
	if d.Author != nil {
		out.Author = &author{
			ID:        d.Author.ID,
			Name:      httpx.Optional(d.Author.Name),
			AvatarURL: httpx.Optional(d.Author.AvatarURL),
		}
	}
	return out
}

func toInvites(ds []*domain.Details) []invite {
	out := make([]invite, 0, len(ds))
	for _, d := range ds {
		out = append(out, toInvite(d))
	}
	return out
}

// Create handles POST /organizations/{slug}/invites.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	inv, err := h.invites.Create(r.Context(), userID, chi.URLParam(r, "slug"), req.Email, membershipdomain.Role(req.Role))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"inviteId": inv.ID})
}

// Get handles GET /invites/{inviteID}. It is public so a recipient can see the invite before signing up.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.invites.Get(r.Context(), chi.URLParam(r, "inviteID"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"invite": toInvite(d)})
}

// ListPending handles GET /pending-invites.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	ds, err := h.invites.ListPendingForUser(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"invites": toInvites(ds)})
}

// ListForOrg handles GET /organizations/{slug}/invites.
func (h *Handler) ListForOrg(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	ds, err := h.invites.ListForOrg(r.Context(), userID, chi.URLParam(r, "slug"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"invites": toInvites(ds)})
}

// Accept handles POST /invites/{inviteID}/accept.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if err := h.invites.Accept(r.Context(), userID, chi.URLParam(r, "inviteID")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// Reject handles POST /invites/{inviteID}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if err := h.invites.Reject(r.Context(), userID, chi.URLParam(r, "inviteID")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// Revoke handles DELETE /organizations/{slug}/invites/{inviteID}.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if err := h.invites.Revoke(r.Context(), userID, chi.URLParam(r, "slug"), chi.URLParam(r, "inviteID")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
