// Package handler exposes organization member management over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"saas-control-plane/backend/internal/membership/domain"
	"saas-control-plane/backend/internal/platform/httpx"
	"saas-control-plane/backend/internal/server/middleware"
)

// MemberService is the member service surface used by the handlers.
type MemberService interface {
	List(ctx context.Context, userID, slug string) ([]*domain.Member, error)
	UpdateRole(ctx context.Context, userID, slug, memberID string, role domain.Role) error
	Remove(ctx context.Context, userID, slug, memberID string) error
}

// Handler serves the member endpoints.
type Handler struct {
	members MemberService
}

// NewHandler returns a member Handler.
func NewHandler(members MemberService) *Handler {
	return &Handler{members: members}
}

type member struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Name      *string     `json:"name"`
	Email     string      `json:"email"`
	AvatarURL *string     `json:"avatarUrl"`
	Role      domain.Role `json:"role"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

// List handles GET /organizations/{slug}/members.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	members, err := h.members.List(r.Context(), userID, chi.URLParam(r, "slug"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]member, 0, len(members))
	for _, m := range members {
		out = append(out, member{
			ID:        m.ID,
			UserID:    m.UserID,
			Name:      httpx.Optional(m.Name),
			Email:     m.Email,
			AvatarURL: httpx.Optional(m.AvatarURL),
			Role:      m.Role,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"members": out})
}

// UpdateRole handles PUT /organizations/{slug}/members/{memberID}.
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	// Unknown roles are rejected by the service, after the permission check.
	if err := h.members.UpdateRole(r.Context(), userID, chi.URLParam(r, "slug"), chi.URLParam(r, "memberID"), domain.Role(req.Role)); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// Remove handles DELETE /organizations/{slug}/members/{memberID}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	if err := h.members.Remove(r.Context(), userID, chi.URLParam(r, "slug"), chi.URLParam(r, "memberID")); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
