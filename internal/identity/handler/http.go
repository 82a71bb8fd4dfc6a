// Package handler exposes account, session and password recovery endpoints over HTTP.
package handler

import (
	"context"
	"net/http"

	"saas-control-plane/backend/internal/platform/httpx"
	"saas-control-plane/backend/internal/server/middleware"
	userdomain "saas-control-plane/backend/internal/user/domain"
)

// AuthService is the identity service surface used by the handlers.
type AuthService interface {
	CreateAccount(ctx context.Context, name, email, password string) (*userdomain.User, error)
	AuthenticateWithPassword(ctx context.Context, email, password string) (string, error)
	AuthenticateWithGitHub(ctx context.Context, code string) (string, error)
	GetProfile(ctx context.Context, userID string) (*userdomain.User, error)
	RequestPasswordRecover(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, code, password string) error
}

// Handler serves the identity endpoints.
type Handler struct {
	auth AuthService
}

// NewHandler returns an identity Handler.
func NewHandler(auth AuthService) *Handler {
	return &Handler{auth: auth}
}

type createAccountRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createAccountResponse struct {
	UserID string `json:"userId"`
}

type passwordSessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type githubSessionRequest struct {
	Code string `json:"code"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type recoverRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

type profile struct {
	ID        string  `json:"id"`
	Name      *string `json:"name"`
	Email     string  `json:"email"`
	AvatarURL *string `json:"avatarUrl"`
}

type profileResponse struct {
	User profile `json:"user"`
}

// CreateAccount handles POST /users.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	u, err := h.auth.CreateAccount(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, createAccountResponse{UserID: u.ID})
}

// AuthenticateWithPassword handles POST /sessions/password.
func (h *Handler) AuthenticateWithPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordSessionRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	token, err := h.auth.AuthenticateWithPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, tokenResponse{Token: token})
}

// AuthenticateWithGitHub handles POST /sessions/github.
func (h *Handler) AuthenticateWithGitHub(w http.ResponseWriter, r *http.Request) {
	var req githubSessionRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	token, err := h.auth.AuthenticateWithGitHub(r.Context(), req.Code)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, tokenResponse{Token: token})
}

// GetProfile handles GET /profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	u, err := h.auth.GetProfile(r.Context(), userID)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profileResponse{User: profile{
		ID:        u.ID,
		Name:      httpx.Optional(u.Name),
		Email:     u.Email,
		AvatarURL: httpx.Optional(u.AvatarURL),
	}})
}

// RequestPasswordRecover handles POST /password/recover. It answers 201 whether or not the
// email belongs to an account.
func (h *Handler) RequestPasswordRecover(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.auth.RequestPasswordRecover(r.Context(), req.Email); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// ResetPassword handles POST /password/reset.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.auth.ResetPassword(r.Context(), req.Code, req.Password); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
