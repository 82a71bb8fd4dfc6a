// Package handler exposes the billing summary over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"saas-control-plane/backend/internal/billing"
	"saas-control-plane/backend/internal/platform/httpx"
	"saas-control-plane/backend/internal/server/middleware"
)

// BillingService computes an organization's bill.
type BillingService interface {
	Get(ctx context.Context, userID, slug string) (*billing.Summary, error)
}

// Handler serves the billing endpoint.
type Handler struct {
	billing BillingService
}

// NewHandler returns a billing Handler.
func NewHandler(svc BillingService) *Handler {
	return &Handler{billing: svc}
}

type line struct {
	Amount int `json:"amount"`
	Unit   int `json:"unit"`
	Price  int `json:"price"`
}

type summary struct {
	Seats    line `json:"seats"`
	Projects line `json:"projects"`
	Total    int  `json:"total"`
}

// Get handles GET /organizations/{slug}/billing.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	s, err := h.billing.Get(r.Context(), userID, chi.URLParam(r, "slug"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"billing": summary{
		Seats:    line(s.Seats),
		Projects: line(s.Projects),
		Total:    s.Total,
	}})
}
