// Package handler exposes an organization's audit trail over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"saas-control-plane/backend/internal/audit/domain"
	"saas-control-plane/backend/internal/platform/apperr"
	"saas-control-plane/backend/internal/platform/httpx"
	"saas-control-plane/backend/internal/server/middleware"
)

// AuditService lists audit entries.
type AuditService interface {
	List(ctx context.Context, userID, slug string, limit, offset int) ([]*domain.AuditLog, error)
}

// Handler serves the audit log endpoint.
type Handler struct {
	logs AuditService
}

// NewHandler returns an audit Handler.
func NewHandler(logs AuditService) *Handler {
	return &Handler{logs: logs}
}

type entry struct {
	ID        string          `json:"id"`
	UserID    *string         `json:"userId"`
	Action    string          `json:"action"`
	Resource  string          `json:"resource"`
	IP        string          `json:"ip"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// List handles GET /organizations/{slug}/audit-logs?limit=&offset=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.CurrentUser(w, r)
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	logs, err := h.logs.List(r.Context(), userID, chi.URLParam(r, "slug"), limit, offset)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]entry, 0, len(logs))
	for _, l := range logs {
		e := entry{
			ID:        l.ID,
			UserID:    httpx.Optional(l.UserID),
			Action:    l.Action,
			Resource:  l.Resource,
			IP:        l.IP,
			CreatedAt: l.CreatedAt,
		}
		if json.Valid([]byte(l.Metadata)) {
			e.Metadata = json.RawMessage(l.Metadata)
		}
		out = append(out, e)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"auditLogs": out})
}

// queryInt parses an optional non-negative integer query parameter. Absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.BadRequest("Query parameter " + name + " must be a non-negative integer.")
	}
	return n, nil
}
