// Package handler serves the liveness and readiness probes.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"saas-control-plane/backend/internal/platform/httpx"
)

const pingTimeout = 2 * time.Second

// Pinger checks that a dependency is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves /healthz and /readyz.
type Handler struct {
	db Pinger
}

// NewHandler returns a health Handler. db may be nil, in which case readiness only reports the process is up.
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

type statusResponse struct {
	Status string `json:"status"`
}

// Live handles GET /healthz.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// Ready handles GET /readyz. It answers 503 while the database is unreachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			slog.WarnContext(r.Context(), "readiness: database ping failed", slog.Any("error", err))
			httpx.WriteJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unavailable"})
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
