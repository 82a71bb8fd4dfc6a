// Package httpx holds the JSON request and response helpers shared by HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"saas-control-plane/backend/internal/platform/apperr"
)

// maxBodyBytes caps request bodies. Every payload this API accepts is a handful of fields.
const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes v as JSON with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("httpx: encode response", slog.Any("error", err))
	}
}

// NoContent writes 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// DecodeJSON reads the request body into dst. A malformed or oversized body is a BadRequest.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperr.BadRequest("Request body is required.")
		case errors.As(err, &maxErr):
			return apperr.BadRequest("Request body is too large.")
		default:
			return apperr.BadRequest("Request body must be valid JSON.")
		}
	}
	return nil
}

// StatusOf maps an error kind to its HTTP status. NotFound is reported as 400 because
// the ids it refers to are opaque to callers.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindBadRequest, apperr.KindNotFound:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as an ErrorBody. Internal errors are logged and replaced with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		slog.ErrorContext(r.Context(), "internal server error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.Any("error", err),
		)
	}
	WriteJSON(w, StatusOf(kind), ErrorBody{Code: kind.String(), Message: apperr.MessageOf(err)})
}

// Optional returns nil for "" so unset columns render as JSON null.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
