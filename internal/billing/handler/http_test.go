package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"saas-control-plane/backend/internal/billing"
	"saas-control-plane/backend/internal/platform/apperr"
	"saas-control-plane/backend/internal/server/middleware"
)

type fakeBilling struct {
	summary *billing.Summary
	err     error
}

func (f fakeBilling) Get(ctx context.Context, userID, slug string) (*billing.Summary, error) {
	return f.summary, f.err
}

func serve(h *Handler) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/organizations/{slug}/billing", h.Get)
	req := httptest.NewRequest(http.MethodGet, "/organizations/acme/billing", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), "u-billing"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGet(t *testing.T) {
	rec := serve(NewHandler(fakeBilling{summary: &billing.Summary{
		Seats:    billing.Line{Amount: 3, Unit: 10, Price: 30},
		Projects: billing.Line{Amount: 2, Unit: 20, Price: 40},
		Total:    70,
	}}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := `{"billing":{"seats":{"amount":3,"unit":10,"price":30},"projects":{"amount":2,"unit":20,"price":40},"total":70}}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("body = %s, want %s", got, want)
	}
}

func TestGet_Forbidden(t *testing.T) {
	rec := serve(NewHandler(fakeBilling{err: apperr.Unauthorized("You're not allowed to get billing details from this organization.")}))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
