package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest("POST", "/invites/{inviteID}/accept", 200, 15*time.Millisecond)
	c.RecordRequest("POST", "/invites/{inviteID}/accept", 200, 5*time.Millisecond)
	c.RecordRequest("GET", "", 404, time.Millisecond)
	c.RecordAuthAttempt("password", false)
	c.RecordAuthAttempt("password", true)
	c.RecordInviteTransition("accepted")

	if got := testutil.ToFloat64(c.requests.WithLabelValues("POST", "/invites/{inviteID}/accept", "200")); got != 2 {
		t.Errorf("accept requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.requests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.authAttempts.WithLabelValues("password", "failure")); got != 1 {
		t.Errorf("auth failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.invites.WithLabelValues("accepted")); got != 1 {
		t.Errorf("accepted invites = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg).RecordInviteTransition("revoked")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `saas_invite_transitions_total{status="revoked"} 1`) {
		t.Errorf("scrape output missing invite counter:\n%s", body)
	}
}
