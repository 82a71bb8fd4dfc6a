package audit

import "testing"

func TestParseRoute(t *testing.T) {
	tests := []struct {
		method, pattern  string
		action, resource string
	}{
		{"POST", "/organizations", "create", "organization"},
		{"PUT", "/organizations/{slug}", "update", "organization"},
		{"DELETE", "/organizations/{slug}", "shutdown", "organization"},
		{"PATCH", "/organizations/{slug}/owner", "transfer_ownership", "organization"},
		{"POST", "/organizations/{slug}/projects", "create", "project"},
		{"PUT", "/organizations/{slug}/projects/{projectID}", "update", "project"},
		{"DELETE", "/organizations/{slug}/projects/{projectID}", "delete", "project"},
		{"GET", "/organizations/{slug}/projects", "list", "project"},
		{"GET", "/organizations/{slug}/projects/{projectSlug}", "get", "project"},
		{"POST", "/organizations/{slug}/invites", "create", "invite"},
		{"DELETE", "/organizations/{slug}/invites/{inviteID}", "revoke", "invite"},
		{"POST", "/invites/{inviteID}/accept", "accept", "invite"},
		{"POST", "/invites/{inviteID}/reject", "reject", "invite"},
		{"PUT", "/organizations/{slug}/members/{memberID}", "role_changed", "user"},
		{"DELETE", "/organizations/{slug}/members/{memberID}", "user_removed", "user"},
		{"GET", "/organizations/{slug}/billing", "list", "billing"},
		{"post", "/organizations/{slug}/projects/", "create", "project"},
		{"GET", "/", "list", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.pattern, func(t *testing.T) {
			ar := ParseRoute(tt.method, tt.pattern)
			if ar.Action != tt.action {
				t.Errorf("action = %q, want %q", ar.Action, tt.action)
			}
			if ar.Resource != tt.resource {
				t.Errorf("resource = %q, want %q", ar.Resource, tt.resource)
			}
		})
	}
}
