package domain

import "time"

// AuditLog records one mutating request made against an organization.
// OrgID is SentinelOrgID in the audit package when the organization could not be determined.
type AuditLog struct {
	ID        string
	OrgID     string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string // JSON
	CreatedAt time.Time
}
