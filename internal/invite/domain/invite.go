package domain

import (
	"time"

	membershipdomain "saas-control-plane/backend/internal/membership/domain"
)

// Status is the lifecycle state of an invite. Only pending invites are visible to lookups.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusRevoked  Status = "revoked"
)

// Terminal reports whether s is a resolved state.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusRevoked
}

// Invite offers Email membership of OrgID with Role.
type Invite struct {
	ID         string
	Email      string
	Role       membershipdomain.Role
	OrgID      string
	AuthorID   string // empty when the author was deleted
	Status     Status
	CreatedAt  time.Time
	ResolvedAt *time.Time
	ResolvedBy string
}

// Author is the user who sent the invite.
type Author struct {
	ID        string
	Name      string
	AvatarURL string
}

// Details is an invite joined with what a recipient needs to decide on it.
type Details struct {
	Invite
	OrgName string
	OrgSlug string
	Author  *Author // nil when the author no longer exists
}
