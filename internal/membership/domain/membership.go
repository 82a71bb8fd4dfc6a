package domain

import (
	"strings"
	"time"
)

// Membership links a user to an organization with a role. Unique per (user, org).
type Membership struct {
	ID        string
	UserID    string
	OrgID     string
	Role      Role
	CreatedAt time.Time
}

// Member is a membership joined with the user's profile, as listed on the members page.
type Member struct {
	Membership
	Name      string
	Email     string
	AvatarURL string
}

type Role string

const (
	RoleOwner   Role = "OWNER"
	RoleAdmin   Role = "ADMIN"
	RoleMember  Role = "MEMBER"
	RoleBilling Role = "BILLING"
)

// Roles lists every role in display order.
var Roles = []Role{RoleOwner, RoleAdmin, RoleMember, RoleBilling}

// ParseRole returns the role named by s (case-insensitive) and whether it is known.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}
