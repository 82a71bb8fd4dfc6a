package domain

import (
	"errors"
	"strings"
	"time"

	membershipdomain "saas-control-plane/backend/internal/membership/domain"
)

// Org represents an organization (tenant). Slug is the external identifier; ID stays internal.
type Org struct {
	ID                        string
	Name                      string
	Slug                      string
	Domain                    string // empty when unset
	ShouldAttachUsersByDomain bool
	AvatarURL                 string
	OwnerID                   string
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Org) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return errors.New("name is required")
	}
	if o.Slug == "" {
		return errors.New("slug is required")
	}
	if o.OwnerID == "" {
		return errors.New("owner is required")
	}
	if o.ShouldAttachUsersByDomain && o.Domain == "" {
		return errors.New("domain is required to attach users by domain")
	}
	return nil
}

// AutoAttaches reports whether a user signing up with the given email domain joins this org automatically.
func (o *Org) AutoAttaches(emailDomain string) bool {
	return o.ShouldAttachUsersByDomain && o.Domain != "" && strings.EqualFold(o.Domain, emailDomain)
}

// WithRole is an organization as seen by one of its members.
type WithRole struct {
	Org
	Role membershipdomain.Role
}
