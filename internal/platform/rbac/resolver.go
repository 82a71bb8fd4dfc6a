package rbac

import (
	"context"

	membershipdomain "saas-control-plane/backend/internal/membership/domain"
	orgdomain "saas-control-plane/backend/internal/organization/domain"
	"saas-control-plane/backend/internal/platform/apperr"
)

// notMemberMessage is returned both for "no such organization" and "not a member of it".
const notMemberMessage = "You're not a member of this organization."

// MembershipFinder loads a user's membership together with the organization, looked up by slug.
// It returns (nil, nil, nil) when no membership row links the user to an org with that slug.
type MembershipFinder interface {
	GetByUserAndOrgSlug(ctx context.Context, userID, slug string) (*orgdomain.Org, *membershipdomain.Membership, error)
}

// OrgMembership is the resolved (organization, membership) pair for the current request.
type OrgMembership struct {
	Organization *orgdomain.Org
	Membership   *membershipdomain.Membership
}

// Ability returns the evaluator for the resolved member.
func (m *OrgMembership) Ability() Ability {
	return Evaluate(m.Membership.UserID, m.Membership.Role)
}

// OrgSubject returns the organization as an Instance for ownership rules.
func (m *OrgMembership) OrgSubject() Instance {
	return NewInstance(SubjectOrganization, m.Organization.ID, m.Organization.OwnerID)
}

// Resolver resolves memberships. It holds no cache: every call hits the store so role
// changes apply on the next request.
type Resolver struct {
	finder MembershipFinder
}

// NewResolver returns a Resolver backed by finder.
func NewResolver(finder MembershipFinder) *Resolver {
	return &Resolver{finder: finder}
}

// Resolve returns the organization and membership for userID in the org identified by slug.
// Returns an Unauthorized error when the user is missing or not a member; an Internal error on store failure.
func (r *Resolver) Resolve(ctx context.Context, userID, slug string) (*OrgMembership, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("Invalid auth token.")
	}
	if slug == "" {
		return nil, apperr.Unauthorized(notMemberMessage)
	}
	org, m, err := r.finder.GetByUserAndOrgSlug(ctx, userID, slug)
	if err != nil {
		return nil, apperr.Internal("resolve membership", err)
	}
	if org == nil || m == nil {
		return nil, apperr.Unauthorized(notMemberMessage)
	}
	return &OrgMembership{Organization: org, Membership: m}, nil
}
