// Package billing summarizes what an organization is charged for seats and projects.
package billing

import (
	"context"

	membershipdomain "saas-control-plane/backend/internal/membership/domain"
	"saas-control-plane/backend/internal/platform/apperr"
	"saas-control-plane/backend/internal/platform/rbac"
)

// Unit prices. BILLING members do not take a seat.
const (
	SeatUnitPrice    = 10
	ProjectUnitPrice = 20
)

// Line is one billed item: Amount units at Unit each.
type Line struct {
	Amount int
	Unit   int
	Price  int
}

func newLine(amount, unit int) Line {
	return Line{Amount: amount, Unit: unit, Price: amount * unit}
}

// Summary is an organization's current bill.
type Summary struct {
	Seats    Line
	Projects Line
	Total    int
}

// MemberCounter counts the members of an organization.
type MemberCounter interface {
	CountByOrgExcludingRole(ctx context.Context, orgID string, role membershipdomain.Role) (int, error)
}

// ProjectCounter counts the projects of an organization.
type ProjectCounter interface {
	CountByOrg(ctx context.Context, orgID string) (int, error)
}

// MembershipResolver resolves the acting user's membership in an organization.
type MembershipResolver interface {
	Resolve(ctx context.Context, userID, slug string) (*rbac.OrgMembership, error)
}

// Service computes billing summaries.
type Service struct {
	members  MemberCounter
	projects ProjectCounter
	resolver MembershipResolver
}

// NewService returns a billing Service.
func NewService(members MemberCounter, projects ProjectCounter, resolver MembershipResolver) *Service {
	return &Service{members: members, projects: projects, resolver: resolver}
}

// Get returns the billing summary of the organization behind slug.
func (s *Service) Get(ctx context.Context, userID, slug string) (*Summary, error) {
	om, err := s.resolver.Resolve(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	if err := om.Ability().Authorize(rbac.ActionGet, rbac.SubjectBilling, "You're not allowed to get billing details from this organization."); err != nil {
		return nil, err
	}
	seats, err := s.members.CountByOrgExcludingRole(ctx, om.Organization.ID, membershipdomain.RoleBilling)
	if err != nil {
		return nil, apperr.Internal("count seats", err)
	}
	projects, err := s.projects.CountByOrg(ctx, om.Organization.ID)
	if err != nil {
		return nil, apperr.Internal("count projects", err)
	}
	sum := &Summary{
		Seats:    newLine(seats, SeatUnitPrice),
		Projects: newLine(projects, ProjectUnitPrice),
	}
	sum.Total = sum.Seats.Price + sum.Projects.Price
	return sum, nil
}
