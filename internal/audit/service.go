package audit

import (
	"context"

	"saas-control-plane/backend/internal/audit/domain"
	"saas-control-plane/backend/internal/platform/apperr"
	"saas-control-plane/backend/internal/platform/rbac"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Lister reads audit entries of one organization.
type Lister interface {
	ListByOrg(ctx context.Context, orgID string, limit, offset int) ([]*domain.AuditLog, error)
}

// MembershipResolver resolves the acting user's membership in an organization.
type MembershipResolver interface {
	Resolve(ctx context.Context, userID, slug string) (*rbac.OrgMembership, error)
}

// Service exposes an organization's audit trail to the members allowed to manage it.
type Service struct {
	logs     Lister
	resolver MembershipResolver
}

// NewService returns an audit read Service.
func NewService(logs Lister, resolver MembershipResolver) *Service {
	return &Service{logs: logs, resolver: resolver}
}

// List returns a page of the organization's audit log, newest first. Reading the trail needs the
// same grant as updating the organization itself.
func (s *Service) List(ctx context.Context, userID, slug string, limit, offset int) ([]*domain.AuditLog, error) {
	om, err := s.resolver.Resolve(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	if err := om.Ability().Authorize(rbac.ActionUpdate, om.OrgSubject(), "You're not allowed to see the audit log of this organization."); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	offset = max(offset, 0)
	out, err := s.logs.ListByOrg(ctx, om.Organization.ID, limit, offset)
	if err != nil {
		return nil, apperr.Internal("list audit logs", err)
	}
	return out, nil
}
