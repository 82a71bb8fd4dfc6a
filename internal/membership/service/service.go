// Package service lists organization members, changes their roles and removes them.
package service

import (
	"context"

	"saas-control-plane/backend/internal/membership/domain"
	"saas-control-plane/backend/internal/platform/apperr"
	"saas-control-plane/backend/internal/platform/rbac"
	"saas-control-plane/backend/internal/telemetry"
	telemetrydomain "saas-control-plane/backend/internal/telemetry/domain"
)

const msgMemberNotFound = "Member not found."

// MemberRepo is the membership persistence the service needs.
type MemberRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Membership, error)
	ListMembersByOrg(ctx context.Context, orgID string) ([]*domain.Member, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	Delete(ctx context.Context, id string) error
}

// MembershipResolver resolves the acting user's membership in an organization.
type MembershipResolver interface {
	Resolve(ctx context.Context, userID, slug string) (*rbac.OrgMembership, error)
}

// Service implements member management.
type Service struct {
	members  MemberRepo
	resolver MembershipResolver
	emitter  telemetry.EventEmitter
}

// NewService returns a member Service. emitter may be nil.
func NewService(members MemberRepo, resolver MembershipResolver, emitter telemetry.EventEmitter) *Service {
	return &Service{members: members, resolver: resolver, emitter: emitter}
}

// List returns the organization's members, owners first.
func (s *Service) List(ctx context.Context, userID, slug string) ([]*domain.Member, error) {
	om, err := s.resolver.Resolve(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	if err := om.Ability().Authorize(rbac.ActionGet, rbac.SubjectUser, "You're not allowed to see organization members."); err != nil {
		return nil, err
	}
	out, err := s.members.ListMembersByOrg(ctx, om.Organization.ID)
	if err != nil {
		return nil, apperr.Internal("list members", err)
	}
	return out, nil
}

// UpdateRole changes a member's role. Ownership moves only through ownership transfer.
func (s *Service) UpdateRole(ctx context.Context, userID, slug, memberID string, role domain.Role) error {
	om, err := s.resolver.Resolve(ctx, userID, slug)
	if err != nil {
		return err
	}
	if err := om.Ability().Authorize(rbac.ActionUpdate, rbac.SubjectUser, "You're not allowed to update this member."); err != nil {
		return err
	}
	role, ok := domain.ParseRole(string(role))
	if !ok {
		return apperr.BadRequest("Invalid role.")
	}
	if role == domain.RoleOwner {
		return apperr.BadRequest("Use ownership transfer to make a member the owner.")
	}
	target, err := s.loadMember(ctx, om, memberID)
	if err != nil {
		return err
	}
	if target.UserID == om.Organization.OwnerID {
		return apperr.BadRequest("The organization owner's role cannot be changed.")
	}
	if target.Role == role {
		return nil
	}
	if err := s.members.UpdateRole(ctx, target.ID, role); err != nil {
		return apperr.Internal("update member role", err)
	}
	telemetry.EmitAsync(ctx, s.emitter, telemetrydomain.NewEvent(telemetrydomain.EventMemberRoleChanged, "membership", om.Organization.ID, userID, map[string]string{
		"member_id": target.ID,
		"from":      string(target.Role),
		"to":        string(role),
	}))
	return nil
}

// Remove deletes a membership. The owner cannot be removed.
func (s *Service) Remove(ctx context.Context, userID, slug, memberID string) error {
	om, err := s.resolver.Resolve(ctx, userID, slug)
	if err != nil {
		return err
	}
	if err := om.Ability().Authorize(rbac.ActionDelete, rbac.SubjectUser, "You're not allowed to remove this member from organization."); err != nil {
		return err
	}
	target, err := s.loadMember(ctx, om, memberID)
	if err != nil {
		return err
	}
	if target.UserID == om.Organization.OwnerID {
		return apperr.BadRequest("The organization owner cannot be removed.")
	}
	if err := s.members.Delete(ctx, target.ID); err != nil {
		return apperr.Internal("remove member", err)
	}
	telemetry.EmitAsync(ctx, s.emitter, telemetrydomain.NewEvent(telemetrydomain.EventMemberRemoved, "membership", om.Organization.ID, userID, map[string]string{
		"member_id": target.ID,
		"user_id":   target.UserID,
	}))
	return nil
}

// loadMember loads memberID and checks it belongs to the resolved organization.
func (s *Service) loadMember(ctx context.Context, om *rbac.OrgMembership, memberID string) (*domain.Membership, error) {
	if memberID == "" {
		return nil, apperr.NotFound(msgMemberNotFound)
	}
	m, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, apperr.Internal("lookup member", err)
	}
	if m == nil || m.OrgID != om.Organization.ID {
		return nil, apperr.NotFound(msgMemberNotFound)
	}
	return m, nil
}
