// Package service implements organization create, read, update, shutdown and ownership transfer.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	membershipdomain "saas-control-plane/backend/internal/membership/domain"
	"saas-control-plane/backend/internal/organization/domain"
	orgrepo "saas-control-plane/backend/internal/organization/repository"
	"saas-control-plane/backend/internal/platform/apperr"
	"saas-control-plane/backend/internal/platform/rbac"
	"saas-control-plane/backend/internal/platform/slug"
	"saas-control-plane/backend/internal/telemetry"
	telemetrydomain "saas-control-plane/backend/internal/telemetry/domain"
)

const msgDomainTaken = "Another organization with same domain already exists."

// OrgRepo is the organization persistence the service needs.
type OrgRepo interface {
	GetByDomain(ctx context.Context, domainName string) (*domain.Org, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.WithRole, error)
	CreateWithOwner(ctx context.Context, o *domain.Org, owner *membershipdomain.Membership) error
	Update(ctx context.Context, o *domain.Org) error
	Delete(ctx context.Context, id string) error
	TransferOwnership(ctx context.Context, orgID, fromUserID, toUserID string, at time.Time) error
}

// MembershipResolver resolves the acting user's membership in an organization.
type MembershipResolver interface {
	Resolve(ctx context.Context, userID, slug string) (*rbac.OrgMembership, error)
}

// Input carries the editable organization fields.
type Input struct {
	Name                      string
	Domain                    string
	ShouldAttachUsersByDomain bool
	AvatarURL                 string
}

func (in Input) normalized() Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Domain = strings.ToLower(strings.TrimSpace(in.Domain))
	in.AvatarURL = strings.TrimSpace(in.AvatarURL)
	return in
}

// Service implements organization operations.
type Service struct {
	orgs     OrgRepo
	resolver MembershipResolver
	emitter  telemetry.EventEmitter
	now      func() time.Time
}

// NewService returns an organization Service. emitter may be nil.
func NewService(orgs OrgRepo, resolver MembershipResolver, emitter telemetry.EventEmitter) *Service {
	return &Service{
		orgs:     orgs,
		resolver: resolver,
		emitter:  emitter,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create makes a new organization owned by userID, who gets an OWNER membership.
func (s *Service) Create(ctx context.Context, userID string, in Input) (*domain.Org, error) {
	in = in.normalized()
	if err := s.checkDomainFree(ctx, in.Domain, ""); err != nil {
		return nil, err
	}
	now := s.now()
	org := &domain.Org{
		ID:                        uuid.New().String(),
		Name:                      in.Name,
		Slug:                      slug.Make(in.Name),
		Domain:                    in.Domain,
		ShouldAttachUsersByDomain: in.ShouldAttachUsersByDomain,
		AvatarURL:                 in.AvatarURL,
		OwnerID:                   userID,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if err := org.Validate(); err != nil {
		return nil, apperr.BadRequest(err.Error())
	}
	owner := &membershipdomain.Membership{
		ID:        uuid.New().String(),
		UserID:    userID,
		OrgID:     org.ID,
		Role:      membershipdomain.RoleOwner,
		CreatedAt: now,
	}
	if err := s.orgs.CreateWithOwner(ctx, org, owner); err != nil {
		return nil, mapWriteErr("create organization", err)
	}
	telemetry.EmitAsync(ctx, s.emitter, telemetrydomain.NewEvent(telemetrydomain.EventOrgCreated, "organization", org.ID, userID, map[string]string{"slug": org.Slug}))
	return org, nil
}

// List returns the organizations userID belongs to, with the user's role in each.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.WithRole, error) {
	out, err := s.orgs.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("list organizations", err)
	}
	return out, nil
}

// Get returns the organization behind slug to any of its members.
func (s *Service) Get(ctx context.Context, userID, slug string) (*domain.Org, error) {
	om, err := s.resolver.Resolve(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	return om.Organization, nil
}

// GetMembership returns userID's membership in the organization behind slug.
func (s *Service) GetMembership(ctx context.Context, userID, slug string) (*membershipdomain.Membership, error) {
	om, err := s.resolver.Resolve(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	return om.Membership, nil
}

// Update changes the organization's name, domain, auto-attach flag and avatar. The slug is kept.
func (s *Service) Update(ctx context.Context, userID, slug string, in Input) (*domain.Org, error) {
	om, err := s.resolver.Resolve(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	if err := om.Ability().Authorize(rbac.ActionUpdate, om.OrgSubject(), "You're not allowed to update this organization."); err != nil {
		return nil, err
	}
	in = in.normalized()
	org := *om.Organization
	if err := s.checkDomainFree(ctx, in.Domain, org.ID); err != nil {
		return nil, err
	}
	org.Name = in.Name
	org.Domain = in.Domain
	org.ShouldAttachUsersByDomain = in.ShouldAttachUsersByDomain
	org.AvatarURL = in.AvatarURL
	org.UpdatedAt = s.now()
	if err := org.Validate(); err != nil {
		return nil, apperr.BadRequest(err.Error())
	}
	if err := s.orgs.Update(ctx, &org); err != nil {
		return nil, mapWriteErr("update organization", err)
	}
	return &org, nil
}

// Shutdown deletes the organization with its members, invites and projects.
func (s *Service) Shutdown(ctx context.Context, userID, slug string) error {
	om, err := s.resolver.Resolve(ctx, userID, slug)
	if err != nil {
		return err
	}
	if err := om.Ability().Authorize(rbac.ActionDelete, om.OrgSubject(), "You're not allowed to shutdown this organization."); err != nil {
		return err
	}
	if err := s.orgs.Delete(ctx, om.Organization.ID); err != nil {
		return apperr.Internal("delete organization", err)
	}
	telemetry.EmitAsync(ctx, s.emitter, telemetrydomain.NewEvent(telemetrydomain.EventOrgShutdown, "organization", om.Organization.ID, userID, nil))
	return nil
}

// TransferOwnership hands the organization to targetUserID, who must already be a member.
// The previous owner stays on as ADMIN.
func (s *Service) TransferOwnership(ctx context.Context, userID, slug, targetUserID string) error {
	om, err := s.resolver.Resolve(ctx, userID, slug)
	if err != nil {
		return err
	}
	if err := om.Ability().Authorize(rbac.ActionUpdate, om.OrgSubject(), "You're not allowed to transfer this organization ownership."); err != nil {
		return err
	}
	org := om.Organization
	if targetUserID == "" {
		return apperr.BadRequest("Transfer target is required.")
	}
	if targetUserID == org.OwnerID {
		return apperr.BadRequest("User already owns this organization.")
	}
	err = s.orgs.TransferOwnership(ctx, org.ID, org.OwnerID, targetUserID, s.now())
	if errors.Is(err, orgrepo.ErrTargetNotMember) {
		return apperr.BadRequest("Target user is not a member of this organization.")
	}
	if err != nil {
		return apperr.Internal("transfer ownership", err)
	}
	telemetry.EmitAsync(ctx, s.emitter, telemetrydomain.NewEvent(telemetrydomain.EventOwnerTransferred, "organization", org.ID, userID, map[string]string{
		"from_user_id": org.OwnerID,
		"to_user_id":   targetUserID,
	}))
	return nil
}

// checkDomainFree fails with Conflict when another organization than exceptID claims domainName.
func (s *Service) checkDomainFree(ctx context.Context, domainName, exceptID string) error {
	if domainName == "" {
		return nil
	}
	other, err := s.orgs.GetByDomain(ctx, domainName)
	if err != nil {
		return apperr.Internal("lookup organization by domain", err)
	}
	if other != nil && other.ID != exceptID {
		return apperr.Conflict(msgDomainTaken)
	}
	return nil
}

func mapWriteErr(op string, err error) error {
	switch {
	case errors.Is(err, orgrepo.ErrDomainTaken):
		return apperr.Conflict(msgDomainTaken)
	case errors.Is(err, orgrepo.ErrSlugTaken):
		return apperr.Conflict("Another organization with same name already exists.")
	}
	return apperr.Internal(op, err)
}
