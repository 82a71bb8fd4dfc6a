// Package service implements the invite lifecycle: create, read, accept, reject and revoke.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"saas-control-plane/backend/internal/invite/domain"
	inviterepo "saas-control-plane/backend/internal/invite/repository"
	membershipdomain "saas-control-plane/backend/internal/membership/domain"
	membershiprepo "saas-control-plane/backend/internal/membership/repository"
	"saas-control-plane/backend/internal/metrics"
	"saas-control-plane/backend/internal/platform/apperr"
	"saas-control-plane/backend/internal/platform/rbac"
	"saas-control-plane/backend/internal/telemetry"
	telemetrydomain "saas-control-plane/backend/internal/telemetry/domain"
	userdomain "saas-control-plane/backend/internal/user/domain"
)

const (
	msgInviteNotFound = "Invite not found or expired."
	msgWrongRecipient = "This invite belongs to another user."
)

// InviteRepo is the invite persistence the service needs.
type InviteRepo interface {
	Create(ctx context.Context, inv *domain.Invite) error
	GetPending(ctx context.Context, id string) (*domain.Invite, error)
	GetPendingDetails(ctx context.Context, id string) (*domain.Details, error)
	GetPendingByEmailAndOrg(ctx context.Context, email, orgID string) (*domain.Invite, error)
	ListPendingByOrg(ctx context.Context, orgID string) ([]*domain.Details, error)
	ListPendingByEmail(ctx context.Context, email string) ([]*domain.Details, error)
	Resolve(ctx context.Context, id string, status domain.Status, by string, at time.Time) error
	Accept(ctx context.Context, id string, m *membershipdomain.Membership, at time.Time) error
}

// MemberRepo answers membership questions about the invited email or user.
type MemberRepo interface {
	GetByUserAndOrg(ctx context.Context, userID, orgID string) (*membershipdomain.Membership, error)
	ExistsByOrgAndEmail(ctx context.Context, orgID, email string) (bool, error)
}

// UserRepo loads the acting user.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// MembershipResolver resolves the acting user's membership in an organization.
type MembershipResolver interface {
	Resolve(ctx context.Context, userID, slug string) (*rbac.OrgMembership, error)
}

// Service implements the invite lifecycle.
type Service struct {
	invites  InviteRepo
	members  MemberRepo
	users    UserRepo
	resolver MembershipResolver
	emitter  telemetry.EventEmitter
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewService returns an invite Service. emitter and rec may be nil.
func NewService(invites InviteRepo, members MemberRepo, users UserRepo, resolver MembershipResolver, emitter telemetry.EventEmitter, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		invites:  invites,
		members:  members,
		users:    users,
		resolver: resolver,
		emitter:  emitter,
		metrics:  rec,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create invites email to the organization behind slug with role.
func (s *Service) Create(ctx context.Context, userID, slug, email string, role membershipdomain.Role) (*domain.Invite, error) {
	om, err := s.resolver.Resolve(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	if err := om.Ability().Authorize(rbac.ActionCreate, rbac.SubjectInvite, "You're not allowed to create new invites."); err != nil {
		return nil, err
	}
	role, ok := membershipdomain.ParseRole(string(role))
	if !ok {
		return nil, apperr.BadRequest("Invalid role.")
	}
	if role == membershipdomain.RoleOwner {
		return nil, apperr.BadRequest("Ownership is transferred, not granted by invite.")
	}

	org := om.Organization
	email = userdomain.NormalizeEmail(email)
	if !userdomain.ValidEmail(email) {
		return nil, apperr.BadRequest("Invalid e-mail.")
	}
	if org.AutoAttaches(userdomain.EmailDomain(email)) {
		return nil, apperr.BadRequest("Users with " + org.Domain + " domain will join your organization automatically on login.")
	}

	pending, err := s.invites.GetPendingByEmailAndOrg(ctx, email, org.ID)
	if err != nil {
		return nil, apperr.Internal("lookup pending invite", err)
	}
	if pending != nil {
		return nil, apperr.Conflict("Another invite with same e-mail already exists.")
	}
	isMember, err := s.members.ExistsByOrgAndEmail(ctx, org.ID, email)
	if err != nil {
		return nil, apperr.Internal("lookup member", err)
	}
	if isMember {
		return nil, apperr.Conflict("A member with this e-mail already belongs to your organization.")
	}

	inv := &domain.Invite{
		ID:        uuid.New().String(),
		Email:     email,
		Role:      role,
		OrgID:     org.ID,
		AuthorID:  userID,
		Status:    domain.StatusPending,
		CreatedAt: s.now(),
	}
	if err := s.invites.Create(ctx, inv); err != nil {
		if errors.Is(err, inviterepo.ErrPendingExists) {
			return nil, apperr.Conflict("Another invite with same e-mail already exists.")
		}
		return nil, apperr.Internal("create invite", err)
	}
	s.record(ctx, telemetrydomain.EventInviteCreated, domain.StatusPending, inv, userID)
	return inv, nil
}

// Get returns a pending invite with its organization and author. It needs no authentication.
func (s *Service) Get(ctx context.Context, inviteID string) (*domain.Details, error) {
	if !validID(inviteID) {
		return nil, apperr.NotFound(msgInviteNotFound)
	}
	d, err := s.invites.GetPendingDetails(ctx, inviteID)
	if err != nil {
		return nil, apperr.Internal("get invite", err)
	}
	if d == nil {
		return nil, apperr.NotFound(msgInviteNotFound)
	}
	return d, nil
}

// ListPendingForUser returns the pending invites addressed to the user's email.
func (s *Service) ListPendingForUser(ctx context.Context, userID string) ([]*domain.Details, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out, err := s.invites.ListPendingByEmail(ctx, u.Email)
	if err != nil {
		return nil, apperr.Internal("list pending invites", err)
	}
	return out, nil
}

// ListForOrg returns the organization's pending invites.
func (s *Service) ListForOrg(ctx context.Context, userID, slug string) ([]*domain.Details, error) {
	om, err := s.resolver.Resolve(ctx, userID, slug)
	if err != nil {
		return nil, err
	}
	if err := om.Ability().Authorize(rbac.ActionGet, rbac.SubjectInvite, "You're not allowed to get organization invites."); err != nil {
		return nil, err
	}
	out, err := s.invites.ListPendingByOrg(ctx, om.Organization.ID)
	if err != nil {
		return nil, apperr.Internal("list invites", err)
	}
	return out, nil
}

// Accept adds the user to the invite's organization and marks the invite accepted, atomically.
func (s *Service) Accept(ctx context.Context, userID, inviteID string) error {
	inv, err := s.loadForRecipient(ctx, userID, inviteID)
	if err != nil {
		return err
	}
	existing, err := s.members.GetByUserAndOrg(ctx, userID, inv.OrgID)
	if err != nil {
		return apperr.Internal("lookup membership", err)
	}
	if existing != nil {
		return apperr.Conflict("You're already a member of this organization.")
	}

	now := s.now()
	m := &membershipdomain.Membership{
		ID:        uuid.New().String(),
		UserID:    userID,
		OrgID:     inv.OrgID,
		Role:      inv.Role,
		CreatedAt: now,
	}
	switch err := s.invites.Accept(ctx, inv.ID, m, now); {
	case errors.Is(err, inviterepo.ErrNotPending):
		return apperr.NotFound(msgInviteNotFound)
	case errors.Is(err, membershiprepo.ErrAlreadyMember):
		return apperr.Conflict("You're already a member of this organization.")
	case err != nil:
		return apperr.Internal("accept invite", err)
	}
	s.record(ctx, telemetrydomain.EventInviteAccepted, domain.StatusAccepted, inv, userID)
	return nil
}

// Reject declines the invite. No membership is created.
func (s *Service) Reject(ctx context.Context, userID, inviteID string) error {
	inv, err := s.loadForRecipient(ctx, userID, inviteID)
	if err != nil {
		return err
	}
	if err := s.resolve(ctx, inv, domain.StatusRejected, userID); err != nil {
		return err
	}
	s.record(ctx, telemetrydomain.EventInviteRejected, domain.StatusRejected, inv, userID)
	return nil
}

// Revoke withdraws a pending invite of the organization behind slug.
func (s *Service) Revoke(ctx context.Context, userID, slug, inviteID string) error {
	om, err := s.resolver.Resolve(ctx, userID, slug)
	if err != nil {
		return err
	}
	if err := om.Ability().Authorize(rbac.ActionDelete, rbac.SubjectInvite, "You're not allowed to revoke invites."); err != nil {
		return err
	}
	inv, err := s.loadPending(ctx, inviteID)
	if err != nil {
		return err
	}
	if inv.OrgID != om.Organization.ID {
		return apperr.NotFound(msgInviteNotFound)
	}
	if err := s.resolve(ctx, inv, domain.StatusRevoked, userID); err != nil {
		return err
	}
	s.record(ctx, telemetrydomain.EventInviteRevoked, domain.StatusRevoked, inv, userID)
	return nil
}

func (s *Service) resolve(ctx context.Context, inv *domain.Invite, status domain.Status, by string) error {
	err := s.invites.Resolve(ctx, inv.ID, status, by, s.now())
	if errors.Is(err, inviterepo.ErrNotPending) {
		return apperr.NotFound(msgInviteNotFound)
	}
	if err != nil {
		return apperr.Internal("resolve invite", err)
	}
	return nil
}

// loadForRecipient loads a pending invite and checks that it is addressed to userID's email.
func (s *Service) loadForRecipient(ctx context.Context, userID, inviteID string) (*domain.Invite, error) {
	inv, err := s.loadPending(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if userdomain.NormalizeEmail(u.Email) != inv.Email {
		return nil, apperr.BadRequest(msgWrongRecipient)
	}
	return inv, nil
}

func (s *Service) loadPending(ctx context.Context, inviteID string) (*domain.Invite, error) {
	if !validID(inviteID) {
		return nil, apperr.NotFound(msgInviteNotFound)
	}
	inv, err := s.invites.GetPending(ctx, inviteID)
	if err != nil {
		return nil, apperr.Internal("get invite", err)
	}
	if inv == nil {
		return nil, apperr.NotFound(msgInviteNotFound)
	}
	return inv, nil
}

func (s *Service) loadUser(ctx context.Context, userID string) (*userdomain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("lookup user", err)
	}
	if u == nil {
		return nil, apperr.BadRequest("User not found.")
	}
	return u, nil
}

func (s *Service) record(ctx context.Context, eventType string, status domain.Status, inv *domain.Invite, actorID string) {
	s.metrics.RecordInviteTransition(string(status))
	telemetry.EmitAsync(ctx, s.emitter, telemetrydomain.NewEvent(eventType, "invite", inv.OrgID, actorID, map[string]string{
		"invite_id": inv.ID,
		"role":      string(inv.Role),
	}))
}

// validID reports whether id has the shape of an issued invite id.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
