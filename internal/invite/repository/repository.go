package repository

import (
	"context"
	"time"

	"saas-control-plane/backend/internal/invite/domain"
	membershipdomain "saas-control-plane/backend/internal/membership/domain"
)

// Repository defines persistence for invites. All lookups see pending invites only.
type Repository interface {
	Create(ctx context.Context, inv *domain.Invite) error
	GetPending(ctx context.Context, id string) (*domain.Invite, error)
	GetPendingDetails(ctx context.Context, id string) (*domain.Details, error)
	GetPendingByEmailAndOrg(ctx context.Context, email, orgID string) (*domain.Invite, error)
	ListPendingByOrg(ctx context.Context, orgID string) ([]*domain.Details, error)
	ListPendingByEmail(ctx context.Context, email string) ([]*domain.Details, error)
	// Resolve moves a pending invite to status. Returns ErrNotPending when it is no longer pending.
	Resolve(ctx context.Context, id string, status domain.Status, by string, at time.Time) error
	// Accept creates m and marks the invite accepted in one transaction.
	Accept(ctx context.Context, id string, m *membershipdomain.Membership, at time.Time) error
}
