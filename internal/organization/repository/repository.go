package repository

import (
	"context"
	"time"

	membershipdomain "saas-control-plane/backend/internal/membership/domain"
	"saas-control-plane/backend/internal/organization/domain"
)

// Repository defines persistence for organizations.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Org, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Org, error)
	GetByDomain(ctx context.Context, domainName string) (*domain.Org, error)
	// GetAutoAttachByDomain returns the org that auto-attaches users of emailDomain, or nil.
	GetAutoAttachByDomain(ctx context.Context, emailDomain string) (*domain.Org, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.WithRole, error)
	CreateWithOwner(ctx context.Context, o *domain.Org, owner *membershipdomain.Membership) error
	Update(ctx context.Context, o *domain.Org) error
	Delete(ctx context.Context, id string) error
	TransferOwnership(ctx context.Context, orgID, fromUserID, toUserID string, at time.Time) error
}
