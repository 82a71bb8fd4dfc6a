package repository

import (
	"context"

	"saas-control-plane/backend/internal/membership/domain"
	orgdomain "saas-control-plane/backend/internal/organization/domain"
)

// Repository defines persistence for memberships.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Membership, error)
	GetByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
	GetByUserAndOrgSlug(ctx context.Context, userID, slug string) (*orgdomain.Org, *domain.Membership, error)
	ListMembersByOrg(ctx context.Context, orgID string) ([]*domain.Member, error)
	ExistsByOrgAndEmail(ctx context.Context, orgID, email string) (bool, error)
	CountByOrgExcludingRole(ctx context.Context, orgID string, role domain.Role) (int, error)
	Create(ctx context.Context, m *domain.Membership) error
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	Delete(ctx context.Context, id string) error
}
