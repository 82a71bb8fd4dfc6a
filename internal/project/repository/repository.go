package repository

import (
	"context"

	"saas-control-plane/backend/internal/project/domain"
)

// Repository defines persistence for projects. Every lookup is scoped to an organization.
type Repository interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Project, error)
	GetBySlug(ctx context.Context, orgID, slug string) (*domain.WithOwner, error)
	ListByOrg(ctx context.Context, orgID string) ([]*domain.WithOwner, error)
	Update(ctx context.Context, p *domain.Project) error
	Delete(ctx context.Context, orgID, id string) error
	CountByOrg(ctx context.Context, orgID string) (int, error)
}
