// Package service implements project CRUD inside an organization.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"saas-control-plane/backend/internal/platform/apperr"
	"saas-control-plane/backend/internal/platform/rbac"
	"saas-control-plane/backend/internal/platform/slug"
	"saas-control-plane/backend/internal/project/domain"
	projectrepo "saas-control-plane/backend/internal/project/repository"
)

const msgProjectNotFound = "Project not found."

// ProjectRepo is the project persistence the service needs.
type ProjectRepo interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, orgID, id string) (*domain.Project, error)
	GetBySlug(ctx context.Context, orgID, slug string) (*domain.WithOwner, error)
	ListByOrg(ctx context.Context, orgID string) ([]*domain.WithOwner, error)
	Update(ctx context.Context, p *domain.Project) error
	Delete(ctx context.Context, orgID, id string) error
}

// MembershipResolver resolves the acting user's membership in an organization.
type MembershipResolver interface {
	Resolve(ctx context.Context, userID, slug string) (*rbac.OrgMembership, error)
}

// Input carries the editable project fields.
type Input struct {
	Name        string
	Description string
	AvatarURL   string
}

// Service implements project operations.
type Service struct {
	projects ProjectRepo
	resolver MembershipResolver
	now      func() time.Time
}

// NewService returns a project Service.
func NewService(projects ProjectRepo, resolver MembershipResolver) *Service {
	return &Service{
		projects: projects,
		resolver: resolver,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create adds a project owned by userID to the organization behind orgSlug.
func (s *Service) Create(ctx context.Context, userID, orgSlug string, in Input) (*domain.Project, error) {
	om, err := s.resolver.Resolve(ctx, userID, orgSlug)
	if err != nil {
		return nil, err
	}
	if err := om.Ability().Authorize(rbac.ActionCreate, rbac.SubjectProject, "You're not allowed to create new projects."); err != nil {
		return nil, err
	}
	now := s.now()
	name := strings.TrimSpace(in.Name)
	p := &domain.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Slug:        slug.Make(name),
		Description: strings.TrimSpace(in.Description),
		AvatarURL:   strings.TrimSpace(in.AvatarURL),
		OrgID:       om.Organization.ID,
		OwnerID:     userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, apperr.BadRequest(err.Error())
	}
	if err := s.projects.Create(ctx, p); err != nil {
		if errors.Is(err, projectrepo.ErrSlugTaken) {
			return nil, apperr.Conflict("Another project with same name already exists in this organization.")
		}
		return nil, apperr.Internal("create project", err)
	}
	return p, nil
}

// List returns the organization's projects with their owners.
func (s *Service) List(ctx context.Context, userID, orgSlug string) ([]*domain.WithOwner, error) {
	om, err := s.resolver.Resolve(ctx, userID, orgSlug)
	if err != nil {
		return nil, err
	}
	if err := om.Ability().Authorize(rbac.ActionGet, rbac.SubjectProject, "You're not allowed to see organization projects."); err != nil {
		return nil, err
	}
	out, err := s.projects.ListByOrg(ctx, om.Organization.ID)
	if err != nil {
		return nil, apperr.Internal("list projects", err)
	}
	return out, nil
}

// GetBySlug returns one project of the organization with its owner.
func (s *Service) GetBySlug(ctx context.Context, userID, orgSlug, projectSlug string) (*domain.WithOwner, error) {
	om, err := s.resolver.Resolve(ctx, userID, orgSlug)
	if err != nil {
		return nil, err
	}
	if err := om.Ability().Authorize(rbac.ActionGet, rbac.SubjectProject, "You're not allowed to see this project."); err != nil {
		return nil, err
	}
	p, err := s.projects.GetBySlug(ctx, om.Organization.ID, projectSlug)
	if err != nil {
		return nil, apperr.Internal("get project", err)
	}
	if p == nil {
		return nil, apperr.NotFound(msgProjectNotFound)
	}
	return p, nil
}

// Update changes a project's name, description and avatar. MEMBERs may only update their own.
func (s *Service) Update(ctx context.Context, userID, orgSlug, projectID string, in Input) (*domain.Project, error) {
	om, p, err := s.load(ctx, userID, orgSlug, projectID)
	if err != nil {
		return nil, err
	}
	if err := om.Ability().Authorize(rbac.ActionUpdate, instance(p), "You're not allowed to update this project."); err != nil {
		return nil, err
	}
	updated := *p
	updated.Name = strings.TrimSpace(in.Name)
	updated.Description = strings.TrimSpace(in.Description)
	updated.AvatarURL = strings.TrimSpace(in.AvatarURL)
	updated.UpdatedAt = s.now()
	if err := updated.Validate(); err != nil {
		return nil, apperr.BadRequest(err.Error())
	}
	if err := s.projects.Update(ctx, &updated); err != nil {
		return nil, apperr.Internal("update project", err)
	}
	return &updated, nil
}

// Delete removes a project. MEMBERs may only delete their own.
func (s *Service) Delete(ctx context.Context, userID, orgSlug, projectID string) error {
	om, p, err := s.load(ctx, userID, orgSlug, projectID)
	if err != nil {
		return err
	}
	if err := om.Ability().Authorize(rbac.ActionDelete, instance(p), "You're not allowed to delete this project."); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, p.OrgID, p.ID); err != nil {
		return apperr.Internal("delete project", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, userID, orgSlug, projectID string) (*rbac.OrgMembership, *domain.Project, error) {
	om, err := s.resolver.Resolve(ctx, userID, orgSlug)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.projects.GetByID(ctx, om.Organization.ID, projectID)
	if err != nil {
		return nil, nil, apperr.Internal("get project", err)
	}
	if p == nil {
		return nil, nil, apperr.NotFound(msgProjectNotFound)
	}
	return om, p, nil
}

func instance(p *domain.Project) rbac.Instance {
	return rbac.NewInstance(rbac.SubjectProject, p.ID, p.OwnerID)
}
