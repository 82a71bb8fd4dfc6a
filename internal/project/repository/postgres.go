package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"saas-control-plane/backend/internal/db"
	"saas-control-plane/backend/internal/project/domain"
)

// ErrSlugTaken is returned when the organization already has a project with the slug.
var ErrSlugTaken = errors.New("project slug already in use")

const projectColumns = `p.id, p.name, p.slug, p.description, p.avatar_url, p.organization_id, p.owner_id, p.created_at, p.updated_at`

const withOwnerQuery = `
	SELECT ` + projectColumns + `, u.name, u.avatar_url
	FROM projects p
	JOIN users u ON u.id = p.owner_id
	WHERE p.organization_id = $1`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a project repository over conn.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the project. The project must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, slug, description, avatar_url, organization_id, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.Slug, p.Description, db.NullString(p.AvatarURL), p.OrgID, p.OwnerID, p.CreatedAt, p.UpdatedAt)
	if db.IsUniqueViolation(err, "projects_org_slug_key") {
		return ErrSlugTaken
	}
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetByID returns the project id in orgID, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, orgID, id string) (*domain.Project, error) {
	var (
		p         domain.Project
		avatarURL sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects p WHERE p.organization_id = $1 AND p.id = $2`, orgID, id,
	).Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &avatarURL, &p.OrgID, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.AvatarURL = avatarURL.String
	return &p, nil
}

// GetBySlug returns the project with slug in orgID and its owner, or nil if not found.
func (r *PostgresRepository) GetBySlug(ctx context.Context, orgID, slug string) (*domain.WithOwner, error) {
	rows, err := r.db.QueryContext(ctx, withOwnerQuery+` AND p.slug = $2`, orgID, slug)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	list, err := scanWithOwner(rows)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// ListByOrg returns the org's projects, newest first.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string) ([]*domain.WithOwner, error) {
	rows, err := r.db.QueryContext(ctx, withOwnerQuery+` ORDER BY p.created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return scanWithOwner(rows)
}

// Update writes name, description and avatar. The slug is fixed at creation.
func (r *PostgresRepository) Update(ctx context.Context, p *domain.Project) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET name = $3, description = $4, avatar_url = $5, updated_at = $6
		WHERE organization_id = $1 AND id = $2`,
		p.OrgID, p.ID, p.Name, p.Description, db.NullString(p.AvatarURL), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, orgID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE organization_id = $1 AND id = $2`, orgID, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountByOrg(ctx context.Context, orgID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE organization_id = $1`, orgID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count projects: %w", err)
	}
	return n, nil
}

func scanWithOwner(rows *sql.Rows) ([]*domain.WithOwner, error) {
	defer rows.Close()
	var out []*domain.WithOwner
	for rows.Next() {
		var (
			p                      domain.WithOwner
			avatarURL, ownerAvatar sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &avatarURL, &p.OrgID, &p.OwnerID,
			&p.CreatedAt, &p.UpdatedAt, &p.OwnerName, &ownerAvatar); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.AvatarURL = avatarURL.String
		p.OwnerAvatarURL = ownerAvatar.String
		out = append(out, &p)
	}
	return out, rows.Err()
}
