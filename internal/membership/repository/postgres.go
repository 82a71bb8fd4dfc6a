package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"saas-control-plane/backend/internal/db"
	"saas-control-plane/backend/internal/membership/domain"
	orgdomain "saas-control-plane/backend/internal/organization/domain"
)

// ErrAlreadyMember is returned by Create when the user already belongs to the organization.
var ErrAlreadyMember = errors.New("user is already a member of the organization")

const membershipColumns = `m.id, m.user_id, m.organization_id, m.role, m.created_at`

// roleOrder sorts OWNER, ADMIN, MEMBER, BILLING.
const roleOrder = `CASE m.role WHEN 'OWNER' THEN 0 WHEN 'ADMIN' THEN 1 WHEN 'MEMBER' THEN 2 ELSE 3 END`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a membership repository over conn (a *sql.DB or a *sql.Tx).
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the membership for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+membershipColumns+` FROM members m WHERE m.id = $1`, id)
	return scanMembership(row)
}

// GetByUserAndOrg returns the membership for the given user and org, or nil if not found.
func (r *PostgresRepository) GetByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM members m WHERE m.user_id = $1 AND m.organization_id = $2`,
		userID, orgID)
	return scanMembership(row)
}

// GetByUserAndOrgSlug returns the organization with that slug and the user's membership in it, in one query.
// Both are nil when the org does not exist or the user is not a member; the two cases are not distinguished.
func (r *PostgresRepository) GetByUserAndOrgSlug(ctx context.Context, userID, slug string) (*orgdomain.Org, *domain.Membership, error) {
	const q = `
		SELECT ` + membershipColumns + `,
		       o.id, o.name, o.slug, o.domain, o.should_attach_users_by_domain, o.avatar_url, o.owner_id,
		       o.created_at, o.updated_at
		FROM members m
		JOIN organizations o ON o.id = m.organization_id
		WHERE m.user_id = $1 AND o.slug = $2`
	var (
		m          domain.Membership
		o          orgdomain.Org
		role       string
		domainName sql.NullString
		avatarURL  sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, userID, slug).Scan(
		&m.ID, &m.UserID, &m.OrgID, &role, &m.CreatedAt,
		&o.ID, &o.Name, &o.Slug, &domainName, &o.ShouldAttachUsersByDomain, &avatarURL, &o.OwnerID,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("get membership by slug: %w", err)
	}
	m.Role = domain.Role(role)
	o.Domain = domainName.String
	o.AvatarURL = avatarURL.String
	return &o, &m, nil
}

// ListMembersByOrg returns the org's members joined with their profiles, ordered by role.
func (r *PostgresRepository) ListMembersByOrg(ctx context.Context, orgID string) ([]*domain.Member, error) {
	q := `
		SELECT ` + membershipColumns + `, u.name, u.email, u.avatar_url
		FROM members m
		JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY ` + roleOrder + `, m.created_at ASC`
	rows, err := r.db.QueryContext(ctx, q, orgID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []*domain.Member
	for rows.Next() {
		var (
			mem       domain.Member
			role      string
			avatarURL sql.NullString
		)
		if err := rows.Scan(&mem.ID, &mem.UserID, &mem.OrgID, &role, &mem.CreatedAt,
			&mem.Name, &mem.Email, &avatarURL); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		mem.Role = domain.Role(role)
		mem.AvatarURL = avatarURL.String
		out = append(out, &mem)
	}
	return out, rows.Err()
}

// ExistsByOrgAndEmail reports whether a member of the org has the given email.
func (r *PostgresRepository) ExistsByOrgAndEmail(ctx context.Context, orgID, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM members m JOIN users u ON u.id = m.user_id
			WHERE m.organization_id = $1 AND u.email = $2
		)`, orgID, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("member email lookup: %w", err)
	}
	return exists, nil
}

// CountByOrgExcludingRole counts the org's members whose role is not role.
func (r *PostgresRepository) CountByOrgExcludingRole(ctx context.Context, orgID string, role domain.Role) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM members WHERE organization_id = $1 AND role <> $2`,
		orgID, string(role)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}

// Create persists the membership. The membership must have ID set.
// Returns ErrAlreadyMember when the (org, user) pair already exists.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.Membership) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (id, user_id, organization_id, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.UserID, m.OrgID, string(m.Role), m.CreatedAt)
	if db.IsUniqueViolation(err, "members_org_user_key") {
		return ErrAlreadyMember
	}
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

// UpdateRole sets the role of membership id. Missing rows are not an error.
func (r *PostgresRepository) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE members SET role = $2 WHERE id = $1`, id, string(role)); err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return nil
}

// Delete removes membership id. Missing rows are not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

func scanMembership(row *sql.Row) (*domain.Membership, error) {
	var (
		m    domain.Membership
		role string
	)
	if err := row.Scan(&m.ID, &m.UserID, &m.OrgID, &role, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Role = domain.Role(role)
	return &m, nil
}
