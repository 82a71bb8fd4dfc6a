package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"saas-control-plane/backend/internal/db"
	membershipdomain "saas-control-plane/backend/internal/membership/domain"
	membershiprepo "saas-control-plane/backend/internal/membership/repository"
	"saas-control-plane/backend/internal/organization/domain"
)

var (
	// ErrSlugTaken is returned when another organization already uses the slug.
	ErrSlugTaken = errors.New("organization slug already in use")
	// ErrDomainTaken is returned when another organization already claims the domain.
	ErrDomainTaken = errors.New("organization domain already in use")
	// ErrTargetNotMember is returned by TransferOwnership when the new owner has no membership in the org.
	ErrTargetNotMember = errors.New("transfer target is not a member")
)

const orgColumns = `o.id, o.name, o.slug, o.domain, o.should_attach_users_by_domain, o.avatar_url, o.owner_id, o.created_at, o.updated_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an organization repository over conn.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Org, error) {
	return scanOrg(r.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations o WHERE o.id = $1`, id))
}

// GetBySlug returns the organization with slug, or nil if not found.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*domain.Org, error) {
	return scanOrg(r.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations o WHERE o.slug = $1`, slug))
}

// GetByDomain returns the organization claiming domainName, or nil if none does.
func (r *PostgresRepository) GetByDomain(ctx context.Context, domainName string) (*domain.Org, error) {
	return scanOrg(r.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations o WHERE o.domain = $1`, domainName))
}

func (r *PostgresRepository) GetAutoAttachByDomain(ctx context.Context, emailDomain string) (*domain.Org, error) {
	return scanOrg(r.db.QueryRowContext(ctx,
		`SELECT `+orgColumns+` FROM organizations o WHERE o.domain = $1 AND o.should_attach_users_by_domain`,
		emailDomain))
}

// ListByUser returns every organization userID belongs to, with the user's role, ordered by name.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.WithRole, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orgColumns+`, m.role
		FROM organizations o
		JOIN members m ON m.organization_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var out []*domain.WithRole
	for rows.Next() {
		var (
			w          domain.WithRole
			domainName sql.NullString
			avatarURL  sql.NullString
			role       string
		)
		if err := rows.Scan(&w.ID, &w.Name, &w.Slug, &domainName, &w.ShouldAttachUsersByDomain, &avatarURL,
			&w.OwnerID, &w.CreatedAt, &w.UpdatedAt, &role); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		w.Domain = domainName.String
		w.AvatarURL = avatarURL.String
		w.Role = membershipdomain.Role(role)
		out = append(out, &w)
	}
	return out, rows.Err()
}

// CreateWithOwner inserts the organization and the owner's membership in one transaction.
func (r *PostgresRepository) CreateWithOwner(ctx context.Context, o *domain.Org, owner *membershipdomain.Membership) error {
	return db.InTx(ctx, r.db, func(tx db.DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO organizations (id, name, slug, domain, should_attach_users_by_domain, avatar_url, owner_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			o.ID, o.Name, o.Slug, db.NullString(o.Domain), o.ShouldAttachUsersByDomain, db.NullString(o.AvatarURL),
			o.OwnerID, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return mapOrgWriteErr("insert organization", err)
		}
		return membershiprepo.NewPostgresRepository(tx).Create(ctx, owner)
	})
}

// Update writes name, domain, auto-attach flag and avatar. Slug and owner are not changed here.
func (r *PostgresRepository) Update(ctx context.Context, o *domain.Org) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE organizations
		SET name = $2, domain = $3, should_attach_users_by_domain = $4, avatar_url = $5, updated_at = $6
		WHERE id = $1`,
		o.ID, o.Name, db.NullString(o.Domain), o.ShouldAttachUsersByDomain, db.NullString(o.AvatarURL), o.UpdatedAt)
	if err != nil {
		return mapOrgWriteErr("update organization", err)
	}
	return nil
}

// Delete removes the organization. Members, invites and projects go with it by cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	return nil
}

// TransferOwnership makes toUserID the owner and demotes fromUserID to ADMIN, atomically.
func (r *PostgresRepository) TransferOwnership(ctx context.Context, orgID, fromUserID, toUserID string, at time.Time) error {
	return db.InTx(ctx, r.db, func(tx db.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE members SET role = $3 WHERE organization_id = $1 AND user_id = $2`,
			orgID, toUserID, string(membershipdomain.RoleOwner))
		if err != nil {
			return fmt.Errorf("promote new owner: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrTargetNotMember
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE members SET role = $3 WHERE organization_id = $1 AND user_id = $2`,
			orgID, fromUserID, string(membershipdomain.RoleAdmin)); err != nil {
			return fmt.Errorf("demote previous owner: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE organizations SET owner_id = $2, updated_at = $3 WHERE id = $1`,
			orgID, toUserID, at); err != nil {
			return fmt.Errorf("set organization owner: %w", err)
		}
		return nil
	})
}

func mapOrgWriteErr(op string, err error) error {
	switch {
	case db.IsUniqueViolation(err, "organizations_slug_key"):
		return ErrSlugTaken
	case db.IsUniqueViolation(err, "organizations_domain_key"):
		return ErrDomainTaken
	}
	return fmt.Errorf("%s: %w", op, err)
}

func scanOrg(row *sql.Row) (*domain.Org, error) {
	var (
		o          domain.Org
		domainName sql.NullString
		avatarURL  sql.NullString
	)
	err := row.Scan(&o.ID, &o.Name, &o.Slug, &domainName, &o.ShouldAttachUsersByDomain, &avatarURL,
		&o.OwnerID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	o.Domain = domainName.String
	o.AvatarURL = avatarURL.String
	return &o, nil
}
