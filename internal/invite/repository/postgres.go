package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"saas-control-plane/backend/internal/db"
	"saas-control-plane/backend/internal/invite/domain"
	membershipdomain "saas-control-plane/backend/internal/membership/domain"
	membershiprepo "saas-control-plane/backend/internal/membership/repository"
)

var (
	// ErrPendingExists is returned by Create when (email, org) already has a pending invite.
	ErrPendingExists = errors.New("a pending invite already exists for this email")
	// ErrNotPending is returned when a transition targets an invite that was already resolved.
	ErrNotPending = errors.New("invite is not pending")
)

const inviteColumns = `i.id, i.email, i.role, i.organization_id, i.author_id, i.status, i.created_at, i.resolved_at, i.resolved_by`

const detailsQuery = `
	SELECT ` + inviteColumns + `, o.name, o.slug, u.id, u.name, u.avatar_url
	FROM invites i
	JOIN organizations o ON o.id = i.organization_id
	LEFT JOIN users u ON u.id = i.author_id
	WHERE i.status = 'pending'`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an invite repository over conn.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists a pending invite. The invite must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, inv *domain.Invite) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO invites (id, email, role, organization_id, author_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inv.ID, inv.Email, string(inv.Role), inv.OrgID, db.NullString(inv.AuthorID), string(domain.StatusPending), inv.CreatedAt)
	if db.IsUniqueViolation(err, "invites_pending_email_org_key") {
		return ErrPendingExists
	}
	if err != nil {
		return fmt.Errorf("insert invite: %w", err)
	}
	return nil
}

// GetPending returns the invite for id if it is still pending, or nil.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetPending(ctx context.Context, id string) (*domain.Invite, error) {
	return scanInvite(r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites i WHERE i.id = $1 AND i.status = 'pending'`, id))
}

// GetPendingByEmailAndOrg returns the pending invite for (email, orgID), or nil.
func (r *PostgresRepository) GetPendingByEmailAndOrg(ctx context.Context, email, orgID string) (*domain.Invite, error) {
	return scanInvite(r.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM invites i WHERE i.email = $1 AND i.organization_id = $2 AND i.status = 'pending'`,
		email, orgID))
}

// GetPendingDetails returns the pending invite with its organization and author, or nil.
func (r *PostgresRepository) GetPendingDetails(ctx context.Context, id string) (*domain.Details, error) {
	rows, err := r.db.QueryContext(ctx, detailsQuery+` AND i.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get invite: %w", err)
	}
	list, err := scanDetails(rows)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// ListPendingByOrg returns the org's pending invites, newest first.
func (r *PostgresRepository) ListPendingByOrg(ctx context.Context, orgID string) ([]*domain.Details, error) {
	rows, err := r.db.QueryContext(ctx, detailsQuery+` AND i.organization_id = $1 ORDER BY i.created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list org invites: %w", err)
	}
	return scanDetails(rows)
}

// ListPendingByEmail returns the pending invites addressed to email, newest first.
func (r *PostgresRepository) ListPendingByEmail(ctx context.Context, email string) ([]*domain.Details, error) {
	rows, err := r.db.QueryContext(ctx, detailsQuery+` AND i.email = $1 ORDER BY i.created_at DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("list pending invites: %w", err)
	}
	return scanDetails(rows)
}

func (r *PostgresRepository) Resolve(ctx context.Context, id string, status domain.Status, by string, at time.Time) error {
	if !status.Terminal() {
		return fmt.Errorf("resolve invite: %q is not a terminal status", status)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE invites SET status = $2, resolved_at = $3, resolved_by = $4
		WHERE id = $1 AND status = 'pending'`,
		id, string(status), at, db.NullString(by))
	if err != nil {
		return fmt.Errorf("resolve invite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve invite: %w", err)
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

func (r *PostgresRepository) Accept(ctx context.Context, id string, m *membershipdomain.Membership, at time.Time) error {
	return db.InTx(ctx, r.db, func(tx db.DBTX) error {
		if err := membershiprepo.NewPostgresRepository(tx).Create(ctx, m); err != nil {
			return err
		}
		return NewPostgresRepository(tx).Resolve(ctx, id, domain.StatusAccepted, m.UserID, at)
	})
}

func scanInvite(row *sql.Row) (*domain.Invite, error) {
	var (
		inv                  domain.Invite
		role, status         string
		authorID, resolvedBy sql.NullString
		resolvedAt           sql.NullTime
	)
	err := row.Scan(&inv.ID, &inv.Email, &role, &inv.OrgID, &authorID, &status, &inv.CreatedAt, &resolvedAt, &resolvedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	inv.Role = membershipdomain.Role(role)
	inv.Status = domain.Status(status)
	inv.AuthorID = authorID.String
	inv.ResolvedAt = db.TimePtr(resolvedAt)
	inv.ResolvedBy = resolvedBy.String
	return &inv, nil
}

func scanDetails(rows *sql.Rows) ([]*domain.Details, error) {
	defer rows.Close()
	var out []*domain.Details
	for rows.Next() {
		var (
			d                                      domain.Details
			role, status                           string
			authorID, resolvedBy                   sql.NullString
			resolvedAt                             sql.NullTime
			authorUserID, authorName, authorAvatar sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Email, &role, &d.OrgID, &authorID, &status, &d.CreatedAt, &resolvedAt, &resolvedBy,
			&d.OrgName, &d.OrgSlug, &authorUserID, &authorName, &authorAvatar); err != nil {
			return nil, fmt.Errorf("scan invite: %w", err)
		}
		d.Role = membershipdomain.Role(role)
		d.Status = domain.Status(status)
		d.AuthorID = authorID.String
		d.ResolvedAt = db.TimePtr(resolvedAt)
		d.ResolvedBy = resolvedBy.String
		if authorUserID.Valid {
			d.Author = &domain.Author{ID: authorUserID.String, Name: authorName.String, AvatarURL: authorAvatar.String}
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
