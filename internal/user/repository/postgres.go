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
	"saas-control-plane/backend/internal/user/domain"
)

// ErrEmailTaken is returned by Create when another user already has the email.
var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id, email, name, avatar_url, password_hash, created_at, updated_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a user repository over conn (a *sql.DB or a *sql.Tx).
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns the user with the given (normalized) email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// Create persists the user. The user must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.Name, db.NullString(u.AvatarURL), db.NullString(u.PasswordHash), u.CreatedAt, u.UpdatedAt)
	if db.IsUniqueViolation(err, "users_email_key") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// CreateWithMembership creates the user and, when m is non-nil, the membership in the same transaction.
func (r *PostgresRepository) CreateWithMembership(ctx context.Context, u *domain.User, m *membershipdomain.Membership) error {
	return db.InTx(ctx, r.db, func(tx db.DBTX) error {
		if err := NewPostgresRepository(tx).Create(ctx, u); err != nil {
			return err
		}
		if m == nil {
			return nil
		}
		return membershiprepo.NewPostgresRepository(tx).Create(ctx, m)
	})
}

// UpdateProfile sets name and avatar; empty avatarURL clears it.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, name, avatarURL string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $2, avatar_url = $3, updated_at = $4 WHERE id = $1`,
		id, name, db.NullString(avatarURL), at)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, passwordHash, at)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u            domain.User
		avatarURL    sql.NullString
		passwordHash sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &avatarURL, &passwordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.AvatarURL = avatarURL.String
	u.PasswordHash = passwordHash.String
	return &u, nil
}
