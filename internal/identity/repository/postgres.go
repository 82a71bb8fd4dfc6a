package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"saas-control-plane/backend/internal/db"
	"saas-control-plane/backend/internal/identity/domain"
)

// ErrIdentityLinked is returned by Create when the provider account or the (provider, user) pair is already linked.
var ErrIdentityLinked = errors.New("identity already linked")

const identityColumns = `id, user_id, provider, provider_account_id, created_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an identity repository over conn.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByProviderAccount returns the identity for the provider's account id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByProviderAccount(ctx context.Context, provider domain.Provider, accountID string) (*domain.Identity, error) {
	return scanIdentity(r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE provider = $1 AND provider_account_id = $2`,
		string(provider), accountID))
}

// GetByUserAndProvider returns the identity for the given user and provider, or nil if not found.
func (r *PostgresRepository) GetByUserAndProvider(ctx context.Context, userID string, provider domain.Provider) (*domain.Identity, error) {
	return scanIdentity(r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE user_id = $1 AND provider = $2`,
		userID, string(provider)))
}

// Create persists the identity to the database. The identity must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (`+identityColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		i.ID, i.UserID, string(i.Provider), i.ProviderAccountID, i.CreatedAt)
	if db.IsUniqueViolation(err, "") {
		return ErrIdentityLinked
	}
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func scanIdentity(row *sql.Row) (*domain.Identity, error) {
	var (
		i        domain.Identity
		provider string
	)
	if err := row.Scan(&i.ID, &i.UserID, &provider, &i.ProviderAccountID, &i.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	i.Provider = domain.Provider(provider)
	return &i, nil
}
