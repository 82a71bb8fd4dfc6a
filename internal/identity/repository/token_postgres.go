package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"saas-control-plane/backend/internal/db"
	"saas-control-plane/backend/internal/identity/domain"
	userrepo "saas-control-plane/backend/internal/user/repository"
)

type TokenPostgresRepository struct {
	db db.DBTX
}

// NewTokenPostgresRepository returns a token repository over conn.
func NewTokenPostgresRepository(conn db.DBTX) *TokenPostgresRepository {
	return &TokenPostgresRepository{db: conn}
}

// Create persists the token. The token must have ID set.
func (r *TokenPostgresRepository) Create(ctx context.Context, t *domain.Token) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tokens (id, type, user_id, code_hash, expires_at, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, string(t.Type), t.UserID, t.CodeHash, t.ExpiresAt, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetByCodeHash returns the token of tokenType whose code hashes to codeHash, or nil if not found.
// Expired tokens are returned; the caller decides.
func (r *TokenPostgresRepository) GetByCodeHash(ctx context.Context, tokenType domain.TokenType, codeHash string) (*domain.Token, error) {
	var (
		t   domain.Token
		typ string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, type, user_id, code_hash, expires_at, created_at FROM tokens WHERE type = $1 AND code_hash = $2`,
		string(tokenType), codeHash,
	).Scan(&t.ID, &typ, &t.UserID, &t.CodeHash, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Type = domain.TokenType(typ)
	return &t, nil
}

func (r *TokenPostgresRepository) ResetPassword(ctx context.Context, tokenType domain.TokenType, userID, passwordHash string, at time.Time) error {
	return db.InTx(ctx, r.db, func(tx db.DBTX) error {
		if err := userrepo.NewPostgresRepository(tx).UpdatePassword(ctx, userID, passwordHash, at); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = $1 AND type = $2`, userID, string(tokenType)); err != nil {
			return fmt.Errorf("delete tokens: %w", err)
		}
		return nil
	})
}
