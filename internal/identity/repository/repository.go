package repository

import (
	"context"
	"time"

	"saas-control-plane/backend/internal/identity/domain"
)

// Repository defines persistence for external identities.
type Repository interface {
	GetByProviderAccount(ctx context.Context, provider domain.Provider, accountID string) (*domain.Identity, error)
	GetByUserAndProvider(ctx context.Context, userID string, provider domain.Provider) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
}

// TokenRepository defines persistence for recovery tokens.
type TokenRepository interface {
	Create(ctx context.Context, t *domain.Token) error
	GetByCodeHash(ctx context.Context, tokenType domain.TokenType, codeHash string) (*domain.Token, error)
	// ResetPassword sets the user's password hash and deletes all of the user's tokens of that type, atomically.
	ResetPassword(ctx context.Context, tokenType domain.TokenType, userID, passwordHash string, at time.Time) error
}
