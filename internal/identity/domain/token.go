package domain

import "time"

type TokenType string

const (
	TokenPasswordRecover TokenType = "password_recover"
)

// Token is a single-use code sent to a user out of band. Only the SHA-256 of the code is stored.
type Token struct {
	ID        string
	Type      TokenType
	UserID    string
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is no longer usable at now.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
