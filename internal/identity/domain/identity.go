package domain

import "time"

// Identity links a user to an account at an external provider.
type Identity struct {
	ID                string
	UserID            string
	Provider          Provider
	ProviderAccountID string
	CreatedAt         time.Time
}

type Provider string

const (
	ProviderGitHub Provider = "github"
)
