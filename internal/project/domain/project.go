package domain

import (
	"errors"
	"strings"
	"time"
)

// Project belongs to one organization. Slug is unique within the organization.
type Project struct {
	ID          string
	Name        string
	Slug        string
	Description string
	AvatarURL   string
	OrgID       string
	OwnerID     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the project for persistence. Returns an error describing the first validation failure.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if p.Slug == "" {
		return errors.New("slug is required")
	}
	if p.OrgID == "" || p.OwnerID == "" {
		return errors.New("organization and owner are required")
	}
	return nil
}

// WithOwner is a project with its owner's public profile.
type WithOwner struct {
	Project
	OwnerName      string
	OwnerAvatarURL string
}
