// seed inserts development sample data for local testing: go run ./cmd/seed
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	"saas-control-plane/backend/internal/config"
	"saas-control-plane/backend/internal/db"
	invitedomain "saas-control-plane/backend/internal/invite/domain"
	inviterepo "saas-control-plane/backend/internal/invite/repository"
	membershipdomain "saas-control-plane/backend/internal/membership/domain"
	membershiprepo "saas-control-plane/backend/internal/membership/repository"
	orgdomain "saas-control-plane/backend/internal/organization/domain"
	orgrepo "saas-control-plane/backend/internal/organization/repository"
	projectdomain "saas-control-plane/backend/internal/project/domain"
	projectrepo "saas-control-plane/backend/internal/project/repository"
	"saas-control-plane/backend/internal/security"
	userdomain "saas-control-plane/backend/internal/user/domain"
	userrepo "saas-control-plane/backend/internal/user/repository"
)

const (
	devUserEmail     = "dev@example.com"
	devPassword      = "password123"
	devUserID        = "00000000-0000-4000-8000-000000000001"
	devUser2ID       = "00000000-0000-4000-8000-000000000002"
	devUser3ID       = "00000000-0000-4000-8000-000000000003"
	devOrgID         = "00000000-0000-4000-8000-000000000101"
	devMembershipID  = "00000000-0000-4000-8000-000000000201"
	devMembership2ID = "00000000-0000-4000-8000-000000000202"
	devMembership3ID = "00000000-0000-4000-8000-000000000203"
	devProjectID     = "00000000-0000-4000-8000-000000000301"
	devProject2ID    = "00000000-0000-4000-8000-000000000302"
	devInviteID      = "00000000-0000-4000-8000-000000000401"
	memberEmail      = "member@example.com"
	billingEmail     = "billing@example.com"
	invitedEmail     = "invited@example.com"
	devOrgDomain     = "example.com"
	devOrgSlug       = "acme"
	devProjectSlug   = "web-app"
	devProject2Slug  = "mobile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	existing, err := userrepo.NewPostgresRepository(conn).GetByEmail(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	passwordHash, err := security.NewHasher(cfg.BcryptCost).Hash(devPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	if err := db.WithTx(ctx, conn, func(tx *sql.Tx) error {
		return seed(ctx, tx, passwordHash, time.Now().UTC())
	}); err != nil {
		log.Fatalf("seed: %v", err)
	}

	log.Println("Seed completed.")
	log.Printf("  Owner:   %s / %s", devUserEmail, devPassword)
	log.Printf("  Member:  %s / %s", memberEmail, devPassword)
	log.Printf("  Billing: %s / %s", billingEmail, devPassword)
	log.Printf("  Org:     %s (auto-attaches @%s)", devOrgSlug, devOrgDomain)
	log.Printf("  Invite:  %s -> %s", devInviteID, invitedEmail)
}

func seed(ctx context.Context, tx db.DBTX, passwordHash string, now time.Time) error {
	users := userrepo.NewPostgresRepository(tx)
	orgs := orgrepo.NewPostgresRepository(tx)
	members := membershiprepo.NewPostgresRepository(tx)
	projects := projectrepo.NewPostgresRepository(tx)
	invites := inviterepo.NewPostgresRepository(tx)

	for _, u := range []*userdomain.User{
		{ID: devUserID, Email: devUserEmail, Name: "Dev User"},
		{ID: devUser2ID, Email: memberEmail, Name: "Member User"},
		{ID: devUser3ID, Email: billingEmail, Name: "Billing User"},
	} {
		u.PasswordHash = passwordHash
		u.CreatedAt, u.UpdatedAt = now, now
		if err := users.Create(ctx, u); err != nil {
			return err
		}
	}

	org := &orgdomain.Org{
		ID:                        devOrgID,
		Name:                      "Acme Inc",
		Slug:                      devOrgSlug,
		Domain:                    devOrgDomain,
		ShouldAttachUsersByDomain: true,
		OwnerID:                   devUserID,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	owner := &membershipdomain.Membership{ID: devMembershipID, UserID: devUserID, OrgID: devOrgID, Role: membershipdomain.RoleOwner, CreatedAt: now}
	if err := orgs.CreateWithOwner(ctx, org, owner); err != nil {
		return err
	}
	for _, m := range []*membershipdomain.Membership{
		{ID: devMembership2ID, UserID: devUser2ID, OrgID: devOrgID, Role: membershipdomain.RoleMember, CreatedAt: now},
		{ID: devMembership3ID, UserID: devUser3ID, OrgID: devOrgID, Role: membershipdomain.RoleBilling, CreatedAt: now},
	} {
		if err := members.Create(ctx, m); err != nil {
			return err
		}
	}

	for _, p := range []*projectdomain.Project{
		{ID: devProjectID, Name: "Web App", Slug: devProjectSlug, Description: "Customer dashboard", OwnerID: devUserID},
		{ID: devProject2ID, Name: "Mobile", Slug: devProject2Slug, Description: "iOS and Android clients", OwnerID: devUser2ID},
	} {
		p.OrgID = devOrgID
		p.CreatedAt, p.UpdatedAt = now, now
		if err := projects.Create(ctx, p); err != nil {
			return err
		}
	}

	return invites.Create(ctx, &invitedomain.Invite{
		ID:        devInviteID,
		Email:     invitedEmail,
		Role:      membershipdomain.RoleMember,
		OrgID:     devOrgID,
		AuthorID:  devUserID,
		Status:    invitedomain.StatusPending,
		CreatedAt: now,
	})
}
