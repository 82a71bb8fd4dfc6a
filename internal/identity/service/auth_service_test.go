package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	identitydomain "saas-control-plane/backend/internal/identity/domain"
	"saas-control-plane/backend/internal/identity/github"
	membershipdomain "saas-control-plane/backend/internal/membership/domain"
	orgdomain "saas-control-plane/backend/internal/organization/domain"
	"saas-control-plane/backend/internal/platform/apperr"
	"saas-control-plane/backend/internal/security"
	userdomain "saas-control-plane/backend/internal/user/domain"
)

type memUserRepo struct {
	mu          sync.Mutex
	byID        map[string]*userdomain.User
	byEmail     map[string]*userdomain.User
	memberships []*membershipdomain.Membership
	passwords   map[string]string
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byID:      map[string]*userdomain.User{},
		byEmail:   map[string]*userdomain.User{},
		passwords: map[string]string{},
	}
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail[email], nil
}

func (r *memUserRepo) CreateWithMembership(ctx context.Context, u *userdomain.User, m *membershipdomain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[u.Email] = &cp
	if m != nil {
		r.memberships = append(r.memberships, m)
	}
	return nil
}

type memIdentityRepo struct {
	mu sync.Mutex
	m  map[string]*identitydomain.Identity
}

func (r *memIdentityRepo) GetByProviderAccount(ctx context.Context, provider identitydomain.Provider, accountID string) (*identitydomain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.m {
		if i.Provider == provider && i.ProviderAccountID == accountID {
			return i, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) GetByUserAndProvider(ctx context.Context, userID string, provider identitydomain.Provider) (*identitydomain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.m {
		if i.UserID == userID && i.Provider == provider {
			return i, nil
		}
	}
	return nil, nil
}

func (r *memIdentityRepo) Create(ctx context.Context, i *identitydomain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[i.ID] = i
	return nil
}

type memTokenRepo struct {
	mu     sync.Mutex
	tokens []*identitydomain.Token
	users  *memUserRepo
}

func (r *memTokenRepo) Create(ctx context.Context, t *identitydomain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, t)
	return nil
}

func (r *memTokenRepo) GetByCodeHash(ctx context.Context, tokenType identitydomain.TokenType, codeHash string) (*identitydomain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.Type == tokenType && t.CodeHash == codeHash {
			return t, nil
		}
	}
	return nil, nil
}

func (r *memTokenRepo) ResetPassword(ctx context.Context, tokenType identitydomain.TokenType, userID, passwordHash string, at time.Time) error {
	r.users.mu.Lock()
	if u, ok := r.users.byID[userID]; ok {
		u.PasswordHash = passwordHash
		u.UpdatedAt = at
	}
	r.users.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.tokens[:0]
	for _, t := range r.tokens {
		if t.UserID != userID || t.Type != tokenType {
			kept = append(kept, t)
		}
	}
	r.tokens = kept
	return nil
}

type memOrgFinder struct {
	orgs []*orgdomain.Org
}

func (f *memOrgFinder) GetAutoAttachByDomain(ctx context.Context, emailDomain string) (*orgdomain.Org, error) {
	for _, o := range f.orgs {
		if o.AutoAttaches(emailDomain) {
			return o, nil
		}
	}
	return nil, nil
}

type fakeGitHub struct {
	profile *github.Profile
	err     error
}

func (f *fakeGitHub) FetchProfile(ctx context.Context, code string) (*github.Profile, error) {
	return f.profile, f.err
}

type recordingMetrics struct {
	mu       sync.Mutex
	attempts map[string]int
}

func (m *recordingMetrics) RecordRequest(string, string, int, time.Duration) {}
func (m *recordingMetrics) RecordInviteTransition(string)                    {}
func (m *recordingMetrics) RecordAuthAttempt(method string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := method + ":fail"
	if ok {
		key = method + ":ok"
	}
	m.attempts[key]++
}

type authFixture struct {
	svc        *AuthService
	users      *memUserRepo
	identities *memIdentityRepo
	tokens     *memTokenRepo
	gh         *fakeGitHub
	metrics    *recordingMetrics
	provider   *security.TokenProvider
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	provider, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	users := newMemUserRepo()
	f := &authFixture{
		users:      users,
		identities: &memIdentityRepo{m: map[string]*identitydomain.Identity{}},
		tokens:     &memTokenRepo{users: users},
		gh:         &fakeGitHub{},
		metrics:    &recordingMetrics{attempts: map[string]int{}},
		provider:   provider,
	}
	orgs := &memOrgFinder{orgs: []*orgdomain.Org{
		{ID: "org-acme", Name: "Acme", Slug: "acme", Domain: "acme.com", ShouldAttachUsersByDomain: true, OwnerID: "owner"},
		{ID: "org-quiet", Name: "Quiet", Slug: "quiet", Domain: "quiet.io", OwnerID: "owner"},
	}}
	f.svc = NewAuthService(users, f.identities, f.tokens, orgs, security.NewHasher(4), provider, f.gh,
		Options{RecoverTTL: time.Hour}, nil, f.metrics)
	return f
}

func TestCreateAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	u, err := f.svc.CreateAccount(ctx, " Jane ", "Jane@Example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if u.Email != "jane@example.com" || u.Name != "Jane" {
		t.Errorf("user = %+v", u)
	}
	if u.PasswordHash == "" || u.PasswordHash == "secret123" {
		t.Error("password should be stored hashed")
	}
	if len(f.users.memberships) != 0 {
		t.Error("no org should auto-attach example.com")
	}

	_, err = f.svc.CreateAccount(ctx, "Jane", "jane@example.com", "another1")
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("duplicate email: got %v, want bad request", err)
	}

	for _, email := range []string{"@example.com", "a b@example.com", "x@y@example.com"} {
		if _, err := f.svc.CreateAccount(ctx, "Jane", email, "secret123"); apperr.KindOf(err) != apperr.KindBadRequest {
			t.Errorf("CreateAccount(%q): got %v, want bad request", email, err)
		}
	}
	if len(f.users.byEmail) != 1 {
		t.Errorf("users = %d, want 1", len(f.users.byEmail))
	}
}

func TestCreateAccount_ShortPassword(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.CreateAccount(context.Background(), "Jane", "jane@example.com", "123")
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("got %v, want bad request", err)
	}
}

func TestCreateAccount_DomainAutoAttach(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	u, err := f.svc.CreateAccount(ctx, "Ann", "ann@acme.com", "secret123")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if len(f.users.memberships) != 1 {
		t.Fatalf("memberships = %d, want 1", len(f.users.memberships))
	}
	m := f.users.memberships[0]
	if m.OrgID != "org-acme" || m.UserID != u.ID || m.Role != membershipdomain.RoleMember {
		t.Errorf("membership = %+v", m)
	}

	// quiet.io has a domain but does not attach users.
	if _, err := f.svc.CreateAccount(ctx, "Bob", "bob@quiet.io", "secret123"); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if len(f.users.memberships) != 1 {
		t.Errorf("memberships = %d, want 1", len(f.users.memberships))
	}
}

func TestAuthenticateWithPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, err := f.svc.CreateAccount(ctx, "Jane", "jane@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	token, err := f.svc.AuthenticateWithPassword(ctx, "JANE@example.com", "secret123")
	if err != nil {
		t.Fatalf("AuthenticateWithPassword: %v", err)
	}
	sub, err := f.provider.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if sub != u.ID {
		t.Errorf("sub = %q, want %q", sub, u.ID)
	}

	for _, tc := range []struct{ email, password string }{
		{"jane@example.com", "wrong-pass"},
		{"nobody@example.com", "secret123"},
		{"", ""},
	} {
		_, err := f.svc.AuthenticateWithPassword(ctx, tc.email, tc.password)
		if apperr.KindOf(err) != apperr.KindBadRequest || apperr.MessageOf(err) != msgInvalidCredentials {
			t.Errorf("(%q, %q): got %v, want invalid credentials", tc.email, tc.password, err)
		}
	}
	if f.metrics.attempts["password:ok"] != 1 || f.metrics.attempts["password:fail"] != 3 {
		t.Errorf("attempts = %v", f.metrics.attempts)
	}
}

func TestAuthenticateWithPassword_SocialOnlyUser(t *testing.T) {
	f := newAuthFixture(t)
	f.users.byEmail["gh@example.com"] = &userdomain.User{ID: "u-gh", Email: "gh@example.com"}

	_, err := f.svc.AuthenticateWithPassword(context.Background(), "gh@example.com", "whatever")
	if apperr.KindOf(err) != apperr.KindBadRequest || apperr.MessageOf(err) != msgSocialLogin {
		t.Errorf("got %v, want social login hint", err)
	}
}

func TestAuthenticateWithGitHub_CreatesUserAndLinksIdentity(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.gh.profile = &github.Profile{ID: "42", Name: "Octo", Email: "Octo@Acme.com", AvatarURL: "https://avatars/42"}

	token, err := f.svc.AuthenticateWithGitHub(ctx, "code")
	if err != nil {
		t.Fatalf("AuthenticateWithGitHub: %v", err)
	}
	u := f.users.byEmail["octo@acme.com"]
	if u == nil {
		t.Fatal("user should be created")
	}
	if u.HasPassword() || u.AvatarURL != "https://avatars/42" {
		t.Errorf("user = %+v", u)
	}
	if sub, _ := f.provider.ValidateAccess(token); sub != u.ID {
		t.Errorf("sub = %q, want %q", sub, u.ID)
	}
	ident, _ := f.identities.GetByUserAndProvider(ctx, u.ID, identitydomain.ProviderGitHub)
	if ident == nil || ident.ProviderAccountID != "42" {
		t.Errorf("identity = %+v", ident)
	}
	if len(f.users.memberships) != 1 {
		t.Errorf("new GitHub user on acme.com should be auto-attached")
	}

	// Second sign-in reuses the user and does not link twice.
	if _, err := f.svc.AuthenticateWithGitHub(ctx, "code"); err != nil {
		t.Fatalf("second sign-in: %v", err)
	}
	if len(f.identities.m) != 1 || len(f.users.byID) != 1 {
		t.Errorf("identities = %d, users = %d", len(f.identities.m), len(f.users.byID))
	}
}

func TestAuthenticateWithGitHub_LinksExistingPasswordUser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, err := f.svc.CreateAccount(ctx, "Jane", "jane@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	f.gh.profile = &github.Profile{ID: "7", Email: "jane@example.com"}

	if _, err := f.svc.AuthenticateWithGitHub(ctx, "code"); err != nil {
		t.Fatalf("AuthenticateWithGitHub: %v", err)
	}
	ident, _ := f.identities.GetByProviderAccount(ctx, identitydomain.ProviderGitHub, "7")
	if ident == nil || ident.UserID != u.ID {
		t.Errorf("identity = %+v, want linked to %s", ident, u.ID)
	}
}

func TestAuthenticateWithGitHub_Failures(t *testing.T) {
	tests := []struct {
		name    string
		profile *github.Profile
		err     error
		want    apperr.Kind
	}{
		{"no email", &github.Profile{ID: "1"}, nil, apperr.KindBadRequest},
		{"bad code", nil, &oauth2.RetrieveError{ErrorCode: "bad_verification_code"}, apperr.KindBadRequest},
		{"not configured", nil, github.ErrNotConfigured, apperr.KindBadRequest},
		{"upstream down", nil, errors.New("dial tcp: refused"), apperr.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			f.gh.profile, f.gh.err = tt.profile, tt.err
			_, err := f.svc.AuthenticateWithGitHub(context.Background(), "code")
			if err == nil || apperr.KindOf(err) != tt.want {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			if len(f.users.byID) != 0 {
				t.Error("no user should be created")
			}
		})
	}
}

func TestAuthenticateWithGitHub_Disabled(t *testing.T) {
	f := newAuthFixture(t)
	f.svc.github = nil
	_, err := f.svc.AuthenticateWithGitHub(context.Background(), "code")
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("got %v, want bad request", err)
	}
}

func TestGetProfile(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, err := f.svc.CreateAccount(ctx, "Jane", "jane@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	got, err := f.svc.GetProfile(ctx, u.ID)
	if err != nil || got.Email != "jane@example.com" {
		t.Errorf("GetProfile = %+v, %v", got, err)
	}
	if _, err := f.svc.GetProfile(ctx, "missing"); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("missing user: got %v", err)
	}
}

func TestPasswordRecoverAndReset(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u, err := f.svc.CreateAccount(ctx, "Jane", "jane@example.com", "secret123")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	if err := f.svc.RequestPasswordRecover(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown email should succeed silently: %v", err)
	}
	if len(f.tokens.tokens) != 0 {
		t.Fatal("no token for unknown email")
	}
	if err := f.svc.RequestPasswordRecover(ctx, "jane@@example.com"); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("malformed email: got %v, want bad request", err)
	}

	if err := f.svc.RequestPasswordRecover(ctx, "jane@example.com"); err != nil {
		t.Fatalf("RequestPasswordRecover: %v", err)
	}
	if len(f.tokens.tokens) != 1 {
		t.Fatalf("tokens = %d, want 1", len(f.tokens.tokens))
	}
	// The plain code is never stored; plant a known one.
	code := "known-code"
	f.tokens.tokens[0].CodeHash = security.HashRecoveryCode(code)

	if err := f.svc.ResetPassword(ctx, "wrong-code", "newpass1"); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("wrong code: got %v, want unauthorized", err)
	}
	if err := f.svc.ResetPassword(ctx, code, "newpass1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if len(f.tokens.tokens) != 0 {
		t.Error("recovery tokens should be deleted after reset")
	}
	if _, err := f.svc.AuthenticateWithPassword(ctx, u.Email, "newpass1"); err != nil {
		t.Errorf("sign-in with new password: %v", err)
	}
	if err := f.svc.ResetPassword(ctx, code, "again123"); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("reused code: got %v, want unauthorized", err)
	}
}

func TestResetPassword_Expired(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.tokens.tokens = append(f.tokens.tokens, &identitydomain.Token{
		ID:        "t1",
		Type:      identitydomain.TokenPasswordRecover,
		UserID:    "u1",
		CodeHash:  security.HashRecoveryCode("c"),
		ExpiresAt: time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
	})
	f.svc.now = func() time.Time { return time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC) }

	if err := f.svc.ResetPassword(ctx, "c", "newpass1"); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("got %v, want unauthorized", err)
	}
}
