// Package github exchanges a GitHub OAuth code for the signed-in user's profile.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	githubendpoint "golang.org/x/oauth2/github"
)

// DefaultAPIBaseURL is the public GitHub REST API.
const DefaultAPIBaseURL = "https://api.github.com"

// ErrNotConfigured is returned when no client id or secret is set.
var ErrNotConfigured = errors.New("github: oauth client is not configured")

// Profile is the subset of GET /user the API uses. Email is empty when the user keeps it private.
type Profile struct {
	ID        string
	Name      string
	Email     string
	AvatarURL string
}

// Config configures Client.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Endpoint overrides the OAuth endpoints; zero means github.com.
	Endpoint oauth2.Endpoint
	// APIBaseURL overrides DefaultAPIBaseURL.
	APIBaseURL string
	// HTTPClient is used for the token exchange and API calls; nil means http.DefaultClient.
	HTTPClient *http.Client
}

// Client implements the code exchange and profile fetch.
type Client struct {
	oauth      *oauth2.Config
	apiBase    string
	httpClient *http.Client
}

// NewClient returns a Client, or ErrNotConfigured when credentials are missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrNotConfigured
	}
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = githubendpoint.Endpoint
	}
	apiBase := strings.TrimSuffix(cfg.APIBaseURL, "/")
	if apiBase == "" {
		apiBase = DefaultAPIBaseURL
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBase:    apiBase,
		httpClient: cfg.HTTPClient,
	}, nil
}

// FetchProfile exchanges code for an access token and loads the GitHub user it belongs to.
func (c *Client) FetchProfile(ctx context.Context, code string) (*Profile, error) {
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("github: exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := c.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("github: fetch user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("github: user request failed with status %d: %s", resp.StatusCode, body)
	}

	var u struct {
		ID        int64   `json:"id"`
		Login     string  `json:"login"`
		Name      *string `json:"name"`
		Email     *string `json:"email"`
		AvatarURL string  `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("github: decode user: %w", err)
	}
	if u.ID == 0 {
		return nil, errors.New("github: missing user id")
	}
	p := &Profile{ID: strconv.FormatInt(u.ID, 10), AvatarURL: u.AvatarURL, Name: u.Login}
	if u.Name != nil && *u.Name != "" {
		p.Name = *u.Name
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	return p, nil
}
