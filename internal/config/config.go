// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :3333).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// MigrateOnStart applies pending migrations before the server starts listening.
	MigrateOnStart bool `mapstructure:"MIGRATE_ON_START"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "168h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31).
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	GitHubClientID     string `mapstructure:"GITHUB_OAUTH_CLIENT_ID"`
	GitHubClientSecret string `mapstructure:"GITHUB_OAUTH_CLIENT_SECRET"`
	GitHubRedirectURI  string `mapstructure:"GITHUB_OAUTH_REDIRECT_URI"`

	// PasswordRecoverTTL is how long a password recovery code stays valid (e.g. "1h").
	PasswordRecoverTTL string `mapstructure:"PASSWORD_RECOVER_TTL"`
	// RecoverCodeToLog logs recovery codes instead of mailing them. Dev only; rejected when Env is production.
	RecoverCodeToLog bool `mapstructure:"RECOVER_CODE_TO_LOG"`

	// AuthRateLimitPerMinute caps requests per client IP on the sign-in and recovery routes.
	AuthRateLimitPerMinute int `mapstructure:"AUTH_RATE_LIMIT_PER_MINUTE"`

	// TrustedProxies is a comma-separated list of IPs or CIDRs of reverse proxies whose
	// client-IP headers are honored. Empty means the socket peer is always the client.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`

	// Env is the application environment (e.g. "development", "production").
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// OTelEndpoint is the OTLP gRPC collector; empty disables export.
	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	// When empty, domain events go to the OTel log pipeline only.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for domain events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group cmd/worker joins.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":3333")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MIGRATE_ON_START", false)
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "saas-api")
	v.SetDefault("JWT_AUDIENCE", "saas-app")
	v.SetDefault("JWT_ACCESS_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	v.SetDefault("GITHUB_OAUTH_CLIENT_ID", "")
	v.SetDefault("GITHUB_OAUTH_CLIENT_SECRET", "")
	v.SetDefault("GITHUB_OAUTH_REDIRECT_URI", "")
	v.SetDefault("PASSWORD_RECOVER_TTL", "1h")
	v.SetDefault("RECOVER_CODE_TO_LOG", false)
	v.SetDefault("AUTH_RATE_LIMIT_PER_MINUTE", 20)
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "saas-api")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "saas-events")
	v.SetDefault("KAFKA_GROUP_ID", "saas-events-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail later at runtime.
// DATABASE_URL and the JWT keys are checked by RequireServer, since cmd/migrate does not need keys.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if d, err := time.ParseDuration(c.JWTAccessTTL); err != nil || d <= 0 {
		return errors.New("config: JWT_ACCESS_TTL must be a positive duration")
	}
	if d, err := time.ParseDuration(c.PasswordRecoverTTL); err != nil || d <= 0 {
		return errors.New("config: PASSWORD_RECOVER_TTL must be a positive duration")
	}
	if c.RecoverCodeToLog && c.IsProduction() {
		return errors.New("config: RECOVER_CODE_TO_LOG must not be true when APP_ENV=production")
	}
	if c.AuthRateLimitPerMinute <= 0 {
		return errors.New("config: AUTH_RATE_LIMIT_PER_MINUTE must be positive")
	}
	if _, err := c.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// RequireServer checks the settings only the API server needs.
func (c *Config) RequireServer() error {
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set")
	}
	if c.JWTPrivateKey == "" || c.JWTPublicKey == "" {
		return errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set")
	}
	if c.JWTIssuer == "" || c.JWTAudience == "" {
		return errors.New("config: JWT_ISSUER and JWT_AUDIENCE must be set")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// AccessTTL parses JWTAccessTTL. Returns 168h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// RecoverTTL parses PasswordRecoverTTL. Returns 1h if unset or invalid.
func (c *Config) RecoverTTL() time.Duration {
	d, err := time.ParseDuration(c.PasswordRecoverTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// TrustedProxyPrefixes parses TrustedProxies. A bare IP becomes a single-address prefix.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	if c == nil || c.TrustedProxies == "" {
		return nil, nil
	}
	var out []netip.Prefix
	for _, part := range strings.Split(c.TrustedProxies, ",") {
		s := strings.TrimSpace(part)
		if s == "" {
			continue
		}
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
