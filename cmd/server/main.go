// Server runs the HTTP API. Configuration comes from the environment or a .env file; see internal/config.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"saas-control-plane/backend/internal/audit"
	audithandler "saas-control-plane/backend/internal/audit/handler"
	auditrepo "saas-control-plane/backend/internal/audit/repository"
	"saas-control-plane/backend/internal/billing"
	billinghandler "saas-control-plane/backend/internal/billing/handler"
	"saas-control-plane/backend/internal/config"
	"saas-control-plane/backend/internal/db"
	"saas-control-plane/backend/internal/db/migrate"
	healthhandler "saas-control-plane/backend/internal/health/handler"
	"saas-control-plane/backend/internal/identity/github"
	identityhandler "saas-control-plane/backend/internal/identity/handler"
	identityrepo "saas-control-plane/backend/internal/identity/repository"
	identityservice "saas-control-plane/backend/internal/identity/service"
	invitehandler "saas-control-plane/backend/internal/invite/handler"
	inviterepo "saas-control-plane/backend/internal/invite/repository"
	inviteservice "saas-control-plane/backend/internal/invite/service"
	"saas-control-plane/backend/internal/logger"
	membershiphandler "saas-control-plane/backend/internal/membership/handler"
	membershiprepo "saas-control-plane/backend/internal/membership/repository"
	membershipservice "saas-control-plane/backend/internal/membership/service"
	"saas-control-plane/backend/internal/metrics"
	organizationhandler "saas-control-plane/backend/internal/organization/handler"
	organizationrepo "saas-control-plane/backend/internal/organization/repository"
	organizationservice "saas-control-plane/backend/internal/organization/service"
	"saas-control-plane/backend/internal/platform/rbac"
	projecthandler "saas-control-plane/backend/internal/project/handler"
	projectrepo "saas-control-plane/backend/internal/project/repository"
	projectservice "saas-control-plane/backend/internal/project/service"
	"saas-control-plane/backend/internal/security"
	"saas-control-plane/backend/internal/server"
	"saas-control-plane/backend/internal/server/middleware"
	"saas-control-plane/backend/internal/telemetry"
	telemetryotel "saas-control-plane/backend/internal/telemetry/otel"
	"saas-control-plane/backend/internal/telemetry/producer"
	userrepo "saas-control-plane/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	if err := cfg.RequireServer(); err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := logger.SetupDefault(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		return err
	}
	providers.SetGlobal()

	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.TelemetryKafkaTopic)
	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		log.Info("kafka event producer enabled", "topic", cfg.TelemetryKafkaTopic)
	}
	emitter := telemetry.NewMulti(emitters...)

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if cfg.MigrateOnStart {
		if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		log.Info("migrations applied")
	}

	signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		return err
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	users := userrepo.NewPostgresRepository(conn)
	identities := identityrepo.NewPostgresRepository(conn)
	recoverTokens := identityrepo.NewTokenPostgresRepository(conn)
	orgs := organizationrepo.NewPostgresRepository(conn)
	members := membershiprepo.NewPostgresRepository(conn)
	invites := inviterepo.NewPostgresRepository(conn)
	projects := projectrepo.NewPostgresRepository(conn)
	auditLogs := auditrepo.NewPostgresRepository(conn)

	resolver := rbac.NewResolver(members)

	// A typed nil *github.Client must not reach the service as a non-nil interface.
	var gh identityservice.GitHubProfiles
	if cfg.GitHubEnabled() {
		client, err := github.NewClient(github.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubRedirectURI,
		})
		if err != nil {
			return err
		}
		gh = client
	}

	authSvc := identityservice.NewAuthService(users, identities, recoverTokens, orgs, hasher, tokens, gh, identityservice.Options{
		RecoverTTL:     cfg.RecoverTTL(),
		LogRecoverCode: cfg.RecoverCodeToLog,
	}, emitter, collector)
	orgSvc := organizationservice.NewService(orgs, resolver, emitter)
	memberSvc := membershipservice.NewService(members, resolver, emitter)
	inviteSvc := inviteservice.NewService(invites, members, users, resolver, emitter, collector)
	projectSvc := projectservice.NewService(projects, resolver)
	billingSvc := billing.NewService(members, projects, resolver)
	auditSvc := audit.NewService(auditLogs, resolver)

	trustedProxies, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return err
	}

	authLimiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.AuthRateLimitPerMinute))
	defer authLimiter.Stop()

	handler := server.NewRouter(server.Deps{
		Logger:         log,
		ServiceName:    cfg.OTelServiceName,
		Tokens:         tokens,
		Identity:       identityhandler.NewHandler(authSvc),
		Organizations:  organizationhandler.NewHandler(orgSvc),
		Members:        membershiphandler.NewHandler(memberSvc),
		Invites:        invitehandler.NewHandler(inviteSvc),
		Projects:       projecthandler.NewHandler(projectSvc),
		Billing:        billinghandler.NewHandler(billingSvc),
		AuditLogs:      audithandler.NewHandler(auditSvc),
		Health:         healthhandler.NewHandler(conn),
		AuditLogger:    audit.NewLogger(auditLogs, middleware.ClientIPFromContext),
		Orgs:           orgs,
		TrustedProxies: trustedProxies,
		AuthLimiter:    authLimiter,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
		Emitter:        emitter,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", cfg.HTTPAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}

	// In-flight EmitAsync calls finish before the exporters close.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error("telemetry shutdown", "error", err)
	}
	if err := kafkaProducer.Close(); err != nil {
		log.Error("kafka producer close", "error", err)
	}
	log.Info("HTTP server stopped")
	return nil
}
