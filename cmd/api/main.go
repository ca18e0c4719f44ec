// Package main is the entry point for the DTTools API server.
//
// It loads configuration, opens the Postgres pool and Redis client, wires the
// domain services into the core server chassis, mounts the handler routes
// with their limit gates, and serves HTTP until a shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"dttools/internal/api/handlers"
	"dttools/internal/auth"
	"dttools/internal/config"
	"dttools/internal/core"
	"dttools/internal/db"
	"dttools/internal/entitlement"
	"dttools/internal/external"
	"dttools/internal/usage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("dttools API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()

	pool, err := newDBPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password.Unmask(),
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	defer rdb.Close()

	// Repositories.
	users := db.NewUserRepository(pool)
	sessions := db.NewSessionRepository(pool)
	projects := db.NewProjectRepository(pool)
	personas := db.NewPersonaRepository(pool)
	diamonds := db.NewDoubleDiamondRepository(pool)
	invites := db.NewInviteRepository(pool)
	exports := db.NewExportRepository(pool)
	plans := db.NewPlanRepository(pool)
	subs := db.NewSubscriptionRepository(pool)
	addons := db.NewAddonRepository(pool)

	// Domain services.
	aiCounter := usage.NewRedisAIChatCounter(rdb)
	usageSvc := usage.NewService(projects, personas, diamonds, invites, aiCounter)
	entitlements := entitlement.NewService(users, plans, subs, addons, logger)

	tokenGen := auth.NewCryptoTokenGenerator()
	sessionCfg := auth.DefaultSessionConfig()
	if cfg.Auth.SessionDuration > 0 {
		sessionCfg.SessionDuration = cfg.Auth.SessionDuration
	}
	sessionSvc := auth.NewSessionService(sessions, tokenGen, sessionCfg, nil, logger)
	authSvc := auth.NewService(auth.ServiceConfig{
		UserRepo:       users,
		SessionService: sessionSvc,
		Logger:         logger,
	})
	authenticator := auth.NewAuthenticator(sessionSvc, users, logger)

	// External integrations.
	httpClient := &http.Client{Timeout: 30 * time.Second}
	stripeClient := external.NewStripeClient(httpClient, users, external.StripeClientConfig{
		SecretKey: cfg.Billing.StripeSecretKey.Unmask(),
		Logger:    logger,
	})
	webhookVerifier := &external.StripeWebhookVerifier{
		Secret: cfg.Billing.StripeWebhookSecret.Unmask(),
	}
	aiProvider := newAIProvider(cfg, logger)

	// Server chassis.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Authenticator = authenticator
	srv.Entitlements = entitlements
	srv.Usage = usageSvc
	srv.HealthProbes = []core.HealthProbe{
		&postgresProbe{pool: pool},
		&redisProbe{client: rdb},
	}

	// Handlers. Limit gates are Server methods; each handler receives the
	// gates its routes sit behind so all enforcement wiring is visible here.
	authHandler := handlers.NewAuthHandler(authSvc, users, srv.Validator, logger)
	projectHandler := handlers.NewProjectHandler(projects, srv.Validator, logger)
	personaHandler := handlers.NewPersonaHandler(personas, projects, srv.Validator, logger)
	diamondHandler := handlers.NewDoubleDiamondHandler(diamonds, srv.Validator, logger)
	exportHandler := handlers.NewExportHandler(projects, personas, exports, logger)
	inviteHandler := handlers.NewInviteHandler(invites, projects, tokenGen, srv.Validator, logger)
	subscriptionHandler := handlers.NewSubscriptionHandler(entitlements, usageSvc, logger)
	billingHandler := handlers.NewBillingHandler(stripeClient, plans, cfg, srv.Validator, logger)
	webhookHandler := handlers.NewStripeWebhookHandler(webhookVerifier, users, subs, addons, logger)
	planHandler := handlers.NewPlanHandler(plans, srv.Validator, logger)
	adminHandler := handlers.NewAdminHandler(users, addons, srv.Validator, logger)
	aiHandler := handlers.NewAIChatHandler(aiProvider, aiCounter, nil, srv.Validator, logger)

	srv.APIRouteRegistrars = append(srv.APIRouteRegistrars,
		func(r chi.Router) { authHandler.RegisterRoutes(r) },
		func(r chi.Router) { projectHandler.RegisterRoutes(r, srv.ProjectCreationGate) },
		func(r chi.Router) { personaHandler.RegisterRoutes(r, srv.PersonaCreationGate) },
		func(r chi.Router) {
			diamondHandler.RegisterRoutes(r, srv.DoubleDiamondCreationGate, srv.DoubleDiamondExportGate)
		},
		func(r chi.Router) { inviteHandler.RegisterRoutes(r, srv.CollaborationGate) },
		func(r chi.Router) { subscriptionHandler.RegisterRoutes(r) },
		func(r chi.Router) { billingHandler.RegisterRoutes(r) },
		func(r chi.Router) { webhookHandler.RegisterRoutes(r) },
		func(r chi.Router) { planHandler.RegisterRoutes(r, srv.RequireAdmin) },
		func(r chi.Router) { adminHandler.RegisterRoutes(r, srv.RequireAdmin) },
	)
	if cfg.Feature.EnableExports {
		srv.APIRouteRegistrars = append(srv.APIRouteRegistrars,
			func(r chi.Router) { exportHandler.RegisterRoutes(r, srv.ExportFormatGate) },
		)
	}
	if cfg.Feature.EnableAIChat {
		srv.APIRouteRegistrars = append(srv.APIRouteRegistrars,
			func(r chi.Router) { aiHandler.RegisterRoutes(r, srv.AIChatGate) },
		)
	}

	srv.MountRoutes()

	return serve(srv, cfg, logger)
}

// newDBPool builds the pgx connection pool from the database configuration.
func newDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.Database.HealthCheckPeriod
	poolCfg.ConnConfig.ConnectTimeout = cfg.Database.AcquireTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// newAIProvider selects the chat provider from configuration. The static
// provider keeps local development working without an API key.
func newAIProvider(cfg *config.Config, logger *slog.Logger) external.AIProvider {
	if cfg.AI.Provider == "http" && cfg.AI.APIKey.Unmask() != "" {
		return external.NewHTTPAIProvider(
			&http.Client{Timeout: cfg.AI.Timeout},
			external.AIClientConfig{
				APIKey:  cfg.AI.APIKey.Unmask(),
				BaseURL: cfg.AI.BaseURL,
				Logger:  logger,
			},
		)
	}
	return &external.StaticAIProvider{}
}

// serve runs the HTTP server until a shutdown signal or listener failure.
func serve(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates the process logger. Local runs get tinted console output;
// everything else emits JSON for log aggregation.
func newLogger(cfg *config.Config) *slog.Logger {
	lvl := parseLogLevel(cfg.LogLevel)

	if cfg.Environment == "local" {
		return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: lvl}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// postgresProbe reports database health for the health endpoint.
type postgresProbe struct {
	pool *pgxpool.Pool
}

func (p *postgresProbe) Name() string { return "database" }

func (p *postgresProbe) Check(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// redisProbe reports usage counter store health for the health endpoint.
type redisProbe struct {
	client *redis.Client
}

func (p *redisProbe) Name() string { return "redis" }

func (p *redisProbe) Check(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
