package bootstrap

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"paginas/internal/api"
	"paginas/internal/config"
	"paginas/internal/demo"
	"paginas/internal/migrate"
	"paginas/internal/observability"
	"paginas/internal/ratelimit"
	"paginas/internal/store"

	_ "github.com/jackc/pgx/v5/stdlib"

	_ "modernc.org/sqlite"
)

type Runtime struct {
	Handler http.Handler
	Cleanup func()
}

func NewRuntime(ctx context.Context, cfg config.Config, logger logr.Logger) (*Runtime, error) {
	repo, repoCleanup, err := buildRepository(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	limiter, limiterCleanup, err := buildLimiter(ctx, cfg, logger)
	if err != nil {
		repoCleanup()
		return nil, err
	}

	server := api.NewServerWithOptions(repo, limiter, api.ServerOptions{
		Session: api.SessionPolicy{
			Issuer:            cfg.Auth.JWT.Issuer,
			Audience:          cfg.Auth.JWT.Audience,
			HS256Secret:       cfg.Auth.JWT.HS256Secret,
			RS256PublicKeyPEM: cfg.Auth.JWT.RS256PublicKeyPEM,
			JWKSURL:           cfg.Auth.JWT.JWKSURL,
			JWKSRefresh:       cfg.Auth.JWT.JWKSRefresh,
			TTL:               cfg.Auth.SessionTTL,
			PasswordPepper:    cfg.Auth.PasswordPepper,
		},
		Audit: api.AuditPolicy{
			LogFile: cfg.Auth.Audit.LogFile,
		},
		Billing: api.BillingPolicy{
			WebhookSecret: cfg.Billing.WebhookSecret,
			WebhookHeader: cfg.Billing.WebhookHeader,
			PortalBaseURL: cfg.Billing.PortalBaseURL,
		},
		ClientIP: api.ClientIPPolicy{
			TrustProxy: cfg.HTTP.TrustProxy,
			Header:     cfg.HTTP.ClientIPHeader,
		},
		FailurePolicy: cfg.RateLimit.FailurePolicy,
		Logger:        logger.WithName("api"),
	})

	metrics := observability.NewHTTPMetrics()
	rootMux := http.NewServeMux()
	rootMux.Handle("/metrics", promhttp.Handler())
	rootMux.Handle("/", metrics.Wrap(server.Routes()))

	return &Runtime{
		Handler: rootMux,
		Cleanup: func() {
			limiterCleanup()
			repoCleanup()
		},
	}, nil
}

func buildRepository(ctx context.Context, cfg config.Config, logger logr.Logger) (store.Repository, func(), error) {
	if cfg.DBDriver == "" || cfg.DBDSN == "" {
		repo := store.NewMemoryRepository()
		logger.Info("running with in-memory repository")
		if cfg.DevInsecure {
			pepper := cfg.Auth.PasswordPepper
			if err := demo.Seed(ctx, repo, func(p string) string { return api.PasswordDigest(p, pepper) }); err != nil {
				return nil, nil, err
			}
			logger.Info("demo workspace seeded", "tenant", demo.TenantID, "admin", demo.AdminEmail)
		}
		return repo, func() {}, nil
	}
	db, err := sql.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if cfg.DBMigrate {
		runner := migrate.NewRunner(os.DirFS("."))
		applied, err := runner.Apply(ctx, db, cfg.DBDialect)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", "dialect", cfg.DBDialect, "files", applied)
		}
	}
	repo, err := store.NewSQLRepository(db, cfg.DBDialect)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	logger.Info("running with SQL repository", "dialect", cfg.DBDialect)
	return repo, func() { _ = db.Close() }, nil
}

// buildLimiter assembles the admission limiter for the configured backend.
// The memory backend additionally runs the expired-counter sweeper; the
// Redis backend expires records server-side.
func buildLimiter(ctx context.Context, cfg config.Config, logger logr.Logger) (*ratelimit.Limiter, func(), error) {
	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}
	clock := ratelimit.SystemClock()
	metrics := ratelimit.NewMetrics()

	switch cfg.RateLimit.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.Redis.Addr,
			Password: cfg.RateLimit.Redis.Password,
			DB:       cfg.RateLimit.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		counters := ratelimit.NewRedisStoreWithTimeout(client, cfg.RateLimit.Redis.OpTimeout)
		engine := ratelimit.NewEngine(counters, clock)
		logger.Info("rate limit backend ready", "backend", "redis", "addr", cfg.RateLimit.Redis.Addr)
		return ratelimit.NewLimiter(engine, registry, metrics), func() { _ = counters.Close() }, nil
	default:
		counters := ratelimit.NewMemoryStore()
		engine := ratelimit.NewEngine(counters, clock)
		sweeper := ratelimit.NewSweeper(counters, clock, cfg.RateLimit.SweepSchedule, logger.WithName("sweeper"))
		if err := sweeper.Start(ctx); err != nil {
			return nil, nil, err
		}
		logger.Info("rate limit backend ready", "backend", "memory", "sweep_schedule", cfg.RateLimit.SweepSchedule)
		return ratelimit.NewLimiter(engine, registry, metrics), sweeper.Stop, nil
	}
}

func buildRegistry(cfg config.Config) (*ratelimit.Registry, error) {
	configs := ratelimit.DefaultProfiles()
	for name, override := range cfg.RateLimit.Profiles {
		profile := ratelimit.Profile(name)
		base, ok := configs[profile]
		if !ok {
			continue
		}
		if override.MaxRequests > 0 {
			base.MaxRequests = override.MaxRequests
		}
		if override.WindowSeconds > 0 {
			base.WindowSeconds = override.WindowSeconds
		}
		configs[profile] = base
	}
	return ratelimit.NewRegistry(configs)
}
