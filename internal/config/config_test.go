package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PAGINAS_ADDR",
		"PAGINAS_DEV_INSECURE",
		"PAGINAS_DB_DRIVER",
		"PAGINAS_DB_DSN",
		"PAGINAS_DB_DIALECT",
		"PAGINAS_AUTH_JWT_HS256_SECRET",
		"PAGINAS_AUTH_PASSWORD_PEPPER",
		"PAGINAS_RATE_LIMIT_BACKEND",
		"PAGINAS_RATE_LIMIT_FAILURE_POLICY",
		"PAGINAS_RATE_LIMIT_SWEEP_SCHEDULE",
		"PAGINAS_RATE_LIMIT_REDIS_ADDR",
		"PAGINAS_RATE_LIMIT_REDIS_OP_TIMEOUT",
		"PAGINAS_BILLING_WEBHOOK_SECRET",
		"PAGINAS_HTTP_TRUST_PROXY",
		"PAGINAS_TLS_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	cfg := LoadFromEnv()
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.Addr)
	}
	if cfg.RateLimit.Backend != "memory" {
		t.Fatalf("expected memory limiter backend by default, got %q", cfg.RateLimit.Backend)
	}
	if cfg.RateLimit.FailurePolicy != FailOpen {
		t.Fatalf("expected fail_open by default, got %q", cfg.RateLimit.FailurePolicy)
	}
	if cfg.RateLimit.Redis.OpTimeout != 200*time.Millisecond {
		t.Fatalf("expected 200ms redis op timeout, got %s", cfg.RateLimit.Redis.OpTimeout)
	}
	if cfg.HTTP.TrustProxy {
		t.Fatalf("proxy headers must not be trusted by default")
	}
	if cfg.Billing.WebhookHeader != "X-Paginas-Signature" {
		t.Fatalf("unexpected webhook header default %q", cfg.Billing.WebhookHeader)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAGINAS_RATE_LIMIT_BACKEND", "redis")
	t.Setenv("PAGINAS_RATE_LIMIT_REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("PAGINAS_RATE_LIMIT_FAILURE_POLICY", "fail_closed")
	t.Setenv("PAGINAS_HTTP_TRUST_PROXY", "true")

	cfg := LoadFromEnv()
	if cfg.RateLimit.Backend != "redis" {
		t.Fatalf("expected redis backend, got %q", cfg.RateLimit.Backend)
	}
	if cfg.RateLimit.Redis.Addr != "127.0.0.1:6379" {
		t.Fatalf("redis addr not applied, got %q", cfg.RateLimit.Redis.Addr)
	}
	if cfg.RateLimit.FailurePolicy != FailClosed {
		t.Fatalf("expected fail_closed, got %q", cfg.RateLimit.FailurePolicy)
	}
	if !cfg.HTTP.TrustProxy {
		t.Fatalf("trust_proxy override not applied")
	}
}

func TestValidateRequiresSessionAuth(t *testing.T) {
	clearEnv(t)
	cfg := LoadFromEnv()
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation failure without session auth")
	}
	if !strings.Contains(err.Error(), "session auth") {
		t.Fatalf("unexpected validation message: %v", err)
	}

	cfg.DevInsecure = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("dev_insecure must bypass session auth requirement: %v", err)
	}
}

func TestValidateRedisBackendNeedsAddr(t *testing.T) {
	clearEnv(t)
	cfg := LoadFromEnv()
	cfg.DevInsecure = true
	cfg.RateLimit.Backend = "redis"
	cfg.RateLimit.Redis.Addr = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "REDIS_ADDR") {
		t.Fatalf("expected redis addr validation failure, got %v", err)
	}
}

func TestValidateRejectsUnknownFailurePolicy(t *testing.T) {
	clearEnv(t)
	cfg := LoadFromEnv()
	cfg.DevInsecure = true
	cfg.RateLimit.FailurePolicy = "maybe"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "FAILURE_POLICY") {
		t.Fatalf("expected failure policy validation failure, got %v", err)
	}
}

func TestSummary(t *testing.T) {
	clearEnv(t)
	cfg := LoadFromEnv()
	cfg.DBDriver = "pgx"
	cfg.DBDialect = "postgres"
	cfg.DBDSN = "postgres://u:p@localhost:5432/paginas"
	s := cfg.Summary()
	if s.RepositoryMode != "sql:postgres" {
		t.Fatalf("expected sql:postgres, got %q", s.RepositoryMode)
	}
	if s.LimiterBackend != "memory" {
		t.Fatalf("expected memory limiter, got %q", s.LimiterBackend)
	}
}
