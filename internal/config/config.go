package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr        string `mapstructure:"addr"`
	DevInsecure bool   `mapstructure:"dev_insecure"`

	DBDriver   string `mapstructure:"db_driver"`
	DBDSN      string `mapstructure:"db_dsn"`
	DBDialect  string `mapstructure:"db_dialect"`
	DBMigrate  bool   `mapstructure:"db_migrate"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBName     string `mapstructure:"db_name"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`

	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Billing   BillingConfig   `mapstructure:"billing"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	TLS       TLSConfig       `mapstructure:"tls"`
}

type AuthConfig struct {
	JWT            JWTAuth   `mapstructure:"jwt"`
	Audit          AuditAuth `mapstructure:"audit"`
	PasswordPepper string    `mapstructure:"password_pepper"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
}

type JWTAuth struct {
	Issuer            string        `mapstructure:"issuer"`
	Audience          string        `mapstructure:"audience"`
	HS256Secret       string        `mapstructure:"hs256_secret"`
	RS256PublicKeyPEM string        `mapstructure:"rs256_public_key_pem"`
	JWKSURL           string        `mapstructure:"jwks_url"`
	JWKSRefresh       time.Duration `mapstructure:"jwks_refresh"`
}

type AuditAuth struct {
	LogFile string `mapstructure:"log_file"`
}

type RateLimitConfig struct {
	Backend       string                     `mapstructure:"backend"`
	FailurePolicy string                     `mapstructure:"failure_policy"`
	SweepSchedule string                     `mapstructure:"sweep_schedule"`
	Redis         RedisConfig                `mapstructure:"redis"`
	Profiles      map[string]ProfileOverride `mapstructure:"profiles"`
}

type RedisConfig struct {
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

// ProfileOverride replaces one shipped profile's numbers. Zero fields keep
// the shipped value.
type ProfileOverride struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type BillingConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
	WebhookHeader string `mapstructure:"webhook_header"`
	PortalBaseURL string `mapstructure:"portal_base_url"`
}

type HTTPConfig struct {
	TrustProxy     bool   `mapstructure:"trust_proxy"`
	ClientIPHeader string `mapstructure:"client_ip_header"`
}

type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

const (
	FailOpen   = "fail_open"
	FailClosed = "fail_closed"
)

func LoadFromEnv() Config {
	v := viper.New()
	v.SetEnvPrefix("PAGINAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("dev_insecure", false)
	v.SetDefault("db_migrate", true)
	v.SetDefault("auth.jwt.jwks_refresh", 5*time.Minute)
	v.SetDefault("auth.session_ttl", 12*time.Hour)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.failure_policy", FailOpen)
	v.SetDefault("rate_limit.sweep_schedule", "@every 5m")
	v.SetDefault("rate_limit.redis.op_timeout", 200*time.Millisecond)
	v.SetDefault("billing.webhook_header", "X-Paginas-Signature")
	v.SetDefault("http.trust_proxy", false)
	v.SetDefault("http.client_ip_header", "X-Forwarded-For")
	v.SetDefault("tls.enabled", false)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/paginas/")

	_ = v.ReadInConfig() // ignore if not found

	// Explicit binds for nested keys so env vars map reliably.
	bindings := map[string]string{
		"auth.jwt.issuer":              "PAGINAS_AUTH_JWT_ISSUER",
		"auth.jwt.audience":            "PAGINAS_AUTH_JWT_AUDIENCE",
		"auth.jwt.hs256_secret":        "PAGINAS_AUTH_JWT_HS256_SECRET",
		"auth.jwt.rs256_public_key_pem": "PAGINAS_AUTH_JWT_RS256_PUBLIC_KEY_PEM",
		"auth.jwt.jwks_url":            "PAGINAS_AUTH_JWT_JWKS_URL",
		"auth.jwt.jwks_refresh":        "PAGINAS_AUTH_JWT_JWKS_REFRESH",
		"auth.audit.log_file":          "PAGINAS_AUTH_AUDIT_LOG_FILE",
		"auth.password_pepper":         "PAGINAS_AUTH_PASSWORD_PEPPER",
		"auth.session_ttl":             "PAGINAS_AUTH_SESSION_TTL",
		"rate_limit.backend":           "PAGINAS_RATE_LIMIT_BACKEND",
		"rate_limit.failure_policy":    "PAGINAS_RATE_LIMIT_FAILURE_POLICY",
		"rate_limit.sweep_schedule":    "PAGINAS_RATE_LIMIT_SWEEP_SCHEDULE",
		"rate_limit.redis.addr":        "PAGINAS_RATE_LIMIT_REDIS_ADDR",
		"rate_limit.redis.password":    "PAGINAS_RATE_LIMIT_REDIS_PASSWORD",
		"rate_limit.redis.db":          "PAGINAS_RATE_LIMIT_REDIS_DB",
		"rate_limit.redis.op_timeout":  "PAGINAS_RATE_LIMIT_REDIS_OP_TIMEOUT",
		"billing.webhook_secret":       "PAGINAS_BILLING_WEBHOOK_SECRET",
		"billing.webhook_header":       "PAGINAS_BILLING_WEBHOOK_HEADER",
		"billing.portal_base_url":      "PAGINAS_BILLING_PORTAL_BASE_URL",
		"http.trust_proxy":             "PAGINAS_HTTP_TRUST_PROXY",
		"http.client_ip_header":        "PAGINAS_HTTP_CLIENT_IP_HEADER",
		"tls.cert_file":                "PAGINAS_TLS_CERT_FILE",
		"tls.key_file":                 "PAGINAS_TLS_KEY_FILE",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		fmt.Printf("Warning: failed to unmarshal config: %v\n", err)
	}

	if val := v.GetString("db_driver"); val != "" {
		cfg.DBDriver = val
	}
	if val := v.GetString("db_dsn"); val != "" {
		cfg.DBDSN = val
	}
	if val := v.GetString("db_dialect"); val != "" {
		cfg.DBDialect = val
	}
	if val := v.GetString("db_host"); val != "" {
		cfg.DBHost = val
	}
	if val := v.GetString("db_port"); val != "" {
		cfg.DBPort = val
	}
	if val := v.GetString("db_name"); val != "" {
		cfg.DBName = val
	}
	if val := v.GetString("db_user"); val != "" {
		cfg.DBUser = val
	}
	if val := v.GetString("db_password"); val != "" {
		cfg.DBPassword = val
	}
	if v.GetBool("tls.enabled") {
		cfg.TLS.Enabled = true
	}

	if cfg.DBDialect == "" {
		cfg.DBDialect = cfg.DBDriver
	}
	if cfg.DBDialect == "pgx" {
		cfg.DBDialect = "postgres"
	}
	if cfg.DBDSN == "" {
		cfg.DBDSN = buildDSNFromParts(cfg)
	}
	return cfg
}

func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "PAGINAS_ADDR must not be empty")
	}
	if c.DBDriver != "" && c.DBDSN == "" {
		problems = append(problems, "database connection is not configured; set PAGINAS_DB_DSN or PAGINAS_DB_HOST/PAGINAS_DB_PORT/PAGINAS_DB_NAME/PAGINAS_DB_USER/PAGINAS_DB_PASSWORD")
	}
	if c.DBDSN != "" && c.DBDriver == "" {
		problems = append(problems, "PAGINAS_DB_DRIVER is required when PAGINAS_DB_DSN is set")
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		problems = append(problems, "PAGINAS_RATE_LIMIT_BACKEND must be: memory or redis")
	}
	if c.RateLimit.Backend == "redis" && strings.TrimSpace(c.RateLimit.Redis.Addr) == "" {
		problems = append(problems, "PAGINAS_RATE_LIMIT_REDIS_ADDR is required when PAGINAS_RATE_LIMIT_BACKEND=redis")
	}
	switch c.RateLimit.FailurePolicy {
	case FailOpen, FailClosed:
	default:
		problems = append(problems, "PAGINAS_RATE_LIMIT_FAILURE_POLICY must be: fail_open or fail_closed")
	}
	if !c.DevInsecure {
		sessionConfigured := strings.TrimSpace(c.Auth.JWT.HS256Secret) != "" ||
			strings.TrimSpace(c.Auth.JWT.RS256PublicKeyPEM) != "" ||
			strings.TrimSpace(c.Auth.JWT.JWKSURL) != ""
		if !sessionConfigured {
			problems = append(problems, "session auth is not configured; set PAGINAS_AUTH_JWT_HS256_SECRET (or RS256/JWKS), or explicitly set PAGINAS_DEV_INSECURE=true for local development only")
		}
	}
	if c.TLS.Enabled && strings.TrimSpace(c.TLS.CertFile) == "" {
		problems = append(problems, "PAGINAS_TLS_CERT_FILE is required when PAGINAS_TLS_ENABLED=true")
	}
	if c.TLS.Enabled && strings.TrimSpace(c.TLS.KeyFile) == "" {
		problems = append(problems, "PAGINAS_TLS_KEY_FILE is required when PAGINAS_TLS_ENABLED=true")
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New(strings.Join(problems, "; "))
}

type StartupSummary struct {
	RepositoryMode string
	LimiterBackend string
	FailurePolicy  string
	SweepSchedule  string
	TrustProxy     bool
	TLSEnabled     bool
	DevInsecure    bool
}

func (c Config) Summary() StartupSummary {
	mode := "memory"
	if c.DBDriver != "" && c.DBDSN != "" {
		mode = "sql:" + c.DBDialect
	}
	return StartupSummary{
		RepositoryMode: mode,
		LimiterBackend: c.RateLimit.Backend,
		FailurePolicy:  c.RateLimit.FailurePolicy,
		SweepSchedule:  c.RateLimit.SweepSchedule,
		TrustProxy:     c.HTTP.TrustProxy,
		TLSEnabled:     c.TLS.Enabled,
		DevInsecure:    c.DevInsecure,
	}
}

func buildDSNFromParts(c Config) string {
	if !hasAllDBParts(c) {
		return ""
	}
	switch c.DBDialect {
	case "postgres", "pgx":
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
	default:
		return ""
	}
}

func hasAllDBParts(c Config) bool {
	return strings.TrimSpace(c.DBHost) != "" &&
		strings.TrimSpace(c.DBPort) != "" &&
		strings.TrimSpace(c.DBName) != "" &&
		strings.TrimSpace(c.DBUser) != "" &&
		strings.TrimSpace(c.DBPassword) != ""
}
