package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"paginas/internal/ratelimit"
	"paginas/internal/store"
	"paginas/internal/tenant"
)

// Failure policy names for a degraded counter store. The admission layer is
// the single place the policy is applied; the limiter itself only reports
// the outage.
const (
	FailOpen   = "fail_open"
	FailClosed = "fail_closed"
)

// SessionPolicy configures how sessions are minted and verified. HS256Secret
// is required for login (the server signs with it); RS256PublicKeyPEM or
// JWKSURL additionally allow verifying tokens minted elsewhere.
type SessionPolicy struct {
	Issuer            string
	Audience          string
	HS256Secret       string
	RS256PublicKeyPEM string
	JWKSURL           string
	JWKSRefresh       time.Duration
	TTL               time.Duration
	PasswordPepper    string
}

type AuditPolicy struct {
	LogFile string
}

type BillingPolicy struct {
	WebhookSecret string
	WebhookHeader string
	PortalBaseURL string
}

// ClientIPPolicy controls how the per-request client IP is derived. With
// TrustProxy off the socket peer address is always used; header values are
// client-controlled and only honored behind a trusted proxy.
type ClientIPPolicy struct {
	TrustProxy bool
	Header     string
}

type ServerOptions struct {
	Session       SessionPolicy
	Audit         AuditPolicy
	Billing       BillingPolicy
	ClientIP      ClientIPPolicy
	FailurePolicy string
	Clock         ratelimit.Clock
	Logger        logr.Logger
}

type Server struct {
	repo          store.Repository
	limiter       *ratelimit.Limiter
	guard         *tenant.Guard
	session       SessionPolicy
	audit         AuditPolicy
	billing       BillingPolicy
	clientIP      ClientIPPolicy
	failurePolicy string
	clock         ratelimit.Clock
	logger        logr.Logger
	jwksCache     *jwksKeyCache
	jwksMu        sync.Mutex
}

func NewServer(repo store.Repository, limiter *ratelimit.Limiter) *Server {
	return NewServerWithOptions(repo, limiter, ServerOptions{})
}

func NewServerWithOptions(repo store.Repository, limiter *ratelimit.Limiter, opts ServerOptions) *Server {
	opts = withOptionDefaults(opts)
	return &Server{
		repo:          repo,
		limiter:       limiter,
		guard:         tenant.NewGuard(),
		session:       opts.Session,
		audit:         opts.Audit,
		billing:       opts.Billing,
		clientIP:      opts.ClientIP,
		failurePolicy: opts.FailurePolicy,
		clock:         opts.Clock,
		logger:        opts.Logger,
		jwksCache:     newJWKSKeyCache(opts.Session),
	}
}

func withOptionDefaults(in ServerOptions) ServerOptions {
	out := in
	if out.Session.TTL <= 0 {
		out.Session.TTL = 12 * time.Hour
	}
	if out.Session.JWKSRefresh <= 0 {
		out.Session.JWKSRefresh = 5 * time.Minute
	}
	if out.Billing.WebhookHeader == "" {
		out.Billing.WebhookHeader = "X-Paginas-Signature"
	}
	if out.ClientIP.Header == "" {
		out.ClientIP.Header = "X-Forwarded-For"
	}
	switch out.FailurePolicy {
	case FailOpen, FailClosed:
	default:
		out.FailurePolicy = FailOpen
	}
	if out.Clock == nil {
		out.Clock = ratelimit.SystemClock()
	}
	if out.Logger.GetSink() == nil {
		out.Logger = logr.Discard()
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
