package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIPIgnoresHeaderWithoutTrustedProxy(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/sites/home", nil)
	req.RemoteAddr = "203.0.113.5:5555"
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	if got := env.server.requestClientIP(req); got != "203.0.113.5" {
		t.Fatalf("expected socket address, got %q", got)
	}
}

func TestClientIPHonorsHeaderBehindProxy(t *testing.T) {
	env := newTestEnvWithOptions(t, ServerOptions{ClientIP: ClientIPPolicy{TrustProxy: true}})
	req := httptest.NewRequest(http.MethodGet, "/v1/sites/home", nil)
	req.RemoteAddr = "203.0.113.5:5555"
	req.Header.Set("X-Forwarded-For", "198.51.100.20, 10.0.0.1")
	if got := env.server.requestClientIP(req); got != "198.51.100.20" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}

func TestClientIPFallsBackOnGarbageHeader(t *testing.T) {
	env := newTestEnvWithOptions(t, ServerOptions{ClientIP: ClientIPPolicy{TrustProxy: true}})
	req := httptest.NewRequest(http.MethodGet, "/v1/sites/home", nil)
	req.RemoteAddr = "203.0.113.5:5555"
	req.Header.Set("X-Forwarded-For", "not-an-ip, also-bad")
	if got := env.server.requestClientIP(req); got != "203.0.113.5" {
		t.Fatalf("expected socket fallback, got %q", got)
	}
}
