package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"paginas/internal/ratelimit"
	"paginas/internal/store"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	TenantID  string `json:"tenant_id"`
	Role      string `json:"role"`
}

// handleLogin authenticates a user by email and password and mints a
// session token. The admission check runs before credential verification
// and counts per client IP, so a brute-force source is throttled no matter
// how many accounts it targets.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil, false)
		return
	}
	ip := s.requestClientIP(r)
	if !s.admit(w, r, "auth.login", ratelimit.ProfileAuth, ratelimit.IPScope(ip)) {
		return
	}
	var req loginRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid json body", nil, false)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "email and password are required", nil, false)
		return
	}
	user, err := s.repo.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.auditAccess(r, "deny", "password", Identity{}, "unknown email")
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil, false)
			return
		}
		handleStoreErr(w, err)
		return
	}
	if !s.verifyPassword(req.Password, user.PasswordDigest) {
		s.auditAccess(r, "deny", "password", Identity{UserID: user.ID, TenantID: user.TenantID}, "bad password")
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil, false)
		return
	}
	token, expiresAt, err := s.mintSessionToken(user, s.clock.Now())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE", err.Error(), nil, true)
		return
	}
	s.auditAccess(r, "allow", "password", Identity{UserID: user.ID, TenantID: user.TenantID}, "")
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		TenantID:  user.TenantID,
		Role:      user.Role,
	})
}

// PasswordDigest derives the stored digest for a password. Exported so
// provisioning code creates users with the same derivation login verifies.
func PasswordDigest(password, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	_, _ = mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Server) verifyPassword(password, digest string) bool {
	expected := PasswordDigest(password, s.session.PasswordPepper)
	return hmac.Equal([]byte(expected), []byte(digest))
}
