package api

import (
	"errors"
	"net/http"
	"strconv"

	"paginas/internal/ratelimit"
)

// admit runs one admission check and writes the rejection response itself.
// Callers proceed only on true. Every checked response carries the limit
// headers; a rejection additionally carries Retry-After.
//
// A store outage is never reported to the client as a quota rejection: the
// fail_open policy admits the request, fail_closed answers 503 so callers
// can tell an infrastructure fault from an exhausted budget.
func (s *Server) admit(w http.ResponseWriter, r *http.Request, action string, profile ratelimit.Profile, scopes ...ratelimit.Scope) bool {
	decision, err := s.limiter.Allow(r.Context(), action, profile, scopes...)
	if err != nil {
		if errors.Is(err, ratelimit.ErrStoreUnavailable) {
			if s.failurePolicy == FailClosed {
				s.logger.Error(err, "admission store unavailable, rejecting", "action", action, "profile", string(profile))
				s.auditAdmission(r, "deny", action, "counter store unavailable")
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusServiceUnavailable, "ADMISSION_UNAVAILABLE", "admission check unavailable", nil, true)
				return false
			}
			s.logger.Error(err, "admission store unavailable, admitting", "action", action, "profile", string(profile))
			s.auditAdmission(r, "allow", action, "counter store unavailable")
			return true
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil, true)
		return false
	}
	if cfg, ok := s.limiter.Config(profile); ok {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
	}
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	if !decision.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(decision.RetryAfterSeconds))
		s.auditAdmission(r, "deny", action, "rate limit exceeded")
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", map[string]interface{}{
			"retry_after_seconds": decision.RetryAfterSeconds,
		}, true)
		return false
	}
	return true
}
