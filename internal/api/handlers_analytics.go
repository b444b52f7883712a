package api

import (
	"net/http"

	"paginas/internal/ratelimit"
)

func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil, false)
		return
	}
	ident, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	ip := s.requestClientIP(r)
	if !s.admit(w, r, "analytics.read", ratelimit.ProfileAnalytics, ratelimit.UserScope(ident.UserID), ratelimit.IPScope(ip)) {
		return
	}
	if verdict := s.guard.Authorize(ident.TenantID, ident.TenantID, ident.Role); !verdict.Allowed {
		s.auditAccess(r, "deny", "tenant_guard", ident, string(verdict.Reason))
		writeError(w, http.StatusForbidden, "FORBIDDEN", "access denied", nil, false)
		return
	}
	summary, err := s.repo.CountSummary(r.Context(), ident.TenantID)
	if err != nil {
		handleStoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
