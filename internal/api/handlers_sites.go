package api

import (
	"net/http"
	"strings"

	"paginas/internal/ratelimit"
)

// handleSiteBySlug serves the public rendering lookup. No session is
// involved; admission counts per client IP only.
func (s *Server) handleSiteBySlug(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil, false)
		return
	}
	ip := s.requestClientIP(r)
	if !s.admit(w, r, "sites.view", ratelimit.ProfilePublic, ratelimit.IPScope(ip)) {
		return
	}
	slug := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/v1/sites/"))
	if slug == "" || strings.Contains(slug, "/") {
		writeNotFound(w)
		return
	}
	page, err := s.repo.GetPublishedPageBySlug(r.Context(), slug)
	if err != nil {
		handleStoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"slug":       page.Slug,
		"title":      page.Title,
		"content":    page.Content,
		"updated_at": page.UpdatedAt,
	})
}
