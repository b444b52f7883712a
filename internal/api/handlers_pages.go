package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"paginas/internal/model"
	"paginas/internal/ratelimit"
	"paginas/internal/store"
)

type pageRequest struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Published *bool  `json:"published,omitempty"`
}

func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	ip := s.requestClientIP(r)
	if !s.admit(w, r, "pages", ratelimit.ProfileAuthenticated, ratelimit.UserScope(ident.UserID), ratelimit.IPScope(ip)) {
		return
	}
	if verdict := s.guard.Authorize(ident.TenantID, ident.TenantID, ident.Role); !verdict.Allowed {
		s.auditAccess(r, "deny", "tenant_guard", ident, string(verdict.Reason))
		writeError(w, http.StatusForbidden, "FORBIDDEN", "access denied", nil, false)
		return
	}
	switch r.Method {
	case http.MethodGet:
		pages, err := s.repo.ListPages(r.Context(), ident.TenantID, 100)
		if err != nil {
			handleStoreErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"pages": pages})
	case http.MethodPost:
		if !ident.Role.CanEditContent() {
			s.auditAccess(r, "deny", "capability", ident, "role cannot edit content")
			writeError(w, http.StatusForbidden, "FORBIDDEN", "role does not allow editing content", nil, false)
			return
		}
		var req pageRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid json body", nil, false)
			return
		}
		slug := strings.TrimSpace(req.Slug)
		if slug == "" || strings.TrimSpace(req.Title) == "" {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "slug and title are required", nil, false)
			return
		}
		now := s.clock.Now().UTC()
		page := model.Page{
			ID:        uuid.NewString(),
			TenantID:  ident.TenantID,
			Slug:      slug,
			Title:     strings.TrimSpace(req.Title),
			Content:   req.Content,
			Published: req.Published != nil && *req.Published,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CreatePage(r.Context(), page); err != nil {
			handleStoreErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, page)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil, false)
	}
}

// handlePageByID serves GET, PUT and DELETE on a single page. The page is
// fetched tenant-scoped first; only a role with the bypass capability falls
// through to the unscoped lookup, and every such crossing is audited. A
// denial is indistinguishable from the page not existing.
func (s *Server) handlePageByID(w http.ResponseWriter, r *http.Request) {
	ident, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	ip := s.requestClientIP(r)
	if !s.admit(w, r, "pages", ratelimit.ProfileAuthenticated, ratelimit.UserScope(ident.UserID), ratelimit.IPScope(ip)) {
		return
	}
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/v1/pages/"))
	if id == "" || strings.Contains(id, "/") {
		writeNotFound(w)
		return
	}
	page, err := s.repo.GetPage(r.Context(), ident.TenantID, id)
	if errors.Is(err, store.ErrNotFound) && ident.Role.CanBypassTenantIsolation() {
		page, err = s.repo.GetPageAcrossTenants(r.Context(), id)
	}
	if err != nil {
		handleStoreErr(w, err)
		return
	}
	verdict := s.guard.Authorize(ident.TenantID, page.TenantID, ident.Role)
	if !verdict.Allowed {
		s.auditAccess(r, "deny", "tenant_guard", ident, string(verdict.Reason))
		writeNotFound(w)
		return
	}
	if verdict.Bypass {
		s.auditCrossTenant(r, ident, page.TenantID, page.ID)
	}
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, page)
	case http.MethodPut:
		if !ident.Role.CanEditContent() {
			s.auditAccess(r, "deny", "capability", ident, "role cannot edit content")
			writeError(w, http.StatusForbidden, "FORBIDDEN", "role does not allow editing content", nil, false)
			return
		}
		var req pageRequest
		if err := decodeJSON(r.Body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid json body", nil, false)
			return
		}
		if slug := strings.TrimSpace(req.Slug); slug != "" {
			page.Slug = slug
		}
		if title := strings.TrimSpace(req.Title); title != "" {
			page.Title = title
		}
		if req.Content != "" {
			page.Content = req.Content
		}
		if req.Published != nil {
			page.Published = *req.Published
		}
		page.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.UpdatePage(r.Context(), page.TenantID, page); err != nil {
			handleStoreErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case http.MethodDelete:
		if !ident.Role.CanEditContent() {
			s.auditAccess(r, "deny", "capability", ident, "role cannot edit content")
			writeError(w, http.StatusForbidden, "FORBIDDEN", "role does not allow editing content", nil, false)
			return
		}
		if err := s.repo.DeletePage(r.Context(), page.TenantID, page.ID); err != nil {
			handleStoreErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": page.ID})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil, false)
	}
}
