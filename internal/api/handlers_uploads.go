package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"paginas/internal/model"
	"paginas/internal/ratelimit"
)

const maxAssetSizeBytes int64 = 25 << 20 // 25 MiB

type uploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil, false)
		return
	}
	ident, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	ip := s.requestClientIP(r)
	if !s.admit(w, r, "uploads.create", ratelimit.ProfileUpload, ratelimit.UserScope(ident.UserID), ratelimit.IPScope(ip)) {
		return
	}
	if verdict := s.guard.Authorize(ident.TenantID, ident.TenantID, ident.Role); !verdict.Allowed {
		s.auditAccess(r, "deny", "tenant_guard", ident, string(verdict.Reason))
		writeError(w, http.StatusForbidden, "FORBIDDEN", "access denied", nil, false)
		return
	}
	if !ident.Role.CanEditContent() {
		s.auditAccess(r, "deny", "capability", ident, "role cannot edit content")
		writeError(w, http.StatusForbidden, "FORBIDDEN", "role does not allow uploads", nil, false)
		return
	}
	var req uploadRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid json body", nil, false)
		return
	}
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "filename is required", nil, false)
		return
	}
	if req.SizeBytes <= 0 || req.SizeBytes > maxAssetSizeBytes {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "size_bytes must be positive and at most 25 MiB", nil, false)
		return
	}
	asset := model.Asset{
		ID:          uuid.NewString(),
		TenantID:    ident.TenantID,
		UploadedBy:  ident.UserID,
		Filename:    filename,
		ContentType: strings.TrimSpace(req.ContentType),
		SizeBytes:   req.SizeBytes,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.repo.CreateAsset(r.Context(), asset); err != nil {
		handleStoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}
