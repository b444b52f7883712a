package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"paginas/internal/model"
	"paginas/internal/ratelimit"
	"paginas/internal/store"
)

const billingSessionTTL = 15 * time.Minute

// handleBillingPortal mints a short-lived redirect session into the hosted
// billing portal. The profile is user-scoped only: portal sessions are a
// per-account resource, not a per-network one.
func (s *Server) handleBillingPortal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil, false)
		return
	}
	ident, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if !s.admit(w, r, "billing.portal", ratelimit.ProfileBillingPortal, ratelimit.UserScope(ident.UserID)) {
		return
	}
	if verdict := s.guard.Authorize(ident.TenantID, ident.TenantID, ident.Role); !verdict.Allowed {
		s.auditAccess(r, "deny", "tenant_guard", ident, string(verdict.Reason))
		writeError(w, http.StatusForbidden, "FORBIDDEN", "access denied", nil, false)
		return
	}
	if !ident.Role.CanManageBilling() {
		s.auditAccess(r, "deny", "capability", ident, "role cannot manage billing")
		writeError(w, http.StatusForbidden, "FORBIDDEN", "role does not allow managing billing", nil, false)
		return
	}
	base := strings.TrimRight(strings.TrimSpace(s.billing.PortalBaseURL), "/")
	if base == "" {
		writeError(w, http.StatusServiceUnavailable, "BILLING_UNAVAILABLE", "billing portal not configured", nil, true)
		return
	}
	session := model.BillingSession{
		ID:        uuid.NewString(),
		TenantID:  ident.TenantID,
		UserID:    ident.UserID,
		ExpiresAt: s.clock.Now().UTC().Add(billingSessionTTL),
	}
	session.URL = base + "/session/" + session.ID
	s.auditAccess(r, "allow", "billing_portal", ident, "")
	writeJSON(w, http.StatusCreated, session)
}

type billingWebhookPayload struct {
	TenantID   string `json:"tenant_id"`
	PlanStatus string `json:"plan_status"`
}

// handleBillingWebhook applies plan status updates pushed by the billing
// provider. The HMAC signature is the sole authentication on this route;
// an unsigned or badly signed delivery is rejected before the body is
// interpreted.
func (s *Server) handleBillingWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil, false)
		return
	}
	ip := s.requestClientIP(r)
	if !s.admit(w, r, "billing.webhook", ratelimit.ProfileWebhook, ratelimit.IPScope(ip)) {
		return
	}
	secret := strings.TrimSpace(s.billing.WebhookSecret)
	if secret == "" {
		writeError(w, http.StatusServiceUnavailable, "BILLING_UNAVAILABLE", "billing webhook not configured", nil, true)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "failed to read body", nil, false)
		return
	}
	defer r.Body.Close()
	if int64(len(body)) > maxWebhookBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "webhook body exceeds 1 MiB", nil, false)
		return
	}
	if !validWebhookSignature(secret, body, r.Header.Get(s.billing.WebhookHeader)) {
		s.auditAccess(r, "deny", "webhook_signature", Identity{}, "invalid signature")
		writeError(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "webhook signature mismatch", nil, false)
		return
	}
	var payload billingWebhookPayload
	if err := decodeJSONBytes(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid json body", nil, false)
		return
	}
	switch payload.PlanStatus {
	case model.PlanActive, model.PlanPastDue, model.PlanCanceled:
	default:
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "plan_status must be: active, past_due or canceled", nil, false)
		return
	}
	if err := s.repo.SetTenantPlanStatus(r.Context(), strings.TrimSpace(payload.TenantID), payload.PlanStatus); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "TENANT_NOT_FOUND", "unknown tenant", nil, false)
			return
		}
		handleStoreErr(w, err)
		return
	}
	s.auditAccess(r, "allow", "webhook_signature", Identity{TenantID: payload.TenantID}, "plan status "+payload.PlanStatus)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
