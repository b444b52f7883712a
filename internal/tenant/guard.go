package tenant

import "strings"

// DenyReason explains a guard denial.
type DenyReason string

const (
	// DenyNoCallerTenant means the caller was never resolved to a tenant.
	// Absence of identity is always a denial, never "no restriction".
	DenyNoCallerTenant DenyReason = "caller has no tenant"
	// DenyTenantMismatch means the resource belongs to another tenant and
	// the caller's role has no bypass capability.
	DenyTenantMismatch DenyReason = "tenant mismatch"
)

// Verdict is the guard's answer for one access. Bypass is set when a
// privileged role crossed the tenant boundary; callers must emit a distinct
// audit event whenever they see it.
type Verdict struct {
	Allowed bool
	Bypass  bool
	Reason  DenyReason
}

// Guard is the IDOR-prevention primitive: a stateless predicate evaluated
// fresh per request, after the resource's owning tenant has been fetched
// from storage and before any mutation. The resource tenant must come from
// the stored record, never from client-supplied request data.
type Guard struct{}

func NewGuard() *Guard { return &Guard{} }

// Authorize decides whether a caller in callerTenantID with role may access
// a resource owned by resourceTenantID.
func (g *Guard) Authorize(callerTenantID, resourceTenantID string, role Role) Verdict {
	caller := strings.TrimSpace(callerTenantID)
	resource := strings.TrimSpace(resourceTenantID)
	if caller == "" {
		return Verdict{Allowed: false, Reason: DenyNoCallerTenant}
	}
	if caller == resource && resource != "" {
		return Verdict{Allowed: true}
	}
	if role.CanBypassTenantIsolation() {
		return Verdict{Allowed: true, Bypass: true}
	}
	return Verdict{Allowed: false, Reason: DenyTenantMismatch}
}
