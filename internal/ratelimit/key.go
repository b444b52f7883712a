package ratelimit

import "strings"

// ScopeKind selects what a counter is keyed on.
type ScopeKind string

const (
	ScopeIP     ScopeKind = "ip"
	ScopeUser   ScopeKind = "user"
	ScopeTenant ScopeKind = "tenant"
)

// anonIdentifier buckets callers whose scope identifier could not be
// resolved. An unidentifiable caller shares one restrictive bucket instead
// of bypassing limiting.
const anonIdentifier = "anon"

// Scope names one countable dimension of a request.
type Scope struct {
	Kind       ScopeKind
	Identifier string
}

// IPScope, UserScope and TenantScope are shorthands used at call sites.
func IPScope(ip string) Scope         { return Scope{Kind: ScopeIP, Identifier: ip} }
func UserScope(userID string) Scope   { return Scope{Kind: ScopeUser, Identifier: userID} }
func TenantScope(tenantID string) Scope { return Scope{Kind: ScopeTenant, Identifier: tenantID} }

// specificity orders scopes so composite checks evaluate the most specific
// dimension first and fail fast.
func (k ScopeKind) specificity() int {
	switch k {
	case ScopeUser:
		return 0
	case ScopeTenant:
		return 1
	case ScopeIP:
		return 2
	default:
		return 3
	}
}

// ComposeKey derives the counter key for one scope of one action. Keys are
// deterministic and collision-free across scope kinds and actions: the same
// caller and action always share a counter, unrelated actions never do.
func ComposeKey(scope Scope, action string) string {
	id := strings.TrimSpace(scope.Identifier)
	if id == "" {
		id = anonIdentifier
	}
	action = strings.TrimSpace(action)
	if action == "" {
		action = "unknown"
	}
	var b strings.Builder
	b.Grow(len(scope.Kind) + len(id) + len(action) + 2)
	b.WriteString(string(scope.Kind))
	b.WriteByte(':')
	b.WriteString(id)
	b.WriteByte(':')
	b.WriteString(action)
	return b.String()
}

// orderScopes returns scopes sorted most specific first without mutating the
// caller's slice.
func orderScopes(scopes []Scope) []Scope {
	out := make([]Scope, len(scopes))
	copy(out, scopes)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Kind.specificity() < out[j-1].Kind.specificity(); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
