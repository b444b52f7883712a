// Package tenant enforces the tenant boundary: a closed role enumeration
// with capability predicates, and the isolation guard every resource access
// must pass.
package tenant

import "strings"

// Role is the closed set of principal roles. Call sites ask capability
// predicates instead of comparing role strings.
type Role int

const (
	// RoleUnknown is any unrecognized role string. It carries no
	// capabilities.
	RoleUnknown Role = iota
	// RoleViewer reads content inside its own tenant.
	RoleViewer
	// RoleEditor creates and edits content inside its own tenant.
	RoleEditor
	// RoleAdmin administers one tenant, including its billing.
	RoleAdmin
	// RoleOperator is the platform-operator role. It is the only role
	// permitted to cross tenant boundaries, and every such access is
	// audit-logged.
	RoleOperator
)

var roleNames = map[Role]string{
	RoleUnknown:  "unknown",
	RoleViewer:   "viewer",
	RoleEditor:   "editor",
	RoleAdmin:    "admin",
	RoleOperator: "operator",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRole maps a role claim to the enumeration. Unknown strings map to
// RoleUnknown rather than erroring: an unrecognized role simply has no
// capabilities.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "viewer":
		return RoleViewer
	case "editor":
		return RoleEditor
	case "admin":
		return RoleAdmin
	case "operator":
		return RoleOperator
	default:
		return RoleUnknown
	}
}

// CanEditContent reports whether the role may create or mutate pages and
// assets within its own tenant.
func (r Role) CanEditContent() bool {
	return r == RoleEditor || r == RoleAdmin || r == RoleOperator
}

// CanManageBilling reports whether the role may open the billing portal.
func (r Role) CanManageBilling() bool {
	return r == RoleAdmin || r == RoleOperator
}

// CanBypassTenantIsolation reports whether the role may access resources
// owned by other tenants. Bypass is an explicit allowlist, never a default,
// and users of this predicate must audit-log every bypass they grant.
func (r Role) CanBypassTenantIsolation() bool {
	return r == RoleOperator
}
