package tenant

import "testing"

func TestAuthorizeSameTenant(t *testing.T) {
	g := NewGuard()
	v := g.Authorize("T1", "T1", RoleViewer)
	if !v.Allowed {
		t.Fatalf("expected same-tenant access allowed, got %+v", v)
	}
	if v.Bypass {
		t.Fatalf("same-tenant access must not be flagged as bypass")
	}
}

func TestAuthorizeCrossTenantDenied(t *testing.T) {
	g := NewGuard()
	for _, role := range []Role{RoleUnknown, RoleViewer, RoleEditor, RoleAdmin} {
		v := g.Authorize("T1", "T2", role)
		if v.Allowed {
			t.Fatalf("role %s must not cross tenant boundaries", role)
		}
		if v.Reason != DenyTenantMismatch {
			t.Fatalf("role %s: expected mismatch reason, got %q", role, v.Reason)
		}
	}
}

func TestAuthorizeOperatorBypassIsFlagged(t *testing.T) {
	g := NewGuard()
	v := g.Authorize("T1", "T2", RoleOperator)
	if !v.Allowed {
		t.Fatalf("operator must be allowed cross-tenant access, got %+v", v)
	}
	if !v.Bypass {
		t.Fatalf("operator cross-tenant access must be flagged for auditing")
	}
}

func TestAuthorizeMissingCallerTenantAlwaysDenied(t *testing.T) {
	g := NewGuard()
	// No tenant identity is never "no restriction", even for operators.
	for _, role := range []Role{RoleViewer, RoleAdmin, RoleOperator} {
		v := g.Authorize("", "T2", role)
		if v.Allowed {
			t.Fatalf("role %s with no tenant must be denied", role)
		}
		if v.Reason != DenyNoCallerTenant {
			t.Fatalf("role %s: expected no-caller-tenant reason, got %q", role, v.Reason)
		}
	}
	v := g.Authorize("   ", "T2", RoleViewer)
	if v.Allowed {
		t.Fatalf("whitespace tenant id must be denied")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"viewer", RoleViewer},
		{"Editor", RoleEditor},
		{" ADMIN ", RoleAdmin},
		{"operator", RoleOperator},
		{"superadmin", RoleUnknown},
		{"", RoleUnknown},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Fatalf("ParseRole(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCapabilities(t *testing.T) {
	if RoleViewer.CanEditContent() {
		t.Fatalf("viewer must not edit content")
	}
	if !RoleEditor.CanEditContent() {
		t.Fatalf("editor must edit content")
	}
	if RoleEditor.CanManageBilling() {
		t.Fatalf("editor must not manage billing")
	}
	if !RoleAdmin.CanManageBilling() {
		t.Fatalf("admin must manage billing")
	}
	if RoleAdmin.CanBypassTenantIsolation() {
		t.Fatalf("admin must not bypass tenant isolation")
	}
	if !RoleOperator.CanBypassTenantIsolation() {
		t.Fatalf("operator must bypass tenant isolation")
	}
	if RoleUnknown.CanEditContent() || RoleUnknown.CanManageBilling() || RoleUnknown.CanBypassTenantIsolation() {
		t.Fatalf("unknown role must carry no capabilities")
	}
}
