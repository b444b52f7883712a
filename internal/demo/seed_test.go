package demo

import (
	"context"
	"testing"

	"paginas/internal/store"
)

func TestSeedPopulatesWorkspace(t *testing.T) {
	repo := store.NewMemoryRepository()
	ctx := context.Background()
	if err := Seed(ctx, repo, func(p string) string { return "digest:" + p }); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := repo.GetTenant(ctx, TenantID); err != nil {
		t.Fatalf("demo tenant missing: %v", err)
	}
	owner, err := repo.GetUserByEmail(ctx, AdminEmail)
	if err != nil {
		t.Fatalf("demo admin missing: %v", err)
	}
	if owner.PasswordDigest != "digest:"+Password {
		t.Fatalf("unexpected digest %q", owner.PasswordDigest)
	}
	if _, err := repo.GetPublishedPageBySlug(ctx, "demo-home"); err != nil {
		t.Fatalf("published demo page missing: %v", err)
	}
	summary, err := repo.CountSummary(ctx, TenantID)
	if err != nil || summary.Pages != 2 || summary.PublishedPages != 1 {
		t.Fatalf("unexpected summary: %+v %v", summary, err)
	}

	// Seeding twice must fail loudly rather than duplicate data.
	if err := Seed(ctx, repo, func(p string) string { return p }); err == nil {
		t.Fatal("expected error on second seed")
	}
}
