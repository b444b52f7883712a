// Package demo seeds a throwaway workspace for local development. It is
// only wired up when the server runs with the in-memory repository in
// dev-insecure mode; production startup never touches it.
package demo

import (
	"context"
	"time"

	"paginas/internal/model"
	"paginas/internal/store"
)

const (
	TenantID   = "t-demo"
	AdminEmail = "owner@demo.paginas.local"
	UserEmail  = "editor@demo.paginas.local"
	Password   = "demo-password"
)

// Seed provisions one demo tenant with an admin, an editor and a couple of
// pages. digest derives the stored password digest; the caller supplies it
// so this package does not depend on the API layer's derivation.
func Seed(ctx context.Context, repo store.Repository, digest func(password string) string) error {
	now := time.Now().UTC()
	if err := repo.CreateTenant(ctx, model.Tenant{
		ID:        TenantID,
		Name:      "Demo Bakery",
		Slug:      "demo-bakery",
		CreatedAt: now,
	}); err != nil {
		return err
	}
	users := []model.User{
		{ID: "u-demo-owner", TenantID: TenantID, Email: AdminEmail, Role: "admin"},
		{ID: "u-demo-editor", TenantID: TenantID, Email: UserEmail, Role: "editor"},
	}
	for _, u := range users {
		u.PasswordDigest = digest(Password)
		u.CreatedAt = now
		if err := repo.CreateUser(ctx, u); err != nil {
			return err
		}
	}
	pages := []model.Page{
		{ID: "p-demo-home", TenantID: TenantID, Slug: "demo-home", Title: "Welcome to Demo Bakery", Content: "Fresh bread daily.", Published: true},
		{ID: "p-demo-about", TenantID: TenantID, Slug: "demo-about", Title: "About Us", Content: "Draft copy."},
	}
	for _, p := range pages {
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := repo.CreatePage(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
