package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"paginas/internal/model"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
)

// Repository is the persistence capability consumed by the API layer. Every
// page and asset operation takes the caller's tenant id and is scoped to it
// in the query itself: a page owned by another tenant and a page that does
// not exist both come back as ErrNotFound, so nothing upstream can leak
// existence across the boundary.
//
// GetPageAcrossTenants is the single unscoped lookup. It exists only for
// the operator cross-tenant path; its callers must run the result through
// the tenant guard and audit the access.
type Repository interface {
	CreateTenant(ctx context.Context, t model.Tenant) error
	GetTenant(ctx context.Context, id string) (model.Tenant, error)
	SetTenantPlanStatus(ctx context.Context, tenantID, status string) error

	CreateUser(ctx context.Context, u model.User) error
	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	CreatePage(ctx context.Context, p model.Page) error
	GetPage(ctx context.Context, tenantID, id string) (model.Page, error)
	GetPageAcrossTenants(ctx context.Context, id string) (model.Page, error)
	ListPages(ctx context.Context, tenantID string, limit int) ([]model.Page, error)
	UpdatePage(ctx context.Context, tenantID string, p model.Page) error
	DeletePage(ctx context.Context, tenantID, id string) error
	GetPublishedPageBySlug(ctx context.Context, slug string) (model.Page, error)

	CreateAsset(ctx context.Context, a model.Asset) error
	CountSummary(ctx context.Context, tenantID string) (model.AnalyticsSummary, error)
}

type MemoryRepository struct {
	mu      sync.RWMutex
	tenants map[string]model.Tenant
	users   map[string]model.User
	pages   map[string]model.Page
	assets  map[string]model.Asset
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tenants: make(map[string]model.Tenant),
		users:   make(map[string]model.User),
		pages:   make(map[string]model.Page),
		assets:  make(map[string]model.Asset),
	}
}

func (m *MemoryRepository) CreateTenant(_ context.Context, t model.Tenant) error {
	if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.Slug) == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tenants[t.ID]; ok {
		return ErrConflict
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.PlanStatus == "" {
		t.PlanStatus = model.PlanActive
	}
	m.tenants[t.ID] = t
	return nil
}

func (m *MemoryRepository) GetTenant(_ context.Context, id string) (model.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return model.Tenant{}, ErrNotFound
	}
	return t, nil
}

func (m *MemoryRepository) SetTenantPlanStatus(_ context.Context, tenantID, status string) error {
	if strings.TrimSpace(status) == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[tenantID]
	if !ok {
		return ErrNotFound
	}
	t.PlanStatus = status
	m.tenants[tenantID] = t
	return nil
}

func (m *MemoryRepository) CreateUser(_ context.Context, u model.User) error {
	if strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.TenantID) == "" || strings.TrimSpace(u.Email) == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return ErrConflict
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrConflict
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = u
	return nil
}

func (m *MemoryRepository) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (m *MemoryRepository) CreatePage(_ context.Context, p model.Page) error {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.TenantID) == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[p.ID]; ok {
		return ErrConflict
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	m.pages[p.ID] = p
	return nil
}

func (m *MemoryRepository) GetPage(_ context.Context, tenantID, id string) (model.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pages[id]
	if !ok || p.TenantID != tenantID {
		// Same answer for "missing" and "owned by someone else".
		return model.Page{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryRepository) GetPageAcrossTenants(_ context.Context, id string) (model.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pages[id]
	if !ok {
		return model.Page{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryRepository) ListPages(_ context.Context, tenantID string, limit int) ([]model.Page, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Page, 0)
	for _, p := range m.pages {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) UpdatePage(_ context.Context, tenantID string, p model.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.pages[p.ID]
	if !ok || cur.TenantID != tenantID {
		return ErrNotFound
	}
	p.TenantID = cur.TenantID
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	m.pages[p.ID] = p
	return nil
}

func (m *MemoryRepository) DeletePage(_ context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.pages[id]
	if !ok || cur.TenantID != tenantID {
		return ErrNotFound
	}
	delete(m.pages, id)
	return nil
}

func (m *MemoryRepository) GetPublishedPageBySlug(_ context.Context, slug string) (model.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.pages {
		if p.Published && p.Slug == slug {
			return p, nil
		}
	}
	return model.Page{}, ErrNotFound
}

func (m *MemoryRepository) CreateAsset(_ context.Context, a model.Asset) error {
	if strings.TrimSpace(a.ID) == "" || strings.TrimSpace(a.TenantID) == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assets[a.ID]; ok {
		return ErrConflict
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	m.assets[a.ID] = a
	return nil
}

func (m *MemoryRepository) CountSummary(_ context.Context, tenantID string) (model.AnalyticsSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	summary := model.AnalyticsSummary{TenantID: tenantID}
	for _, p := range m.pages {
		if p.TenantID != tenantID {
			continue
		}
		summary.Pages++
		if p.Published {
			summary.PublishedPages++
		}
	}
	for _, a := range m.assets {
		if a.TenantID == tenantID {
			summary.Assets++
		}
	}
	return summary, nil
}
