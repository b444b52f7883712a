package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"paginas/internal/model"
)

type SQLRepository struct {
	db      *sql.DB
	dialect string
}

func NewSQLRepository(db *sql.DB, dialect string) (*SQLRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("nil db")
	}
	d := strings.ToLower(strings.TrimSpace(dialect))
	if d == "" {
		return nil, fmt.Errorf("empty dialect")
	}
	if d != "postgres" && d != "sqlite" {
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}
	return &SQLRepository{db: db, dialect: d}, nil
}

func (s *SQLRepository) CreateTenant(ctx context.Context, t model.Tenant) error {
	if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.Slug) == "" {
		return ErrInvalidInput
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.PlanStatus == "" {
		t.PlanStatus = model.PlanActive
	}
	query := "INSERT INTO tenants (id, name, slug, plan_status, created_at) VALUES (" +
		s.ph(1) + "," + s.ph(2) + "," + s.ph(3) + "," + s.ph(4) + "," + s.ph(5) + ")"
	_, err := s.db.ExecContext(ctx, query, t.ID, t.Name, t.Slug, t.PlanStatus, s.tsValue(t.CreatedAt))
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *SQLRepository) GetTenant(ctx context.Context, id string) (model.Tenant, error) {
	query := "SELECT id, name, slug, plan_status, created_at FROM tenants WHERE id = " + s.ph(1)
	row := s.db.QueryRowContext(ctx, query, id)
	var t model.Tenant
	var createdRaw interface{}
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.PlanStatus, &createdRaw)
	if err == sql.ErrNoRows {
		return model.Tenant{}, ErrNotFound
	}
	if err != nil {
		return model.Tenant{}, err
	}
	if t.CreatedAt, err = parseTimeRaw(createdRaw); err != nil {
		return model.Tenant{}, err
	}
	return t, nil
}

func (s *SQLRepository) SetTenantPlanStatus(ctx context.Context, tenantID, status string) error {
	if strings.TrimSpace(status) == "" {
		return ErrInvalidInput
	}
	query := "UPDATE tenants SET plan_status = " + s.ph(1) + " WHERE id = " + s.ph(2)
	res, err := s.db.ExecContext(ctx, query, status, tenantID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLRepository) CreateUser(ctx context.Context, u model.User) error {
	if strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.TenantID) == "" || strings.TrimSpace(u.Email) == "" {
		return ErrInvalidInput
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	query := "INSERT INTO users (id, tenant_id, email, password_digest, role, created_at) VALUES (" +
		s.ph(1) + "," + s.ph(2) + "," + s.ph(3) + "," + s.ph(4) + "," + s.ph(5) + "," + s.ph(6) + ")"
	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.TenantID, strings.ToLower(u.Email), u.PasswordDigest, u.Role, s.tsValue(u.CreatedAt))
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *SQLRepository) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	query := "SELECT id, tenant_id, email, password_digest, role, created_at FROM users WHERE email = " + s.ph(1)
	row := s.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email)))
	var u model.User
	var createdRaw interface{}
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.PasswordDigest, &u.Role, &createdRaw)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if u.CreatedAt, err = parseTimeRaw(createdRaw); err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (s *SQLRepository) CreatePage(ctx context.Context, p model.Page) error {
	if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.TenantID) == "" {
		return ErrInvalidInput
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	query := "INSERT INTO pages (id, tenant_id, slug, title, content, published, created_at, updated_at) VALUES (" +
		s.ph(1) + "," + s.ph(2) + "," + s.ph(3) + "," + s.ph(4) + "," + s.ph(5) + "," + s.ph(6) + "," + s.ph(7) + "," + s.ph(8) + ")"
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.TenantID, p.Slug, p.Title, p.Content, p.Published,
		s.tsValue(p.CreatedAt), s.tsValue(p.UpdatedAt))
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

const pageColumns = "id, tenant_id, slug, title, content, published, created_at, updated_at"

func (s *SQLRepository) GetPage(ctx context.Context, tenantID, id string) (model.Page, error) {
	// Tenant scoping lives in the query itself so a foreign page and a
	// missing page are indistinguishable to the caller.
	query := "SELECT " + pageColumns + " FROM pages WHERE id = " + s.ph(1) + " AND tenant_id = " + s.ph(2)
	return s.scanPage(s.db.QueryRowContext(ctx, query, id, tenantID))
}

func (s *SQLRepository) GetPageAcrossTenants(ctx context.Context, id string) (model.Page, error) {
	query := "SELECT " + pageColumns + " FROM pages WHERE id = " + s.ph(1)
	return s.scanPage(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLRepository) ListPages(ctx context.Context, tenantID string, limit int) ([]model.Page, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	query := "SELECT " + pageColumns + " FROM pages WHERE tenant_id = " + s.ph(1) +
		" ORDER BY created_at DESC, id ASC LIMIT " + s.ph(2)
	rows, err := s.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Page, 0)
	for rows.Next() {
		p, err := s.scanPageRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLRepository) UpdatePage(ctx context.Context, tenantID string, p model.Page) error {
	query := "UPDATE pages SET slug = " + s.ph(1) + ", title = " + s.ph(2) + ", content = " + s.ph(3) +
		", published = " + s.ph(4) + ", updated_at = " + s.ph(5) +
		" WHERE id = " + s.ph(6) + " AND tenant_id = " + s.ph(7)
	res, err := s.db.ExecContext(ctx, query,
		p.Slug, p.Title, p.Content, p.Published, s.tsValue(time.Now().UTC()), p.ID, tenantID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLRepository) DeletePage(ctx context.Context, tenantID, id string) error {
	query := "DELETE FROM pages WHERE id = " + s.ph(1) + " AND tenant_id = " + s.ph(2)
	res, err := s.db.ExecContext(ctx, query, id, tenantID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLRepository) GetPublishedPageBySlug(ctx context.Context, slug string) (model.Page, error) {
	query := "SELECT " + pageColumns + " FROM pages WHERE slug = " + s.ph(1) + " AND published = " + s.boolValue(true)
	return s.scanPage(s.db.QueryRowContext(ctx, query, slug))
}

func (s *SQLRepository) CreateAsset(ctx context.Context, a model.Asset) error {
	if strings.TrimSpace(a.ID) == "" || strings.TrimSpace(a.TenantID) == "" {
		return ErrInvalidInput
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	query := "INSERT INTO assets (id, tenant_id, uploaded_by, filename, content_type, size_bytes, created_at) VALUES (" +
		s.ph(1) + "," + s.ph(2) + "," + s.ph(3) + "," + s.ph(4) + "," + s.ph(5) + "," + s.ph(6) + "," + s.ph(7) + ")"
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.TenantID, a.UploadedBy, a.Filename, a.ContentType, a.SizeBytes, s.tsValue(a.CreatedAt))
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *SQLRepository) CountSummary(ctx context.Context, tenantID string) (model.AnalyticsSummary, error) {
	summary := model.AnalyticsSummary{TenantID: tenantID}
	pageQuery := "SELECT COUNT(*), COALESCE(SUM(CASE WHEN published THEN 1 ELSE 0 END), 0) FROM pages WHERE tenant_id = " + s.ph(1)
	if s.dialect == "sqlite" {
		pageQuery = "SELECT COUNT(*), COALESCE(SUM(published), 0) FROM pages WHERE tenant_id = " + s.ph(1)
	}
	if err := s.db.QueryRowContext(ctx, pageQuery, tenantID).Scan(&summary.Pages, &summary.PublishedPages); err != nil {
		return model.AnalyticsSummary{}, err
	}
	assetQuery := "SELECT COUNT(*) FROM assets WHERE tenant_id = " + s.ph(1)
	if err := s.db.QueryRowContext(ctx, assetQuery, tenantID).Scan(&summary.Assets); err != nil {
		return model.AnalyticsSummary{}, err
	}
	return summary, nil
}

type pageScanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLRepository) scanPage(row pageScanner) (model.Page, error) {
	p, err := s.scanPageRow(row)
	if err == sql.ErrNoRows {
		return model.Page{}, ErrNotFound
	}
	return p, err
}

func (s *SQLRepository) scanPageRow(row pageScanner) (model.Page, error) {
	var p model.Page
	var createdRaw, updatedRaw interface{}
	err := row.Scan(&p.ID, &p.TenantID, &p.Slug, &p.Title, &p.Content, &p.Published, &createdRaw, &updatedRaw)
	if err != nil {
		return model.Page{}, err
	}
	if p.CreatedAt, err = parseTimeRaw(createdRaw); err != nil {
		return model.Page{}, err
	}
	if p.UpdatedAt, err = parseTimeRaw(updatedRaw); err != nil {
		return model.Page{}, err
	}
	return p, nil
}

func (s *SQLRepository) ph(n int) string {
	if s.dialect == "postgres" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLRepository) tsValue(t time.Time) interface{} {
	if s.dialect == "sqlite" {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC()
}

func (s *SQLRepository) boolValue(b bool) string {
	if s.dialect == "sqlite" {
		if b {
			return "1"
		}
		return "0"
	}
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

func parseTimeRaw(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case []byte:
		return parseTimeString(string(t))
	case string:
		return parseTimeString(t)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func parseTimeString(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
