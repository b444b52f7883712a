package model

import "time"

// PlanStatus values tracked for a tenant's subscription. Updated by the
// billing provider's webhook, read by the API layer.
const (
	PlanActive   = "active"
	PlanPastDue  = "past_due"
	PlanCanceled = "canceled"
)

type Tenant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	PlanStatus string    `json:"plan_status"`
	CreatedAt  time.Time `json:"created_at"`
}

type User struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	Email          string    `json:"email"`
	PasswordDigest string    `json:"-"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

type Page struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Asset struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	UploadedBy  string    `json:"uploaded_by"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// AnalyticsSummary is the per-tenant usage rollup served by the analytics
// endpoint.
type AnalyticsSummary struct {
	TenantID       string `json:"tenant_id"`
	Pages          int    `json:"pages"`
	PublishedPages int    `json:"published_pages"`
	Assets         int    `json:"assets"`
}

// BillingSession is a short-lived, single-use handle minted for the hosted
// billing portal redirect.
type BillingSession struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
