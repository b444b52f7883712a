package api

import "net/http"

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/auth/login", s.handleLogin)
	mux.HandleFunc("/v1/sites/", s.handleSiteBySlug)
	mux.HandleFunc("/v1/pages", s.handlePages)
	mux.HandleFunc("/v1/pages/", s.handlePageByID)
	mux.HandleFunc("/v1/uploads", s.handleUploads)
	mux.HandleFunc("/v1/analytics/summary", s.handleAnalyticsSummary)
	mux.HandleFunc("/v1/billing/portal", s.handleBillingPortal)
	mux.HandleFunc("/v1/webhooks/billing", s.handleBillingWebhook)
	return mux
}
