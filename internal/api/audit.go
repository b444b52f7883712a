package api

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type auditEvent struct {
	Time           string `json:"time"`
	Decision       string `json:"decision"`
	Mechanism      string `json:"mechanism"`
	Actor          string `json:"actor,omitempty"`
	Tenant         string `json:"tenant,omitempty"`
	ResourceTenant string `json:"resource_tenant,omitempty"`
	ResourceID     string `json:"resource_id,omitempty"`
	Role           string `json:"role,omitempty"`
	Method         string `json:"method"`
	Path           string `json:"path"`
	RemoteIP       string `json:"remote_ip,omitempty"`
	RequestID      string `json:"request_id,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

func (s *Server) auditAccess(r *http.Request, decision, mechanism string, ident Identity, reason string) {
	s.writeAudit(auditEvent{
		Time:      time.Now().UTC().Format(time.RFC3339),
		Decision:  decision,
		Mechanism: mechanism,
		Actor:     ident.UserID,
		Tenant:    ident.TenantID,
		Role:      ident.Role.String(),
		Method:    r.Method,
		Path:      r.URL.Path,
		RemoteIP:  s.requestClientIP(r),
		RequestID: strings.TrimSpace(r.Header.Get("X-Request-Id")),
		Reason:    strings.TrimSpace(reason),
	})
}

func (s *Server) auditAdmission(r *http.Request, decision, action, reason string) {
	s.writeAudit(auditEvent{
		Time:      time.Now().UTC().Format(time.RFC3339),
		Decision:  decision,
		Mechanism: "rate_limit",
		Method:    r.Method,
		Path:      r.URL.Path,
		RemoteIP:  s.requestClientIP(r),
		RequestID: strings.TrimSpace(r.Header.Get("X-Request-Id")),
		Reason:    strings.TrimSpace(action + ": " + reason),
	})
}

// auditCrossTenant records an operator crossing the tenant boundary. It is
// a distinct event from an ordinary allow so reviews can find every bypass.
func (s *Server) auditCrossTenant(r *http.Request, ident Identity, resourceTenant, resourceID string) {
	s.writeAudit(auditEvent{
		Time:           time.Now().UTC().Format(time.RFC3339),
		Decision:       "allow",
		Mechanism:      "tenant_bypass",
		Actor:          ident.UserID,
		Tenant:         ident.TenantID,
		ResourceTenant: resourceTenant,
		ResourceID:     resourceID,
		Role:           ident.Role.String(),
		Method:         r.Method,
		Path:           r.URL.Path,
		RemoteIP:       s.requestClientIP(r),
		RequestID:      strings.TrimSpace(r.Header.Get("X-Request-Id")),
	})
}

func (s *Server) writeAudit(ev auditEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Printf("audit decision=%s mechanism=%s path=%s reason=%s", ev.Decision, ev.Mechanism, ev.Path, ev.Reason)
		return
	}
	line := "audit " + string(b)
	log.Print(line)
	s.writeAuditLine(line)
}

func (s *Server) writeAuditLine(line string) {
	path := strings.TrimSpace(s.audit.LogFile)
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		log.Printf("audit_file_error path=%s err=%v", path, err)
		return
	}
	defer f.Close()
	_, _ = f.WriteString(line + "\n")
}
