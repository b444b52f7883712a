package api

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// requestClientIP derives the address admission decisions count against.
// The forwarding header is only consulted behind a trusted proxy; otherwise
// a client could pick its own bucket and dodge the per-IP limits.
func (s *Server) requestClientIP(r *http.Request) string {
	if s.clientIP.TrustProxy {
		if ip := firstForwardedIP(r.Header.Get(s.clientIP.Header)); ip != "" {
			return ip
		}
	}
	return socketIP(r.RemoteAddr)
}

func firstForwardedIP(header string) string {
	for _, part := range strings.Split(header, ",") {
		candidate := strings.TrimSpace(part)
		if candidate == "" {
			continue
		}
		// Some proxies forward host:port entries.
		if host, _, err := net.SplitHostPort(candidate); err == nil {
			candidate = host
		}
		if addr, err := netip.ParseAddr(candidate); err == nil {
			return addr.String()
		}
	}
	return ""
}

func socketIP(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
