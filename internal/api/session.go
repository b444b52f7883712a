package api

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"

	"paginas/internal/model"
	"paginas/internal/tenant"
)

// Identity is the resolved session: who is calling, which tenant they
// belong to and what their role allows. The tenant id comes exclusively
// from the verified token, never from request parameters.
type Identity struct {
	UserID   string
	TenantID string
	Role     tenant.Role
}

func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (Identity, bool) {
	ident, err := s.identityFromRequest(r)
	if err != nil {
		s.auditAccess(r, "deny", "session", Identity{}, err.Error())
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing session token", nil, false)
		return Identity{}, false
	}
	return ident, true
}

func (s *Server) identityFromRequest(r *http.Request) (Identity, error) {
	raw := strings.TrimSpace(bearerToken(r.Header.Get("Authorization")))
	if raw == "" {
		return Identity{}, errors.New("missing bearer token")
	}
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.Alg() {
		case jwt.SigningMethodHS256.Alg():
			secret := strings.TrimSpace(s.session.HS256Secret)
			if secret == "" {
				return nil, fmt.Errorf("hs256 secret not configured")
			}
			return []byte(secret), nil
		case jwt.SigningMethodRS256.Alg():
			if strings.TrimSpace(s.session.JWKSURL) != "" {
				return s.resolveJWTKeyFromJWKS(token)
			}
			pemText := strings.TrimSpace(s.session.RS256PublicKeyPEM)
			if pemText == "" {
				return nil, fmt.Errorf("rs256 public key not configured")
			}
			return parseRSAPublicKeyPEM(pemText)
		default:
			return nil, fmt.Errorf("unsupported jwt signing algorithm: %s", token.Method.Alg())
		}
	})
	if err != nil || token == nil || !token.Valid {
		return Identity{}, errors.New("invalid session token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid session claims")
	}
	if !claims.VerifyIssuer(s.session.Issuer, strings.TrimSpace(s.session.Issuer) != "") {
		return Identity{}, errors.New("invalid session issuer")
	}
	if !claims.VerifyAudience(s.session.Audience, strings.TrimSpace(s.session.Audience) != "") {
		return Identity{}, errors.New("invalid session audience")
	}
	if !claims.VerifyExpiresAt(s.clock.Now().Unix(), true) {
		return Identity{}, errors.New("session token expired")
	}
	subject, _ := claims["sub"].(string)
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Identity{}, errors.New("session token missing subject")
	}
	tenantID, _ := claims["tenant_id"].(string)
	roleRaw, _ := claims["role"].(string)
	return Identity{
		UserID:   subject,
		TenantID: strings.TrimSpace(tenantID),
		Role:     tenant.ParseRole(roleRaw),
	}, nil
}

// mintSessionToken signs a fresh HS256 session for a locally authenticated
// user. RS256 and JWKS are verification-only paths.
func (s *Server) mintSessionToken(u model.User, now time.Time) (string, time.Time, error) {
	secret := strings.TrimSpace(s.session.HS256Secret)
	if secret == "" {
		return "", time.Time{}, errors.New("session signing not configured")
	}
	expiresAt := now.Add(s.session.TTL)
	claims := jwt.MapClaims{
		"sub":       u.ID,
		"tenant_id": u.TenantID,
		"role":      u.Role,
		"iat":       now.Unix(),
		"exp":       expiresAt.Unix(),
	}
	if iss := strings.TrimSpace(s.session.Issuer); iss != "" {
		claims["iss"] = iss
	}
	if aud := strings.TrimSpace(s.session.Audience); aud != "" {
		claims["aud"] = aud
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *Server) resolveJWTKeyFromJWKS(token *jwt.Token) (interface{}, error) {
	if s.jwksCache == nil {
		return nil, errors.New("jwks cache not configured")
	}
	kid := strings.TrimSpace(fmt.Sprintf("%v", token.Header["kid"]))
	if kid == "" {
		return nil, errors.New("jwt token missing kid header")
	}
	s.jwksMu.Lock()
	defer s.jwksMu.Unlock()
	return s.jwksCache.resolveKey(kid)
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func parseRSAPublicKeyPEM(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, errors.New("invalid rsa public key pem")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("pem is not an rsa public key")
	}
	return key, nil
}
