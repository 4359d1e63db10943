package middleware

import (
	"net"
	"net/http"

	"github.com/gatekit-dev/gatekit/internal/api/response"
	"github.com/golang-jwt/jwt/v5"
)

// SessionAuth authenticates dashboard sessions for RPC-style mutations. The
// session token is an HS256 JWT minted by the identity provider, carrying the
// tenant and acting user. This is a separate mechanism from root-key auth:
// root keys manage a workspace's key API, sessions drive the dashboard RPCs.
type SessionAuth struct {
	secret []byte
}

// NewSessionAuth creates a new SessionAuth middleware.
func NewSessionAuth(secret string) *SessionAuth {
	return &SessionAuth{secret: []byte(secret)}
}

type sessionClaims struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	jwt.RegisteredClaims
}

// Authenticate verifies the session JWT and sets the Session (tenant, user,
// and audit metadata) in the request context.
func (s *SessionAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		var claims sessionClaims
		parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
		if err != nil || !parsed.Valid {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid session token", nil)
			return
		}
		if claims.TenantID == "" || claims.UserID == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid session token", nil)
			return
		}

		ctx := SetSession(r.Context(), Session{
			TenantID:  claims.TenantID,
			UserID:    claims.UserID,
			Location:  remoteIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
