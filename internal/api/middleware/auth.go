package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gatekit-dev/gatekit/internal/api/response"
	"github.com/gatekit-dev/gatekit/internal/store"
	"github.com/gatekit-dev/gatekit/pkg/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefixLen = 8

// WorkspaceResolver checks that a credential's workspace is still live. A
// soft-deleted workspace surfaces as store.ErrNotFound.
type WorkspaceResolver interface {
	ResolveByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
}

// Auth authenticates root-key bearer credentials for the public key API.
type Auth struct {
	store    store.Store
	resolver WorkspaceResolver
}

// NewAuth creates a new Auth middleware.
func NewAuth(s store.Store, r WorkspaceResolver) *Auth {
	return &Auth{store: s, resolver: r}
}

// Authenticate validates the Bearer root key, looks it up by prefix, and sets
// the owning workspace id and key prefix in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := extractBearerToken(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if len(rawKey) < keyPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid root key format", nil)
			return
		}

		prefix := rawKey[:keyPrefixLen]

		keys, err := a.store.GetRootKeyByPrefix(r.Context(), prefix)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_SERVER_ERROR", "Failed to validate root key", nil)
			return
		}

		// Find matching key by bcrypt comparison
		var matched *models.RootKey
		for _, key := range keys {
			if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(rawKey)) == nil {
				matched = key
				break
			}
		}

		if matched == nil {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid root key", nil)
			return
		}

		// A key whose workspace was soft-deleted must stop working, and
		// must look exactly like an invalid key.
		ws, err := a.resolver.ResolveByID(r.Context(), matched.WorkspaceID)
		if err != nil {
			status, code, msg := http.StatusUnauthorized, "INVALID_TOKEN", "Invalid root key"
			if !errors.Is(err, store.ErrNotFound) {
				status, code, msg = http.StatusInternalServerError,
					"INTERNAL_SERVER_ERROR", "Failed to validate root key"
			}
			response.Error(w, status, code, msg, nil)
			return
		}

		ctx := r.Context()
		ctx = SetWorkspaceID(ctx, ws.ID)
		ctx = setKeyPrefix(ctx, prefix)

		// Update last_used_at async
		go a.store.UpdateRootKeyLastUsed(context.Background(), matched.ID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
