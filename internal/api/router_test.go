package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gatekit-dev/gatekit/internal/api"
	"github.com/gatekit-dev/gatekit/internal/api/handler"
	mw "github.com/gatekit-dev/gatekit/internal/api/middleware"
	"github.com/gatekit-dev/gatekit/internal/audit"
	"github.com/gatekit-dev/gatekit/internal/config"
	"github.com/gatekit-dev/gatekit/internal/keys"
	"github.com/gatekit-dev/gatekit/internal/rbac"
	"github.com/gatekit-dev/gatekit/internal/store"
	"github.com/gatekit-dev/gatekit/internal/workspace"
	"github.com/gatekit-dev/gatekit/pkg/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testRootKey    = "gk_test_0123456789abcdef"
	testJWTSecret  = "router-test-secret"
	testTenantID   = "tenant-router"
	testUserID     = "user-router"
	testPermission = "api.read"
)

// stubStore is a fixed-fixture in-memory store: one workspace, one API with
// two keys, one permission, one root key.
type stubStore struct {
	workspace  *models.Workspace
	apiRes     *models.API
	keys       []*models.Key
	permission *models.Permission
	rootKey    *models.RootKey

	updatedName string
	auditQueued int
}

func newStubStore(t *testing.T) *stubStore {
	t.Helper()
	wsID := uuid.New()
	keyAuthID := uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte(testRootKey), bcrypt.MinCost)
	require.NoError(t, err)

	owner := "owner-1"
	return &stubStore{
		workspace: &models.Workspace{ID: wsID, TenantID: testTenantID, Name: "router-ws"},
		apiRes:    &models.API{ID: uuid.New(), WorkspaceID: wsID, KeyAuthID: keyAuthID, Name: "api"},
		keys: []*models.Key{
			{ID: uuid.New(), KeyAuthID: keyAuthID, WorkspaceID: wsID, Start: "gk_aaa", CreatedAt: time.Now()},
			{ID: uuid.New(), KeyAuthID: keyAuthID, WorkspaceID: wsID, Start: "gk_bbb", OwnerID: &owner, CreatedAt: time.Now()},
		},
		permission: &models.Permission{ID: uuid.New(), WorkspaceID: wsID, Name: testPermission},
		rootKey: &models.RootKey{
			ID:          uuid.New(),
			WorkspaceID: wsID,
			Name:        "router-key",
			KeyHash:     string(hash),
			KeyPrefix:   testRootKey[:8],
		},
	}
}

func (s *stubStore) Ping(context.Context) error { return nil }

func (s *stubStore) GetWorkspaceByTenantID(_ context.Context, tenantID string) (*models.Workspace, error) {
	if tenantID != s.workspace.TenantID {
		return nil, store.ErrNotFound
	}
	return s.workspace, nil
}

func (s *stubStore) GetWorkspaceByID(_ context.Context, id uuid.UUID) (*models.Workspace, error) {
	if id != s.workspace.ID {
		return nil, store.ErrNotFound
	}
	return s.workspace, nil
}

func (s *stubStore) GetWorkspaceWithPermission(_ context.Context, tenantID string, permissionID uuid.UUID) (*models.Workspace, []*models.Permission, error) {
	if tenantID != s.workspace.TenantID {
		return nil, nil, store.ErrNotFound
	}
	if permissionID != s.permission.ID {
		return s.workspace, nil, nil
	}
	return s.workspace, []*models.Permission{s.permission}, nil
}

func (s *stubStore) GetAPI(_ context.Context, id uuid.UUID, workspaceID uuid.UUID) (*models.API, error) {
	if id != s.apiRes.ID || workspaceID != s.apiRes.WorkspaceID {
		return nil, store.ErrNotFound
	}
	return s.apiRes, nil
}

func (s *stubStore) ListKeys(_ context.Context, filter store.KeyFilter) ([]*models.Key, int, error) {
	var out []*models.Key
	for _, k := range s.keys {
		if k.KeyAuthID != filter.KeyAuthID || k.WorkspaceID != filter.WorkspaceID {
			continue
		}
		if filter.OwnerID != "" && (k.OwnerID == nil || *k.OwnerID != filter.OwnerID) {
			continue
		}
		out = append(out, k)
	}
	return out, len(out), nil
}

func (s *stubStore) UpdatePermission(_ context.Context, id uuid.UUID, name string, _ *string) error {
	if id != s.permission.ID {
		return store.ErrNotFound
	}
	s.updatedName = name
	return nil
}

func (s *stubStore) GetRootKeyByPrefix(_ context.Context, prefix string) ([]*models.RootKey, error) {
	if prefix != s.rootKey.KeyPrefix {
		return nil, nil
	}
	return []*models.RootKey{s.rootKey}, nil
}

func (s *stubStore) UpdateRootKeyLastUsed(context.Context, uuid.UUID) error { return nil }

func (s *stubStore) EnqueueAuditEntry(context.Context, uuid.UUID, []byte) error {
	s.auditQueued++
	return nil
}

func (s *stubStore) DequeueAuditBatch(context.Context, int, int) ([]*store.AuditOutboxRow, error) {
	return nil, nil
}

func (s *stubStore) MarkAuditDelivered(context.Context, []uuid.UUID) error { return nil }

// stubCache never hits and accepts all writes.
type stubCache struct{}

func (stubCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (stubCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (stubCache) Delete(context.Context, string) error                     { return nil }
func (stubCache) Ping(context.Context) error                               { return nil }
func (stubCache) SetWorkspace(context.Context, *models.Workspace, time.Duration) error {
	return nil
}
func (stubCache) GetWorkspace(context.Context, string) (*models.Workspace, bool, error) {
	return nil, false, nil
}
func (stubCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

type noopEmitter struct{}

func (noopEmitter) Ingest(context.Context, []models.AuditLogEntry) error { return nil }

func newTestRouter(t *testing.T, s *stubStore) http.Handler {
	t.Helper()
	c := stubCache{}
	resolver := workspace.NewResolver(s, c)
	keySvc := keys.NewService(s)
	dispatcher := audit.NewDispatcher(noopEmitter{}, s, config.AuditDeliveryBestEffort)
	rbacSvc := rbac.NewService(resolver, s, dispatcher)

	return api.NewRouter(api.Dependencies{
		Auth:        mw.NewAuth(s, resolver),
		SessionAuth: mw.NewSessionAuth(testJWTSecret),
		RateLimit:   mw.NewRateLimit(c, 60),
		HealthHandler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
		ListKeysHandler:         handler.NewListKeysHandler(keySvc),
		UpdatePermissionHandler: handler.NewUpdatePermissionHandler(rbacSvc),
	})
}

func sessionToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"tenant_id": testTenantID,
		"user_id":   testUserID,
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, newStubStore(t))

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ListKeys(t *testing.T) {
	s := newStubStore(t)
	router := newTestRouter(t, s)

	req := httptest.NewRequest(http.MethodGet, "/v1/apis/"+s.apiRes.ID.String()+"/keys", nil)
	req.Header.Set("Authorization", "Bearer "+testRootKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":2`)
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
}

func TestRouter_ListKeysRequiresRootKey(t *testing.T) {
	s := newStubStore(t)
	router := newTestRouter(t, s)

	req := httptest.NewRequest(http.MethodGet, "/v1/apis/"+s.apiRes.ID.String()+"/keys", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_SessionTokenDoesNotOpenKeyAPI(t *testing.T) {
	s := newStubStore(t)
	router := newTestRouter(t, s)

	req := httptest.NewRequest(http.MethodGet, "/v1/apis/"+s.apiRes.ID.String()+"/keys", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code, "the two auth mechanisms are not interchangeable")
}

func TestRouter_UpdatePermission(t *testing.T) {
	s := newStubStore(t)
	router := newTestRouter(t, s)

	body := `{"id":"` + s.permission.ID.String() + `","name":"api.write"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/rpc/rbac.updatePermission", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+sessionToken(t))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "api.write", s.updatedName)
}

func TestRouter_UpdatePermissionRequiresSession(t *testing.T) {
	s := newStubStore(t)
	router := newTestRouter(t, s)

	body := `{"id":"` + s.permission.ID.String() + `","name":"api.write"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/rpc/rbac.updatePermission", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+testRootKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, s.updatedName)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router := newTestRouter(t, newStubStore(t))

	req := httptest.NewRequest(http.MethodGet, "/v1/nothing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
