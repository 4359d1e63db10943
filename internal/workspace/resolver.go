// Package workspace resolves caller credentials to their owning workspace.
package workspace

import (
	"context"
	"log/slog"
	"time"

	"github.com/gatekit-dev/gatekit/internal/cache"
	"github.com/gatekit-dev/gatekit/internal/store"
	"github.com/gatekit-dev/gatekit/pkg/models"
	"github.com/google/uuid"
)

const resolveCacheTTL = 30 * time.Second

// Resolver maps a tenant identity (from a verified credential) onto the
// unique non-deleted workspace for that tenant. Soft-deleted and nonexistent
// tenants both surface as store.ErrNotFound so callers cannot probe which
// tenants exist.
type Resolver struct {
	store store.Store
	cache cache.Cache
}

// NewResolver creates a new Resolver.
func NewResolver(s store.Store, c cache.Cache) *Resolver {
	return &Resolver{store: s, cache: c}
}

// Resolve returns the workspace owned by tenantID. Successful resolutions are
// cached briefly; cache failures fall through to the store.
func (r *Resolver) Resolve(ctx context.Context, tenantID string) (*models.Workspace, error) {
	if ws, ok, err := r.cache.GetWorkspace(ctx, tenantID); err == nil && ok {
		return ws, nil
	}

	ws, err := r.store.GetWorkspaceByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.SetWorkspace(ctx, ws, resolveCacheTTL); err != nil {
		slog.Warn("caching resolved workspace failed", "error", err)
	}
	return ws, nil
}

// ResolveByID returns the live workspace with the given id. Used by the
// root-key flow, where the credential carries the workspace id directly: a
// key whose workspace has been soft-deleted must stop authenticating.
func (r *Resolver) ResolveByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	return r.store.GetWorkspaceByID(ctx, id)
}

// ResolveWithPermission resolves the workspace and loads its permission set
// filtered to permissionID in a single store round trip. The slice has zero
// or one elements. Never served from cache: the permission row must reflect
// the current database state before a mutation.
func (r *Resolver) ResolveWithPermission(ctx context.Context, tenantID string, permissionID uuid.UUID) (*models.Workspace, []*models.Permission, error) {
	return r.store.GetWorkspaceWithPermission(ctx, tenantID, permissionID)
}
