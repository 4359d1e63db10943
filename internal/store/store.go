package store

import (
	"context"
	"errors"
	"time"

	"github.com/gatekit-dev/gatekit/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	// Workspace resolution. Both methods only ever return workspaces whose
	// deleted_at is NULL; a soft-deleted tenant is indistinguishable from a
	// nonexistent one.
	GetWorkspaceByTenantID(ctx context.Context, tenantID string) (*models.Workspace, error)
	GetWorkspaceByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error)
	GetWorkspaceWithPermission(ctx context.Context, tenantID string, permissionID uuid.UUID) (*models.Workspace, []*models.Permission, error)

	GetAPI(ctx context.Context, id uuid.UUID, workspaceID uuid.UUID) (*models.API, error)
	ListKeys(ctx context.Context, filter KeyFilter) ([]*models.Key, int, error)

	UpdatePermission(ctx context.Context, id uuid.UUID, name string, description *string) error

	GetRootKeyByPrefix(ctx context.Context, prefix string) ([]*models.RootKey, error)
	UpdateRootKeyLastUsed(ctx context.Context, id uuid.UUID) error

	EnqueueAuditEntry(ctx context.Context, workspaceID uuid.UUID, payload []byte) error
	DequeueAuditBatch(ctx context.Context, limit, maxAttempts int) ([]*AuditOutboxRow, error)
	MarkAuditDelivered(ctx context.Context, ids []uuid.UUID) error
}

// KeyFilter selects keys for a listing query. KeyAuthID and WorkspaceID are
// always applied; OwnerID is an exact-match predicate when non-empty.
type KeyFilter struct {
	KeyAuthID   uuid.UUID
	WorkspaceID uuid.UUID
	OwnerID     string
	Limit       int
	Offset      int
}

// AuditOutboxRow is a queued audit entry awaiting delivery to the external
// ingestion service.
type AuditOutboxRow struct {
	ID          uuid.UUID
	WorkspaceID uuid.UUID
	Payload     []byte
	Attempts    int
	CreatedAt   time.Time
	DeliveredAt *time.Time
}
