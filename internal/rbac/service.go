// Package rbac implements permission mutations and their audit trail.
package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gatekit-dev/gatekit/internal/store"
	"github.com/gatekit-dev/gatekit/pkg/models"
	"github.com/google/uuid"
)

// Sentinel errors surfaced to the transport layer. Workspace and permission
// misses carry different internal names but map to the same external
// NOT_FOUND condition, so a permission owned by another workspace is
// indistinguishable from one that does not exist.
var (
	ErrWorkspaceNotFound  = errors.New("workspace not found")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrUpdateFailed       = errors.New("permission update failed")
)

// Resolver is the slice of the workspace resolver this service depends on.
type Resolver interface {
	ResolveWithPermission(ctx context.Context, tenantID string, permissionID uuid.UUID) (*models.Workspace, []*models.Permission, error)
}

// PermissionStore is the slice of the data store this service depends on.
type PermissionStore interface {
	UpdatePermission(ctx context.Context, id uuid.UUID, name string, description *string) error
}

// AuditDispatcher hands a committed mutation's audit entry to the delivery
// policy.
type AuditDispatcher interface {
	Dispatch(ctx context.Context, entry models.AuditLogEntry) error
}

// UpdatePermissionParams holds validated parameters for a permission update.
// Name format and length are checked at the transport validation boundary
// before this service runs.
type UpdatePermissionParams struct {
	TenantID     string
	UserID       string
	PermissionID uuid.UUID
	Name         string
	Description  *string
	Location     string
	UserAgent    string
}

// Service applies permission mutations with a commit-then-audit sequence.
type Service struct {
	resolver Resolver
	store    PermissionStore
	audit    AuditDispatcher
}

// NewService creates a new rbac Service.
func NewService(r Resolver, s PermissionStore, a AuditDispatcher) *Service {
	return &Service{resolver: r, store: s, audit: a}
}

// UpdatePermission renames a permission and records exactly one audit entry.
// The audit entry is dispatched only after the update has committed; a
// dispatch failure is logged and never rolls back or flags the mutation.
func (s *Service) UpdatePermission(ctx context.Context, params UpdatePermissionParams) error {
	ws, permissions, err := s.resolver.ResolveWithPermission(ctx, params.TenantID, params.PermissionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrWorkspaceNotFound
		}
		return fmt.Errorf("resolving workspace: %w", err)
	}
	if len(permissions) == 0 {
		return ErrPermissionNotFound
	}

	if err := s.store.UpdatePermission(ctx, params.PermissionID, params.Name, params.Description); err != nil {
		slog.Error("permission update write failed",
			"permission_id", params.PermissionID,
			"workspace_id", ws.ID,
			"error", err,
		)
		return ErrUpdateFailed
	}

	entry := models.AuditLogEntry{
		WorkspaceID: ws.ID,
		Actor:       models.AuditActor{Type: "user", ID: params.UserID},
		Event:       models.AuditEventPermissionUpdate,
		Description: fmt.Sprintf("Update permission %s", params.PermissionID),
		Resources: []models.AuditResource{
			{Type: "permission", ID: params.PermissionID.String()},
		},
		Context: models.AuditContext{
			Location:  params.Location,
			UserAgent: params.UserAgent,
		},
	}
	if err := s.audit.Dispatch(ctx, entry); err != nil {
		slog.Error("audit dispatch failed after permission update",
			"permission_id", params.PermissionID,
			"workspace_id", ws.ID,
			"error", err,
		)
	}
	return nil
}
