// Package keys implements the key directory query engine: scoped, filtered,
// paginated listing of the keys belonging to an API.
package keys

import (
	"context"
	"fmt"

	"github.com/gatekit-dev/gatekit/internal/store"
	"github.com/gatekit-dev/gatekit/pkg/models"
	"github.com/google/uuid"
)

// ListParams holds validated parameters for a key listing request.
// WorkspaceID is the caller's resolved workspace, never caller-supplied.
type ListParams struct {
	APIID       uuid.UUID
	WorkspaceID uuid.UUID
	OwnerID     string
	Limit       int
	Offset      int
}

// ListResult is one page of keys plus the total number of keys matching the
// filter regardless of pagination.
type ListResult struct {
	Keys  []*models.Key
	Total int
}

// Service executes key directory queries. Read-only; it never mutates keys.
type Service struct {
	store store.Store
}

// NewService creates a new key directory Service.
func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// ListKeys returns the keys of the given API, scoped to the caller's
// workspace. An API owned by another workspace is reported as
// store.ErrNotFound, identical to a nonexistent one. Every returned key
// belongs to params.WorkspaceID; ordering is stable so contiguous offset
// pages are gap-free and duplicate-free while the data set is unchanged.
func (s *Service) ListKeys(ctx context.Context, params ListParams) (*ListResult, error) {
	api, err := s.store.GetAPI(ctx, params.APIID, params.WorkspaceID)
	if err != nil {
		return nil, err
	}

	keys, total, err := s.store.ListKeys(ctx, store.KeyFilter{
		KeyAuthID:   api.KeyAuthID,
		WorkspaceID: params.WorkspaceID,
		OwnerID:     params.OwnerID,
		Limit:       params.Limit,
		Offset:      params.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}

	return &ListResult{Keys: keys, Total: total}, nil
}
