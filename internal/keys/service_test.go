package keys_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gatekit-dev/gatekit/internal/keys"
	"github.com/gatekit-dev/gatekit/internal/store"
	"github.com/gatekit-dev/gatekit/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore implements store.Store; only the methods this service touches
// are given behavior.
type fakeStore struct {
	store.Store

	api    *models.API
	apiErr error

	keys      []*models.Key
	total     int
	listErr   error
	gotFilter store.KeyFilter
}

func (f *fakeStore) GetAPI(_ context.Context, id uuid.UUID, workspaceID uuid.UUID) (*models.API, error) {
	if f.apiErr != nil {
		return nil, f.apiErr
	}
	return f.api, nil
}

func (f *fakeStore) ListKeys(_ context.Context, filter store.KeyFilter) ([]*models.Key, int, error) {
	f.gotFilter = filter
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.keys, f.total, nil
}

func TestListKeys_FilterPassThrough(t *testing.T) {
	wsID := uuid.New()
	keyAuthID := uuid.New()
	apiID := uuid.New()
	owner := "user-1"

	fs := &fakeStore{
		api:   &models.API{ID: apiID, WorkspaceID: wsID, KeyAuthID: keyAuthID},
		keys:  []*models.Key{{ID: uuid.New(), KeyAuthID: keyAuthID, WorkspaceID: wsID, OwnerID: &owner}},
		total: 37,
	}
	svc := keys.NewService(fs)

	result, err := svc.ListKeys(context.Background(), keys.ListParams{
		APIID:       apiID,
		WorkspaceID: wsID,
		OwnerID:     owner,
		Limit:       10,
		Offset:      20,
	})
	require.NoError(t, err)

	assert.Equal(t, 37, result.Total)
	require.Len(t, result.Keys, 1)

	// The store filter is keyed by the API's keyring, not the API id.
	assert.Equal(t, keyAuthID, fs.gotFilter.KeyAuthID)
	assert.Equal(t, wsID, fs.gotFilter.WorkspaceID)
	assert.Equal(t, owner, fs.gotFilter.OwnerID)
	assert.Equal(t, 10, fs.gotFilter.Limit)
	assert.Equal(t, 20, fs.gotFilter.Offset)
}

func TestListKeys_UnknownAPI(t *testing.T) {
	fs := &fakeStore{apiErr: store.ErrNotFound}
	svc := keys.NewService(fs)

	_, err := svc.ListKeys(context.Background(), keys.ListParams{
		APIID:       uuid.New(),
		WorkspaceID: uuid.New(),
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, fs.gotFilter.KeyAuthID, "no key query for an unresolvable API")
}

func TestListKeys_StoreError(t *testing.T) {
	fs := &fakeStore{
		api:     &models.API{ID: uuid.New(), KeyAuthID: uuid.New()},
		listErr: errors.New("connection refused"),
	}
	svc := keys.NewService(fs)

	_, err := svc.ListKeys(context.Background(), keys.ListParams{APIID: uuid.New(), WorkspaceID: uuid.New()})
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}
