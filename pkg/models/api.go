package models

import (
	"time"

	"github.com/google/uuid"
)

// API is a named keyring owned by one workspace. Keys attach to the API
// through its KeyAuthID rather than the API id itself, so a keyring can
// outlive renames and re-parenting.
type API struct {
	ID          uuid.UUID `db:"id"          json:"id"`
	WorkspaceID uuid.UUID `db:"workspace_id" json:"workspace_id"`
	KeyAuthID   uuid.UUID `db:"key_auth_id" json:"key_auth_id"`
	Name        string    `db:"name"        json:"name"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
}
