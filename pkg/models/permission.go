package models

import (
	"time"

	"github.com/google/uuid"
)

// Permission is a named RBAC capability scoped to a workspace. Name format
// and uniqueness are enforced at the validation boundary, not here.
type Permission struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	WorkspaceID uuid.UUID `db:"workspace_id" json:"workspace_id"`
	Name        string    `db:"name"         json:"name"`
	Description *string   `db:"description"  json:"description"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"   json:"updated_at"`
}
