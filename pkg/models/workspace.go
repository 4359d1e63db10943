package models

import (
	"time"

	"github.com/google/uuid"
)

// Workspace is the tenant-scoped ownership boundary. Every other entity
// belongs to a workspace. TenantID is the identity-provider tenant the
// workspace was provisioned for.
type Workspace struct {
	ID        uuid.UUID  `db:"id"         json:"id"`
	TenantID  string     `db:"tenant_id"  json:"tenant_id"`
	Name      string     `db:"name"       json:"name"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
