package models

import (
	"time"

	"github.com/google/uuid"
)

// Key is a hashed secret credential belonging to a keyring. Only the digest
// is stored; the plaintext is shown once at issuance and never again. Start
// is the short non-secret prefix used for display.
type Key struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	KeyAuthID   uuid.UUID `db:"key_auth_id"  json:"key_auth_id"`
	WorkspaceID uuid.UUID `db:"workspace_id" json:"workspace_id"`
	Hash        string    `db:"hash"         json:"-"`
	Start       string    `db:"start"        json:"start"`
	OwnerID     *string   `db:"owner_id"     json:"owner_id,omitempty"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}
