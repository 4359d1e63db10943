package models

import (
	"github.com/google/uuid"
)

// Audit log event tags emitted by this service.
const (
	AuditEventPermissionUpdate = "permission.update"
)

// AuditActor identifies who performed a mutation.
type AuditActor struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// AuditResource is one resource touched by a mutation, in the order it was
// touched.
type AuditResource struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// AuditContext carries request metadata for compliance review.
type AuditContext struct {
	Location  string `json:"location"`
	UserAgent string `json:"user_agent"`
}

// AuditLogEntry is an append-only record of a mutation, submitted to the
// external audit ingestion service. This service only constructs and sends
// entries; it never reads them back.
type AuditLogEntry struct {
	WorkspaceID uuid.UUID       `json:"workspace_id"`
	Actor       AuditActor      `json:"actor"`
	Event       string          `json:"event"`
	Description string          `json:"description"`
	Resources   []AuditResource `json:"resources"`
	Context     AuditContext    `json:"context"`
}
