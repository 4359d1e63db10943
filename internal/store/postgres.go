package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gatekit-dev/gatekit/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// DefaultKeyPageSize is applied when a listing query does not specify a
	// limit. MaxKeyPageSize bounds every page regardless of what the caller
	// asks for.
	DefaultKeyPageSize = 100
	MaxKeyPageSize     = 100
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Workspaces ---

func (s *PostgresStore) GetWorkspaceByTenantID(ctx context.Context, tenantID string) (*models.Workspace, error) {
	var w models.Workspace
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, deleted_at, created_at
		 FROM workspaces WHERE tenant_id = $1 AND deleted_at IS NULL`, tenantID,
	).Scan(&w.ID, &w.TenantID, &w.Name, &w.DeletedAt, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace by tenant: %w", err)
	}
	return &w, nil
}

func (s *PostgresStore) GetWorkspaceByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	var w models.Workspace
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, deleted_at, created_at
		 FROM workspaces WHERE id = $1 AND deleted_at IS NULL`, id,
	).Scan(&w.ID, &w.TenantID, &w.Name, &w.DeletedAt, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workspace by id: %w", err)
	}
	return &w, nil
}

// GetWorkspaceWithPermission resolves the tenant's workspace and, in the same
// round trip, loads its permission set filtered down to the given id. The
// permission slice has zero or one elements; zero means the id does not exist
// or belongs to another workspace, and the two cases are not distinguished.
func (s *PostgresStore) GetWorkspaceWithPermission(ctx context.Context, tenantID string, permissionID uuid.UUID) (*models.Workspace, []*models.Permission, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT w.id, w.tenant_id, w.name, w.deleted_at, w.created_at,
		        p.id, p.workspace_id, p.name, p.description, p.created_at, p.updated_at
		 FROM workspaces w
		 LEFT JOIN permissions p ON p.workspace_id = w.id AND p.id = $2
		 WHERE w.tenant_id = $1 AND w.deleted_at IS NULL`, tenantID, permissionID)
	if err != nil {
		return nil, nil, fmt.Errorf("get workspace with permission: %w", err)
	}
	defer rows.Close()

	var workspace *models.Workspace
	var permissions []*models.Permission
	for rows.Next() {
		var w models.Workspace
		var pID, pWorkspaceID *uuid.UUID
		var pName *string
		var pDescription *string
		var pCreatedAt, pUpdatedAt *time.Time
		if err := rows.Scan(&w.ID, &w.TenantID, &w.Name, &w.DeletedAt, &w.CreatedAt,
			&pID, &pWorkspaceID, &pName, &pDescription, &pCreatedAt, &pUpdatedAt); err != nil {
			return nil, nil, fmt.Errorf("scan workspace with permission: %w", err)
		}
		workspace = &w
		if pID != nil {
			permissions = append(permissions, &models.Permission{
				ID:          *pID,
				WorkspaceID: *pWorkspaceID,
				Name:        *pName,
				Description: pDescription,
				CreatedAt:   *pCreatedAt,
				UpdatedAt:   *pUpdatedAt,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan workspace with permission: %w", err)
	}
	if workspace == nil {
		return nil, nil, ErrNotFound
	}
	return workspace, permissions, nil
}

// --- APIs ---

func (s *PostgresStore) GetAPI(ctx context.Context, id uuid.UUID, workspaceID uuid.UUID) (*models.API, error) {
	var a models.API
	err := s.pool.QueryRow(ctx,
		`SELECT id, workspace_id, key_auth_id, name, created_at
		 FROM apis WHERE id = $1 AND workspace_id = $2`, id, workspaceID,
	).Scan(&a.ID, &a.WorkspaceID, &a.KeyAuthID, &a.Name, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get api: %w", err)
	}
	return &a, nil
}

// --- Keys ---

// ListKeys returns one page of keys matching the filter plus the total number
// of matching keys independent of pagination. Results are ordered by
// (created_at, id) so contiguous pages never skip or repeat a key while the
// data set is unchanged.
func (s *PostgresStore) ListKeys(ctx context.Context, filter KeyFilter) ([]*models.Key, int, error) {
	conditions := []string{"key_auth_id = $1", "workspace_id = $2"}
	args := []any{filter.KeyAuthID, filter.WorkspaceID}
	argIdx := 3

	if filter.OwnerID != "" {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argIdx))
		args = append(args, filter.OwnerID)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	// Count query
	var total int
	countQuery := "SELECT COUNT(*) FROM keys WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count keys: %w", err)
	}

	// Normalize pagination
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultKeyPageSize
	}
	if limit > MaxKeyPageSize {
		limit = MaxKeyPageSize
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	// Data query
	dataQuery := fmt.Sprintf(
		`SELECT id, key_auth_id, workspace_id, hash, start, owner_id, created_at
		 FROM keys WHERE %s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.Key
	for rows.Next() {
		var k models.Key
		if err := rows.Scan(&k.ID, &k.KeyAuthID, &k.WorkspaceID, &k.Hash, &k.Start,
			&k.OwnerID, &k.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, total, rows.Err()
}

// --- Permissions ---

func (s *PostgresStore) UpdatePermission(ctx context.Context, id uuid.UUID, name string, description *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE permissions SET name = $2, description = $3, updated_at = NOW() WHERE id = $1`,
		id, name, description)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("update permission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Root Keys ---

func (s *PostgresStore) GetRootKeyByPrefix(ctx context.Context, prefix string) ([]*models.RootKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, workspace_id, name, key_hash, key_prefix, last_used_at, deleted_at, created_at, updated_at
		 FROM root_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get root key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.RootKey
	for rows.Next() {
		var k models.RootKey
		if err := rows.Scan(&k.ID, &k.WorkspaceID, &k.Name, &k.KeyHash, &k.KeyPrefix,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan root key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateRootKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE root_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update root key last used: %w", err)
	}
	return nil
}

// --- Audit outbox ---

func (s *PostgresStore) EnqueueAuditEntry(ctx context.Context, workspaceID uuid.UUID, payload []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_outbox (id, workspace_id, payload) VALUES ($1, $2, $3)`,
		uuid.New(), workspaceID, payload)
	if err != nil {
		return fmt.Errorf("enqueue audit entry: %w", err)
	}
	return nil
}

// DequeueAuditBatch claims up to limit undelivered entries, oldest first,
// incrementing their attempt counter. Entries that have exhausted maxAttempts
// are left behind. SKIP LOCKED keeps concurrent flushers from claiming the
// same rows.
func (s *PostgresStore) DequeueAuditBatch(ctx context.Context, limit, maxAttempts int) ([]*AuditOutboxRow, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE audit_outbox SET attempts = attempts + 1
		 WHERE id IN (
		   SELECT id FROM audit_outbox
		   WHERE delivered_at IS NULL AND attempts < $2
		   ORDER BY created_at
		   LIMIT $1
		   FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, workspace_id, payload, attempts, created_at, delivered_at`,
		limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("dequeue audit batch: %w", err)
	}
	defer rows.Close()

	var batch []*AuditOutboxRow
	for rows.Next() {
		var r AuditOutboxRow
		if err := rows.Scan(&r.ID, &r.WorkspaceID, &r.Payload, &r.Attempts,
			&r.CreatedAt, &r.DeliveredAt); err != nil {
			return nil, fmt.Errorf("scan audit outbox row: %w", err)
		}
		batch = append(batch, &r)
	}
	return batch, rows.Err()
}

func (s *PostgresStore) MarkAuditDelivered(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE audit_outbox SET delivered_at = NOW() WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("mark audit delivered: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
