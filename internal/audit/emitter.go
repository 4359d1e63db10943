// Package audit submits append-only audit log entries to the external
// ingestion service and owns the delivery policy for doing so.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gatekit-dev/gatekit/pkg/models"
)

// Sentinel errors for ingestion failures.
var (
	ErrIngestUnreachable = errors.New("audit ingest unreachable")
	ErrIngestRejected    = errors.New("audit ingest rejected entries")
)

// Emitter is the contract to the external audit log service. Ingestion is
// append-only; entries are never read back through this interface.
type Emitter interface {
	Ingest(ctx context.Context, entries []models.AuditLogEntry) error
}

// HTTPEmitter implements Emitter against the ingestion service's HTTP API.
type HTTPEmitter struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPEmitter creates a new HTTPEmitter.
func NewHTTPEmitter(baseURL, token string, timeout time.Duration) *HTTPEmitter {
	return &HTTPEmitter{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Ingest submits a batch of entries. The service either accepts the whole
// batch or rejects it; partial acceptance is not part of the contract.
func (e *HTTPEmitter) Ingest(ctx context.Context, entries []models.AuditLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	body, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding audit entries: %w", err)
	}

	u := e.baseURL + "/v1/ingest"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIngestUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", ErrIngestRejected, resp.StatusCode, msg)
	}
	return nil
}
