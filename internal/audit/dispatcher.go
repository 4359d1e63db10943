package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gatekit-dev/gatekit/internal/config"
	"github.com/gatekit-dev/gatekit/internal/store"
	"github.com/gatekit-dev/gatekit/pkg/models"
	"github.com/google/uuid"
)

// Dispatcher routes audit entries to the ingestion service according to the
// configured delivery policy. Dispatch is always called after the audited
// mutation has committed; a dispatch failure never changes the mutation's
// outcome, only whether the entry is retried.
type Dispatcher struct {
	emitter  Emitter
	store    store.Store
	delivery string
}

// NewDispatcher creates a new Dispatcher. delivery is one of
// config.AuditDeliveryBestEffort or config.AuditDeliveryOutbox.
func NewDispatcher(e Emitter, s store.Store, delivery string) *Dispatcher {
	return &Dispatcher{emitter: e, store: s, delivery: delivery}
}

// Dispatch hands off one entry. Under best_effort the entry is submitted
// synchronously and a failure is reported to the caller (who logs it and
// moves on). Under outbox the entry is queued durably and a background
// flusher delivers it at least once.
func (d *Dispatcher) Dispatch(ctx context.Context, entry models.AuditLogEntry) error {
	switch d.delivery {
	case config.AuditDeliveryOutbox:
		payload, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encoding audit entry: %w", err)
		}
		if err := d.store.EnqueueAuditEntry(ctx, entry.WorkspaceID, payload); err != nil {
			return fmt.Errorf("queueing audit entry: %w", err)
		}
		return nil
	default:
		if err := d.emitter.Ingest(ctx, []models.AuditLogEntry{entry}); err != nil {
			return fmt.Errorf("ingesting audit entry: %w", err)
		}
		return nil
	}
}

// Flusher drains the audit outbox in the background when the outbox delivery
// policy is active.
type Flusher struct {
	store       store.Store
	emitter     Emitter
	interval    time.Duration
	batchSize   int
	maxAttempts int
}

// NewFlusher creates a new Flusher.
func NewFlusher(s store.Store, e Emitter, interval time.Duration, batchSize, maxAttempts int) *Flusher {
	return &Flusher{
		store:       s,
		emitter:     e,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

// Run flushes on a fixed interval until ctx is cancelled.
func (f *Flusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := f.FlushOnce(ctx); err != nil {
				slog.Error("audit outbox flush failed", "error", err)
			} else if n > 0 {
				slog.Info("audit outbox flushed", "delivered", n)
			}
		}
	}
}

// FlushOnce claims one batch of pending entries and submits it. Claimed rows
// have their attempt counter incremented by the dequeue, so a failed batch is
// retried on a later tick until maxAttempts is exhausted.
func (f *Flusher) FlushOnce(ctx context.Context) (int, error) {
	batch, err := f.store.DequeueAuditBatch(ctx, f.batchSize, f.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("dequeueing audit batch: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	entries := make([]models.AuditLogEntry, 0, len(batch))
	ids := make([]uuid.UUID, 0, len(batch))
	for _, row := range batch {
		var entry models.AuditLogEntry
		if err := json.Unmarshal(row.Payload, &entry); err != nil {
			// A row that cannot decode will never deliver; drop it rather
			// than wedge the queue.
			slog.Error("dropping undecodable audit outbox row", "id", row.ID, "error", err)
			ids = append(ids, row.ID)
			continue
		}
		entries = append(entries, entry)
		ids = append(ids, row.ID)
	}

	if err := f.emitter.Ingest(ctx, entries); err != nil {
		return 0, fmt.Errorf("ingesting audit batch: %w", err)
	}

	if err := f.store.MarkAuditDelivered(ctx, ids); err != nil {
		return 0, fmt.Errorf("marking audit batch delivered: %w", err)
	}
	return len(entries), nil
}
