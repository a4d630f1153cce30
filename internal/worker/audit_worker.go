// Package worker runs the background consumers that sit behind the event
// exchange.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/log"
)

// EventRecorder persists events. storage.SQLiteRepository satisfies it.
type EventRecorder interface {
	Record(ctx context.Context, ev core.Event) error
}

// EventConsumer blocks delivering events until ctx ends. amqp.Client
// satisfies it.
type EventConsumer interface {
	Consume(ctx context.Context, handler func(context.Context, core.Event) error) error
}

// AuditWorker writes every consumed event to the audit log.
type AuditWorker struct {
	recorder EventRecorder
	handled  atomic.Int64
	failed   atomic.Int64
}

func NewAuditWorker(recorder EventRecorder) *AuditWorker {
	return &AuditWorker{recorder: recorder}
}

// HandleEvent records ev. A returned error makes the consumer requeue the
// delivery.
func (w *AuditWorker) HandleEvent(ctx context.Context, ev core.Event) error {
	if err := w.recorder.Record(ctx, ev); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("record %s event %s: %w", ev.Type, ev.ID, err)
	}
	w.handled.Add(1)
	slog.DebugContext(ctx, "Event audited",
		log.FieldComponent, log.ComponentWorker,
		log.FieldEventID, ev.ID,
		log.FieldEventType, ev.Type)
	return nil
}

// Run consumes until ctx is cancelled. Cancellation is a clean stop.
func (w *AuditWorker) Run(ctx context.Context, consumer EventConsumer) error {
	slog.InfoContext(ctx, "Audit worker started", log.FieldComponent, log.ComponentWorker)
	err := consumer.Consume(ctx, w.HandleEvent)
	slog.InfoContext(ctx, "Audit worker stopped",
		log.FieldComponent, log.ComponentWorker,
		"handled", w.handled.Load(),
		"failed", w.failed.Load())
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Stats returns the number of events recorded and the number that failed.
func (w *AuditWorker) Stats() (handled, failed int64) {
	return w.handled.Load(), w.failed.Load()
}
