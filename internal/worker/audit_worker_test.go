package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/brandonwu32/financedashboard/internal/core"
)

type fakeRecorder struct {
	events []core.Event
	err    error
}

func (f *fakeRecorder) Record(_ context.Context, ev core.Event) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

// sliceConsumer delivers a fixed batch, then waits for cancellation.
type sliceConsumer struct {
	events  []core.Event
	results []error
	done    chan struct{}
}

func (c *sliceConsumer) Consume(ctx context.Context, handler func(context.Context, core.Event) error) error {
	for _, ev := range c.events {
		c.results = append(c.results, handler(ctx, ev))
	}
	close(c.done)
	<-ctx.Done()
	return ctx.Err()
}

func TestAuditWorkerRun(t *testing.T) {
	rec := &fakeRecorder{}
	w := NewAuditWorker(rec)
	consumer := &sliceConsumer{
		events: []core.Event{
			{ID: "1", Type: core.EventAccessRequested},
			{ID: "2", Type: core.EventAccessApproved},
		},
		done: make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx, consumer) }()

	<-consumer.done
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run returned %v after cancel", err)
	}
	if len(rec.events) != 2 {
		t.Fatalf("recorded %d events, want 2", len(rec.events))
	}
	if handled, failed := w.Stats(); handled != 2 || failed != 0 {
		t.Errorf("stats = %d/%d", handled, failed)
	}
}

func TestAuditWorkerHandleEventFailure(t *testing.T) {
	boom := errors.New("database is locked")
	w := NewAuditWorker(&fakeRecorder{err: boom})

	err := w.HandleEvent(context.Background(), core.Event{ID: "x", Type: core.EventBudgetsUpdated})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped recorder error", err)
	}
	if _, failed := w.Stats(); failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
}

type brokenConsumer struct{ err error }

func (b brokenConsumer) Consume(context.Context, func(context.Context, core.Event) error) error {
	return b.err
}

func TestAuditWorkerRunPropagatesConsumerError(t *testing.T) {
	boom := errors.New("dial AMQP: connection refused")
	w := NewAuditWorker(&fakeRecorder{})
	if err := w.Run(context.Background(), brokenConsumer{err: boom}); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}
