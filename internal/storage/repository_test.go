package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/brandonwu32/financedashboard/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "audit.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRecordAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	events := []core.Event{
		{ID: "a", Type: core.EventAccessRequested, Actor: "ana@example.com", Subject: "ana@example.com", At: base},
		{ID: "b", Type: core.EventAccessApproved, Actor: "boss@example.com", Subject: "ana@example.com", Details: "user", At: base.Add(time.Minute)},
		{ID: "c", Type: core.EventTransactionsAppended, Actor: "ana@example.com", Subject: "ana@example.com", LedgerID: "ledger-1", Count: 4, At: base.Add(1500 * time.Millisecond)},
	}
	for _, ev := range events {
		if err := repo.Record(ctx, ev); err != nil {
			t.Fatalf("Record(%s): %v", ev.ID, err)
		}
	}

	got, err := repo.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	order := []string{got[0].ID, got[1].ID, got[2].ID}
	if order[0] != "b" || order[1] != "c" || order[2] != "a" {
		t.Errorf("order = %v, want newest first", order)
	}
	if got[1].Count != 4 || got[1].LedgerID != "ledger-1" || !got[1].At.Equal(events[2].At) {
		t.Errorf("appended event = %+v", got[1])
	}

	limited, err := repo.List(ctx, 1)
	if err != nil {
		t.Fatalf("List(1): %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "b" {
		t.Errorf("limited = %+v", limited)
	}
}

func TestRecordIgnoresRedelivery(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ev := core.Event{ID: "dup", Type: core.EventBudgetsUpdated, At: time.Now()}

	for i := 0; i < 3; i++ {
		if err := repo.Record(ctx, ev); err != nil {
			t.Fatalf("Record #%d: %v", i, err)
		}
	}
	got, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}

func TestRecordRequiresID(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.Record(context.Background(), core.Event{Type: core.EventAccessRejected})
	if !errors.Is(err, core.ErrInput) {
		t.Errorf("err = %v, want ErrInput", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(path); err != nil {
			t.Fatalf("RunMigrations #%d: %v", i, err)
		}
	}
}
