// Package storage keeps the audit trail of domain events in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/log"

	_ "modernc.org/sqlite"
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Fixed-width UTC timestamps sort correctly as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db), now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Record stores ev. Redelivered events with a known id are ignored.
func (r *SQLiteRepository) Record(ctx context.Context, ev core.Event) error {
	if ev.ID == "" {
		return core.E(core.ErrInput, "storage.Record", errors.New("event id is required"))
	}
	at := ev.At
	if at.IsZero() {
		at = r.now()
	}
	inserted, err := r.queries.InsertAuditEvent(ctx, AuditEvent{
		ID:         ev.ID,
		Type:       string(ev.Type),
		Actor:      ev.Actor,
		Subject:    ev.Subject,
		LedgerID:   ev.LedgerID,
		Count:      int64(ev.Count),
		Details:    ev.Details,
		OccurredAt: at.UTC().Format(timestampLayout),
		RecordedAt: r.now().UTC().Format(timestampLayout),
	})
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	if !inserted {
		slog.DebugContext(ctx, "Duplicate audit event ignored",
			log.FieldComponent, log.ComponentStorage,
			log.FieldEventID, ev.ID)
		return nil
	}
	slog.InfoContext(ctx, "Audit event recorded",
		log.FieldComponent, log.ComponentStorage,
		log.FieldEventID, ev.ID,
		log.FieldEventType, ev.Type,
		log.FieldUser, ev.Subject)
	return nil
}

// List returns the newest events first.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]core.Event, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := r.queries.ListAuditEvents(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	events := make([]core.Event, 0, len(rows))
	for _, row := range rows {
		at, err := time.Parse(timestampLayout, row.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("audit event %s: bad timestamp %q: %w", row.ID, row.OccurredAt, err)
		}
		events = append(events, core.Event{
			ID:       row.ID,
			Type:     core.EventType(row.Type),
			Actor:    row.Actor,
			Subject:  row.Subject,
			LedgerID: row.LedgerID,
			Count:    int(row.Count),
			Details:  row.Details,
			At:       at,
		})
	}
	return events, nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
