package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// AuditEvent is one row of audit_events. Timestamps are fixed-width UTC text.
type AuditEvent struct {
	ID         string
	Type       string
	Actor      string
	Subject    string
	LedgerID   string
	Count      int64
	Details    string
	OccurredAt string
	RecordedAt string
}

const insertAuditEvent = `INSERT OR IGNORE INTO audit_events (
    id, type, actor, subject, ledger_id, count, details, occurred_at, recorded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertAuditEvent reports whether a new row was written.
func (q *Queries) InsertAuditEvent(ctx context.Context, arg AuditEvent) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertAuditEvent,
		arg.ID,
		arg.Type,
		arg.Actor,
		arg.Subject,
		arg.LedgerID,
		arg.Count,
		arg.Details,
		arg.OccurredAt,
		arg.RecordedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const listAuditEvents = `SELECT id, type, actor, subject, ledger_id, count, details, occurred_at, recorded_at
FROM audit_events
ORDER BY occurred_at DESC, id DESC
LIMIT ?`

func (q *Queries) ListAuditEvents(ctx context.Context, limit int64) ([]AuditEvent, error) {
	rows, err := q.db.QueryContext(ctx, listAuditEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditEvent
	for rows.Next() {
		var i AuditEvent
		if err := rows.Scan(
			&i.ID,
			&i.Type,
			&i.Actor,
			&i.Subject,
			&i.LedgerID,
			&i.Count,
			&i.Details,
			&i.OccurredAt,
			&i.RecordedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
