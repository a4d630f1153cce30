// Package registry maps user emails to their ledgers and governs access.
//
// The central registry document has two sections, "registry" and
// "requests", each with a header in row 1. Every operation loads both
// sections once into a Snapshot indexed by normalized email and writes
// changes back cell by cell. Concurrent writers are last-write-wins.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/ledger"
	"github.com/brandonwu32/financedashboard/internal/sheets"
)

// Registry columns, 1-based.
const (
	colEntryEmail = iota + 1
	colEntryLedger
	colEntryStatus
	colEntryAccess
	colEntryCreated
	colEntryNotes
)

// Request columns, 1-based.
const (
	colReqEmail = iota + 1
	colReqStatus
	colReqRequested
	colReqNotes
)

// firstDataRow is the sheet row of the first record under the header.
const firstDataRow = 2

type (
	entryRow struct {
		core.RegistryEntry
		Row int
	}

	requestRow struct {
		core.AccessRequest
		Row int
	}

	// Snapshot is the registry as read at the start of one operation.
	Snapshot struct {
		entries  map[string]entryRow
		requests map[string]requestRow
		order    []string

		nextEntryRow   int
		nextRequestRow int
	}
)

// Entry looks up an email, case-insensitively.
func (s *Snapshot) Entry(email string) (core.RegistryEntry, bool) {
	e, ok := s.entries[core.NormalizeEmail(email)]
	return e.RegistryEntry, ok
}

// Request looks up the access request for an email.
func (s *Snapshot) Request(email string) (core.AccessRequest, bool) {
	r, ok := s.requests[core.NormalizeEmail(email)]
	return r.AccessRequest, ok
}

// Requests returns every request in sheet order.
func (s *Snapshot) Requests() []core.AccessRequest {
	out := make([]core.AccessRequest, 0, len(s.order))
	for _, email := range s.order {
		out = append(out, s.requests[email].AccessRequest)
	}
	return out
}

// Store reads and writes the registry document.
type Store struct {
	docs       sheets.LedgerStore
	registryID string
}

func NewStore(docs sheets.LedgerStore, registryID string) *Store {
	return &Store{docs: docs, registryID: strings.TrimSpace(registryID)}
}

// Load reads both sections and indexes them by normalized email. When an
// email appears more than once the first row wins.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	if s.registryID == "" {
		return nil, core.Errorf(core.ErrUpstreamPermanent, "load registry", "USER_REGISTRY_SPREADSHEET_ID is not configured")
	}
	entryRows, err := s.docs.ReadRange(ctx, s.registryID, fmt.Sprintf("%s!A%d:F", sheets.RegistrySection, firstDataRow))
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	reqRows, err := s.docs.ReadRange(ctx, s.registryID, fmt.Sprintf("%s!A%d:D", sheets.RequestsSection, firstDataRow))
	if err != nil {
		return nil, fmt.Errorf("read requests: %w", err)
	}
	return buildSnapshot(entryRows, reqRows), nil
}

func buildSnapshot(entryRows, reqRows [][]string) *Snapshot {
	snap := &Snapshot{
		entries:  make(map[string]entryRow, len(entryRows)),
		requests: make(map[string]requestRow, len(reqRows)),

		nextEntryRow:   firstDataRow + len(entryRows),
		nextRequestRow: firstDataRow + len(reqRows),
	}
	for i, row := range entryRows {
		email := core.NormalizeEmail(cell(row, colEntryEmail))
		if email == "" {
			continue
		}
		if _, dup := snap.entries[email]; dup {
			continue
		}
		level, err := core.ParseAccessLevel(cell(row, colEntryAccess))
		if err != nil {
			level = core.LevelUser
		}
		snap.entries[email] = entryRow{
			RegistryEntry: core.RegistryEntry{
				Email:       email,
				LedgerID:    strings.TrimSpace(cell(row, colEntryLedger)),
				Status:      core.ParseRegistryStatus(cell(row, colEntryStatus)),
				AccessLevel: level,
				CreatedAt:   strings.TrimSpace(cell(row, colEntryCreated)),
				Notes:       strings.TrimSpace(cell(row, colEntryNotes)),
			},
			Row: firstDataRow + i,
		}
	}
	for i, row := range reqRows {
		email := core.NormalizeEmail(cell(row, colReqEmail))
		if email == "" {
			continue
		}
		if _, dup := snap.requests[email]; dup {
			continue
		}
		snap.requests[email] = requestRow{
			AccessRequest: core.AccessRequest{
				Email:       email,
				Status:      core.ParseRequestStatus(cell(row, colReqStatus)),
				RequestedAt: strings.TrimSpace(cell(row, colReqRequested)),
				Notes:       strings.TrimSpace(cell(row, colReqNotes)),
			},
			Row: firstDataRow + i,
		}
		snap.order = append(snap.order, email)
	}
	return snap
}

// PutEntry writes e, updating its existing row or appending a new one.
func (s *Store) PutEntry(ctx context.Context, snap *Snapshot, e core.RegistryEntry) error {
	e.Email = core.NormalizeEmail(e.Email)
	values := []any{
		e.Email,
		e.LedgerID,
		string(e.Status),
		string(e.AccessLevel),
		e.CreatedAt,
		ledger.SanitizeForStorage(e.Notes),
	}
	if cur, ok := snap.entries[e.Email]; ok {
		if err := s.updateRow(ctx, sheets.RegistrySection, cur.Row, values); err != nil {
			return fmt.Errorf("update registry entry: %w", err)
		}
		snap.entries[e.Email] = entryRow{RegistryEntry: e, Row: cur.Row}
		return nil
	}
	if err := s.docs.AppendRows(ctx, s.registryID, sheets.RegistrySection+"!A:F", [][]any{values}); err != nil {
		return fmt.Errorf("append registry entry: %w", err)
	}
	snap.entries[e.Email] = entryRow{RegistryEntry: e, Row: snap.nextEntryRow}
	snap.nextEntryRow++
	return nil
}

// PutRequest writes r, updating its existing row or appending a new one.
func (s *Store) PutRequest(ctx context.Context, snap *Snapshot, r core.AccessRequest) error {
	r.Email = core.NormalizeEmail(r.Email)
	values := []any{
		r.Email,
		string(r.Status),
		r.RequestedAt,
		ledger.SanitizeForStorage(r.Notes),
	}
	if cur, ok := snap.requests[r.Email]; ok {
		if err := s.updateRow(ctx, sheets.RequestsSection, cur.Row, values); err != nil {
			return fmt.Errorf("update access request: %w", err)
		}
		snap.requests[r.Email] = requestRow{AccessRequest: r, Row: cur.Row}
		return nil
	}
	if err := s.docs.AppendRows(ctx, s.registryID, sheets.RequestsSection+"!A:D", [][]any{values}); err != nil {
		return fmt.Errorf("append access request: %w", err)
	}
	snap.requests[r.Email] = requestRow{AccessRequest: r, Row: snap.nextRequestRow}
	snap.nextRequestRow++
	snap.order = append(snap.order, r.Email)
	return nil
}

// updateRow rewrites every column after the email key.
func (s *Store) updateRow(ctx context.Context, section string, row int, values []any) error {
	if row < firstDataRow {
		return core.Errorf(core.ErrUpstreamPermanent, "update "+section, "row position unknown")
	}
	for i := 1; i < len(values); i++ {
		if err := s.docs.UpdateCell(ctx, s.registryID, sheets.Cell(section, i+1, row), values[i]); err != nil {
			return err
		}
	}
	return nil
}

func cell(row []string, col int) string {
	if col-1 < 0 || col-1 >= len(row) {
		return ""
	}
	return row[col-1]
}
