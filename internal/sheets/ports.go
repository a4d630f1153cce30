package sheets

import (
	"context"
	"errors"
)

// Section names of a user ledger and of the central registry document.
const (
	SpendingSection = "Spending"
	BudgetSection   = "Weekly Budget"
	RegistrySection = "registry"
	RequestsSection = "requests"
)

// ErrNotFound is returned by adapters when a document or section does not exist.
var ErrNotFound = errors.New("not found")

// Ports for outbound adapters.
type (
	// RangeReader reads cells as display strings. Trailing empty cells may
	// be omitted from a row.
	RangeReader interface {
		ReadRange(ctx context.Context, docID, a1 string) ([][]string, error)
	}

	// RangeWriter appends rows after the last non-empty row of a range and
	// overwrites single cells.
	RangeWriter interface {
		AppendRows(ctx context.Context, docID, a1 string, rows [][]any) error
		UpdateCell(ctx context.Context, docID, cell string, value any) error
	}

	// MetadataReader lists the section (tab) names of a document.
	MetadataReader interface {
		SectionNames(ctx context.Context, docID string) ([]string, error)
	}

	// DocumentCopier provisions ledgers from a template.
	DocumentCopier interface {
		CopyDocument(ctx context.Context, templateID, title string) (string, error)
		ShareDocument(ctx context.Context, docID, email string) error
	}

	// LedgerStore is everything the core needs from the document backend.
	LedgerStore interface {
		RangeReader
		RangeWriter
		MetadataReader
		DocumentCopier
	}
)
