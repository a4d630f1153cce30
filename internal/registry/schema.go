package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/sheets"
)

type requiredSection struct {
	name   string
	label  string
	header []string
}

var requiredSections = []requiredSection{
	{name: sheets.SpendingSection, label: "transaction", header: sheets.TransactionHeader},
	{name: sheets.BudgetSection, label: "budget", header: sheets.BudgetHeader},
}

// VerifySchema checks that a ledger has both required sections with the
// expected header rows. Failures are reported in the result, never as an
// error, so callers can show the reason to the user.
func VerifySchema(ctx context.Context, docs sheets.LedgerStore, ledgerID string) core.SchemaResult {
	ledgerID = strings.TrimSpace(ledgerID)
	if ledgerID == "" {
		return core.SchemaResult{Reason: "ledger id is empty"}
	}

	names, err := docs.SectionNames(ctx, ledgerID)
	if err != nil {
		return core.SchemaResult{Reason: fmt.Sprintf("cannot open ledger: %v", err)}
	}
	present := make(map[string]int, len(names))
	for _, n := range names {
		present[strings.ToLower(strings.TrimSpace(n))]++
	}

	for _, req := range requiredSections {
		switch present[strings.ToLower(req.name)] {
		case 0:
			return core.SchemaResult{Section: req.name, Reason: fmt.Sprintf("%s section %q not found", req.label, req.name)}
		case 1:
		default:
			return core.SchemaResult{Section: req.name, Reason: fmt.Sprintf("%s section %q appears more than once", req.label, req.name)}
		}
	}

	for _, req := range requiredSections {
		if reason := checkHeader(ctx, docs, ledgerID, req); reason != "" {
			return core.SchemaResult{Section: req.name, Reason: reason}
		}
	}
	return core.SchemaResult{OK: true}
}

func checkHeader(ctx context.Context, docs sheets.LedgerStore, ledgerID string, req requiredSection) string {
	ref := sheets.Range{Section: req.name, StartCol: 1, StartRow: 1, EndCol: len(req.header), EndRow: 1}
	rows, err := docs.ReadRange(ctx, ledgerID, ref.String())
	if err != nil {
		return fmt.Sprintf("%s section header unreadable: %v", req.label, err)
	}
	if len(rows) == 0 {
		return fmt.Sprintf("%s section header is missing", req.label)
	}
	got := rows[0]
	for i, want := range req.header {
		if i >= len(got) || !strings.EqualFold(strings.TrimSpace(got[i]), want) {
			return fmt.Sprintf("%s section header mismatch at column %d (want %q)", req.label, i+1, want)
		}
	}
	return ""
}
