package ledger

import (
	"strings"

	"github.com/brandonwu32/financedashboard/internal/core"
)

// Ledger column positions in the Spending section.
const (
	colDate = iota
	colAmount
	colCategory
	colDescription
	colCard
)

// ParseTransactionRows converts raw Spending rows into transactions. Blank
// rows and echoed header rows are skipped. Dates are kept as stored.
func ParseTransactionRows(rows [][]string) []core.Transaction {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		if blankRow(row) {
			continue
		}
		first := strings.ToLower(strings.TrimSpace(safeGet(row, colDate)))
		if first == "range" || first == "date" {
			continue
		}
		out = append(out, core.Transaction{
			Date:        strings.TrimSpace(safeGet(row, colDate)),
			Amount:      core.ParseAmount(safeGet(row, colAmount)),
			Category:    strings.TrimSpace(safeGet(row, colCategory)),
			Description: strings.TrimSpace(safeGet(row, colDescription)),
			CreditCard:  strings.TrimSpace(safeGet(row, colCard)),
		})
	}
	return out
}

// BudgetRow is one Weekly Budget line with its 1-based sheet row number.
type BudgetRow struct {
	Category string
	Weekly   float64
	Row      int
}

// ParseBudgetRows reads Weekly Budget rows. firstRow is the sheet row of
// rows[0], so callers can address cells for in-place updates. The last
// occurrence of a category wins.
func ParseBudgetRows(rows [][]string, firstRow int) (core.Budget, []BudgetRow) {
	budget := make(core.Budget)
	var lines []BudgetRow
	for i, row := range rows {
		name := strings.TrimSpace(safeGet(row, 0))
		if name == "" || strings.EqualFold(name, "Budget Categories") {
			continue
		}
		weekly := core.ParseAmount(safeGet(row, 1))
		budget[name] = weekly
		lines = append(lines, BudgetRow{Category: name, Weekly: weekly, Row: firstRow + i})
	}
	return budget, lines
}

func safeGet(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
