package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/dates"
)

// Batch is a validated set of transactions ready to append.
type Batch struct {
	Transactions []core.Transaction
	// Rows are sanitized cells in ledger column order.
	Rows     [][]any
	Warnings []string
	// Duplicates counts records dropped by Dedupe.
	Duplicates int
}

// DedupeKey identifies a transaction for duplicate detection. Two real
// purchases with the same date, description and amount share a key and
// collapse into one.
func DedupeKey(tx core.Transaction, now time.Time) string {
	date := strings.TrimSpace(tx.Date)
	if d, ok := dates.Normalize(date, now); ok {
		date = d.ISO()
	}
	amount := strconv.FormatFloat(core.RoundCents(tx.Amount), 'f', 2, 64)
	return date + "\x1f" + strings.TrimSpace(tx.Description) + "\x1f" + amount
}

// Dedupe keeps the first occurrence of each key.
func Dedupe(txs []core.Transaction, now time.Time) []core.Transaction {
	seen := make(map[string]struct{}, len(txs))
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		k := DedupeKey(tx, now)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, tx)
	}
	return out
}

// SanitizeForStorage neutralizes strings that a spreadsheet would evaluate
// as a formula by prefixing them with a quote. Leading spaces, tabs and
// line breaks do not hide a formula. Other values pass through.
func SanitizeForStorage(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimLeft(s, " \t\r\n")
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}

// Row renders tx in ledger column order: Range, Amount, Type, Desc, Card.
func Row(tx core.Transaction) []any {
	return []any{
		SanitizeForStorage(tx.Date),
		core.Finite(tx.Amount),
		SanitizeForStorage(tx.Category),
		SanitizeForStorage(tx.Description),
		SanitizeForStorage(tx.CreditCard),
	}
}

// Prepare validates and normalizes a batch for append. It is all or
// nothing: an empty batch or any record without a description rejects the
// whole batch. Dates that cannot be normalized are kept as entered and
// reported as warnings.
func Prepare(txs []core.Transaction, now time.Time) (Batch, error) {
	if len(txs) == 0 {
		return Batch{}, core.Errorf(core.ErrInput, "prepare batch", "no transactions provided")
	}

	var blank []string
	for i, tx := range txs {
		if strings.TrimSpace(tx.Description) == "" {
			blank = append(blank, strconv.Itoa(i))
		}
	}
	if len(blank) > 0 {
		return Batch{}, core.Errorf(core.ErrInput, "prepare batch", "missing description at index %s", strings.Join(blank, ", "))
	}

	var b Batch
	normalized := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		tx.Description = strings.TrimSpace(tx.Description)
		tx.Category = strings.TrimSpace(tx.Category)
		tx.CreditCard = strings.TrimSpace(tx.CreditCard)
		tx.Amount = core.Finite(tx.Amount)
		if d, ok := dates.Normalize(tx.Date, now); ok {
			tx.Date = d.Display()
		} else {
			tx.Date = strings.TrimSpace(tx.Date)
			b.Warnings = append(b.Warnings, fmt.Sprintf("transaction %d (%s): unrecognized date %q, correct it manually", i, tx.Description, tx.Date))
		}
		normalized[i] = tx
	}

	b.Transactions = Dedupe(normalized, now)
	b.Duplicates = len(normalized) - len(b.Transactions)
	b.Rows = make([][]any, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		b.Rows = append(b.Rows, Row(tx))
	}
	return b, nil
}
