package ledger

import (
	"errors"
	"strings"
	"testing"

	"github.com/brandonwu32/financedashboard/internal/core"
)

func TestDedupe(t *testing.T) {
	txs := []core.Transaction{
		{Date: "2026-01-15", Description: "Coffee", Amount: 4.5, Category: "Food"},
		{Date: "1/15/2026", Description: "Coffee", Amount: 4.50, Category: "Drinks"},
		{Date: "2026-01-15", Description: "Coffee", Amount: 5},
		{Date: "whenever", Description: "Coffee", Amount: 4.5},
		{Date: "whenever", Description: "Coffee", Amount: 4.5},
	}
	once := Dedupe(txs, now)
	if len(once) != 3 {
		t.Fatalf("expected 3 unique, got %d: %+v", len(once), once)
	}
	if once[0].Category != "Food" {
		t.Errorf("first occurrence must win, got %+v", once[0])
	}

	twice := Dedupe(once, now)
	if len(twice) != len(once) {
		t.Fatalf("dedupe not idempotent: %d vs %d", len(twice), len(once))
	}

	keys := func(in []core.Transaction) map[string]bool {
		m := map[string]bool{}
		for _, tx := range in {
			m[DedupeKey(tx, now)] = true
		}
		return m
	}
	if len(keys(once)) > len(keys(txs)) {
		t.Fatal("dedupe increased the key set")
	}
}

func TestSanitizeForStorage(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{"=SUM(A1:A3)", "'=SUM(A1:A3)"},
		{"+1", "'+1"},
		{"-cmd", "'-cmd"},
		{"@import", "'@import"},
		{" =SUM(A1)", "' =SUM(A1)"},
		{"\t=1+1", "'\t=1+1"},
		{"\r@x", "'\r@x"},
		{"\n -2", "'\n -2"},
		{"  Coffee", "  Coffee"},
		{" \t", " \t"},
		{"Coffee", "Coffee"},
		{"", ""},
		{-4.5, -4.5},
		{12, 12},
	}
	for _, tt := range tests {
		if got := SanitizeForStorage(tt.in); got != tt.want {
			t.Errorf("SanitizeForStorage(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPrepare(t *testing.T) {
	batch, err := Prepare([]core.Transaction{
		{Date: "2026-01-15", Description: " Coffee ", Amount: 4.5, Category: "Food", CreditCard: "Visa"},
		{Date: "01/15/2026", Description: "Coffee", Amount: 4.5, Category: "Food", CreditCard: "Visa"},
		{Date: "someday", Description: "=HYPERLINK()", Amount: -3, Category: "Misc"},
	}, now)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if batch.Duplicates != 1 || len(batch.Transactions) != 2 {
		t.Fatalf("duplicates=%d transactions=%d", batch.Duplicates, len(batch.Transactions))
	}
	if batch.Transactions[0].Date != "01/15/2026" || batch.Transactions[0].Description != "Coffee" {
		t.Errorf("first = %+v", batch.Transactions[0])
	}
	if batch.Transactions[1].Date != "someday" {
		t.Errorf("unparsable date must be kept, got %q", batch.Transactions[1].Date)
	}
	if len(batch.Warnings) != 1 || !strings.Contains(batch.Warnings[0], "someday") {
		t.Errorf("warnings = %v", batch.Warnings)
	}

	row := batch.Rows[1]
	if row[0] != "someday" || row[1] != -3.0 || row[2] != "Misc" || row[3] != "'=HYPERLINK()" || row[4] != "" {
		t.Errorf("row = %#v", row)
	}
	if first := batch.Rows[0]; first[0] != "01/15/2026" || first[1] != 4.5 || first[4] != "Visa" {
		t.Errorf("row = %#v", first)
	}
}

func TestPrepareRejectsWholeBatch(t *testing.T) {
	_, err := Prepare([]core.Transaction{
		{Date: "2026-01-15", Description: "Coffee", Amount: 4.5},
		{Date: "2026-01-16", Description: "  ", Amount: 1},
		{Date: "2026-01-17", Description: "", Amount: 2},
	}, now)
	if !errors.Is(err, core.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
	if !strings.Contains(err.Error(), "1, 2") {
		t.Errorf("error should list offending indexes: %v", err)
	}

	if _, err := Prepare(nil, now); !errors.Is(err, core.ErrInput) {
		t.Fatalf("empty batch: %v", err)
	}
}

func TestIngestThenTotals(t *testing.T) {
	coffee := core.Transaction{Date: "2026-01-15", Description: "Coffee", Amount: 4.50}
	batch, err := Prepare([]core.Transaction{coffee, coffee}, now)
	if err != nil {
		t.Fatal(err)
	}
	got := Totals(batch.Transactions)
	if got.Sum != 4.5 || got.Count != 1 {
		t.Fatalf("totals = %+v", got)
	}
}

func TestParseTransactionRows(t *testing.T) {
	rows := [][]string{
		{"Range", "Amount", "Type", "Desc", "Card"},
		{"01/15/2026", "$1,234.50", "Rent", "January rent", "Checking"},
		{},
		{"", " ", ""},
		{"Jan 20", "oops", "Food"},
	}
	txs := ParseTransactionRows(rows)
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if txs[0].Amount != 1234.5 || txs[0].Category != "Rent" || txs[0].Description != "January rent" || txs[0].CreditCard != "Checking" {
		t.Errorf("first = %+v", txs[0])
	}
	if txs[1].Amount != 0 || txs[1].Description != "" {
		t.Errorf("short row = %+v", txs[1])
	}
}

func TestParseBudgetRows(t *testing.T) {
	budget, lines := ParseBudgetRows([][]string{
		{"Food", "$50"},
		{"", "10"},
		{"Transit", "12.5"},
	}, 2)
	if budget["Food"] != 50 || budget["Transit"] != 12.5 || len(budget) != 2 {
		t.Fatalf("budget = %v", budget)
	}
	if lines[1].Row != 4 || lines[1].Category != "Transit" {
		t.Errorf("lines = %+v", lines)
	}
}
