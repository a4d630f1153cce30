package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/brandonwu32/financedashboard/internal/core"
	ports "github.com/brandonwu32/financedashboard/internal/sheets"
)

func TestMemoryStoreAppendAndRead(t *testing.T) {
	ctx := context.Background()
	s := New(ports.NewLedgerDocument("ledger-1", "Mine"))

	err := s.AppendRows(ctx, "ledger-1", "Spending!A:E", [][]any{
		{"01/15/2026", 4.5, "Food", "'=Coffee", "Visa"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	rows, err := s.ReadRange(ctx, "ledger-1", "'Spending'!A2:E")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := [][]string{{"01/15/2026", "4.5", "Food", "=Coffee", "Visa"}}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}

	header, _ := s.ReadRange(ctx, "ledger-1", "Spending!A1:E1")
	if !reflect.DeepEqual(header, [][]string{ports.TransactionHeader}) {
		t.Fatalf("header = %v", header)
	}
}

func TestMemoryStoreUpdateCell(t *testing.T) {
	ctx := context.Background()
	s := New(ports.NewLedgerDocument("l", "t"))
	if err := s.UpdateCell(ctx, "l", "'Weekly Budget'!B3", 25.0); err != nil {
		t.Fatal(err)
	}
	rows, _ := s.ReadRange(ctx, "l", "'Weekly Budget'!A2:B")
	if len(rows) != 2 || rows[1][1] != "25" || len(rows[0]) != 0 {
		t.Fatalf("rows = %#v", rows)
	}
}

func TestMemoryStoreMissingDocument(t *testing.T) {
	s := New()
	_, err := s.ReadRange(context.Background(), "nope", "Spending!A1")
	if !errors.Is(err, ports.ErrNotFound) || !errors.Is(err, core.ErrUpstreamPermanent) {
		t.Fatalf("err = %v", err)
	}
	if _, err := s.SectionNames(context.Background(), "nope"); err == nil {
		t.Fatal("expected error")
	}
}

func TestMemoryStoreCopyAndShare(t *testing.T) {
	ctx := context.Background()
	s := New(ports.NewLedgerDocument("template", "Template"))
	id, err := s.CopyDocument(ctx, "template", "a@b.c - Finance Dashboard")
	if err != nil || id == "" || id == "template" {
		t.Fatalf("copy: id=%q err=%v", id, err)
	}
	if err := s.ShareDocument(ctx, id, "a@b.c"); err != nil {
		t.Fatal(err)
	}
	_ = s.ShareDocument(ctx, id, "A@B.C")

	d, ok := s.Document(id)
	if !ok || d.Title != "a@b.c - Finance Dashboard" || len(d.SharedWith) != 1 {
		t.Fatalf("copied doc = %+v", d)
	}
	names, _ := s.SectionNames(ctx, id)
	if !reflect.DeepEqual(names, []string{ports.SpendingSection, ports.BudgetSection}) {
		t.Fatalf("sections = %v", names)
	}

	// Writes to the copy must not leak into the template.
	_ = s.AppendRows(ctx, id, "Spending!A:E", [][]any{{"x"}})
	rows, _ := s.ReadRange(ctx, "template", "Spending!A2:E")
	if len(rows) != 0 {
		t.Fatalf("template modified: %v", rows)
	}
}

func TestNewFromFileSeeds(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFile(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("missing seed should be empty store: %v", err)
	}
	if _, ok := s.Document("anything"); ok {
		t.Fatal("expected empty store")
	}

	path := filepath.Join(dir, "seed.yaml")
	content := `documents:
  - id: registry
    title: Registry
    sections:
      - name: registry
        rows:
          - [Email, Ledger ID, Status, Access, Created At, Notes]
          - [admin@example.com, "", Inactive, Admin, "2026-01-01T00:00:00Z", ""]
      - name: requests
        rows:
          - [Email, Status, Requested At, Notes]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("load seed: %v", err)
	}
	rows, err := s.ReadRange(context.Background(), "registry", "registry!A2:F")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0][0] != "admin@example.com" || rows[0][3] != "Admin" {
		t.Fatalf("rows = %v", rows)
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("documents:\n  - title: no id\n"), 0o644)
	if _, err := NewFromFile(bad); err == nil {
		t.Fatal("expected error for document without id")
	}
}
