package parser

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brandonwu32/financedashboard/internal/core"
)

var testNow = time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)

// fakeParser returns canned results keyed by file name.
type fakeParser struct {
	results map[string]Result
	fails   map[string]error

	mu       sync.Mutex
	inFlight int32
	peak     int32
	hints    []Hints
}

func (f *fakeParser) ExtractTransactions(_ context.Context, file File, h Hints) (Result, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	f.mu.Lock()
	if n > f.peak {
		f.peak = n
	}
	f.hints = append(f.hints, h)
	f.mu.Unlock()
	time.Sleep(5 * time.Millisecond)

	if err, ok := f.fails[file.Name]; ok {
		return Result{}, err
	}
	return f.results[file.Name], nil
}

func TestParseFilesMergesAndCleans(t *testing.T) {
	p := &fakeParser{
		results: map[string]Result{
			"a.png": {
				Transactions: []core.Transaction{
					{Date: "2026-01-15", Description: " Coffee ", Amount: 4.5},
					{Date: "Jan 20", Description: "Groceries", Amount: 60, CreditCard: "Amex"},
				},
				Confidence: 0.9,
				Warnings:   []string{"blurry row"},
			},
			"b.png": {
				Transactions: []core.Transaction{
					{Date: "01/15/2026", Description: "Coffee", Amount: 4.50},
					{Date: "sometime", Description: "Mystery", Amount: 3},
				},
				Confidence: 0.7,
			},
		},
		fails: map[string]error{"c.pdf": errors.New("model refused")},
	}
	files := []File{{Name: "a.png"}, {Name: "b.png"}, {Name: "c.pdf"}}

	res, err := ParseFiles(context.Background(), p, files, Hints{CreditCard: "Visa"}, testNow, 2)
	if err != nil {
		t.Fatalf("ParseFiles: %v", err)
	}

	if len(res.Transactions) != 3 {
		t.Fatalf("transactions = %+v", res.Transactions)
	}
	coffee := res.Transactions[0]
	if coffee.Date != "01/15/2026" || coffee.Description != "Coffee" || coffee.CreditCard != "Visa" {
		t.Errorf("coffee = %+v", coffee)
	}
	if res.Transactions[1].CreditCard != "Amex" || res.Transactions[1].Date != "01/20/2026" {
		t.Errorf("groceries = %+v", res.Transactions[1])
	}
	if res.Transactions[2].Date != "sometime" {
		t.Errorf("unparsed date should be kept raw: %+v", res.Transactions[2])
	}

	if got, want := res.Confidence, (0.9+0.7)/3; got < want-1e-9 || got > want+1e-9 {
		t.Errorf("confidence = %v, want %v", got, want)
	}
	if len(res.Warnings) != 3 || !strings.Contains(res.Warnings[1], "Error processing c.pdf") {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	if w := res.Warnings[2]; !strings.Contains(w, "transaction 2 (Mystery)") || !strings.Contains(w, `"sometime"`) {
		t.Errorf("date warning = %q", w)
	}
}

func TestParseFilesWarnsOnUnparsedDate(t *testing.T) {
	p := &fakeParser{results: map[string]Result{
		"s.pdf": {Transactions: []core.Transaction{
			{Date: "sometime", Description: "Mystery", Amount: 3},
			{Date: "2026-01-11", Description: "Known", Amount: 2},
		}, Confidence: 1},
	}}
	res, err := ParseFiles(context.Background(), p, []File{{Name: "s.pdf"}}, Hints{}, testNow, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Transactions) != 2 || res.Transactions[0].Date != "sometime" {
		t.Fatalf("transactions = %+v", res.Transactions)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one per unparsed date", res.Warnings)
	}
	want := `transaction 0 (Mystery): unrecognized date "sometime", correct it manually`
	if res.Warnings[0] != want {
		t.Errorf("warning = %q, want %q", res.Warnings[0], want)
	}
}

func TestParseFilesCutoff(t *testing.T) {
	p := &fakeParser{results: map[string]Result{
		"s.pdf": {Transactions: []core.Transaction{
			{Date: "2026-01-01", Description: "old", Amount: 1},
			{Date: "2026-01-10", Description: "edge", Amount: 2},
			{Date: "2026-01-11", Description: "new", Amount: 3},
		}, Confidence: 1},
	}}
	res, err := ParseFiles(context.Background(), p, []File{{Name: "s.pdf"}}, Hints{CutoffDate: "01/10/2026"}, testNow, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Transactions) != 2 || res.Transactions[0].Description != "edge" {
		t.Fatalf("transactions = %+v", res.Transactions)
	}
	if p.hints[0].CutoffDate != "01/10/2026" {
		t.Errorf("hints not forwarded: %+v", p.hints)
	}
}

func TestParseFilesUnparsableCutoffIsIgnored(t *testing.T) {
	p := &fakeParser{results: map[string]Result{
		"s.pdf": {Transactions: []core.Transaction{{Date: "2020-01-01", Description: "old", Amount: 1}}},
	}}
	res, err := ParseFiles(context.Background(), p, []File{{Name: "s.pdf"}}, Hints{CutoffDate: "whenever"}, testNow, 1)
	if err != nil || len(res.Transactions) != 1 {
		t.Fatalf("res = %+v err = %v", res, err)
	}
}

func TestParseFilesRespectsLimit(t *testing.T) {
	p := &fakeParser{results: map[string]Result{}}
	files := make([]File, 8)
	for i := range files {
		files[i] = File{Name: string(rune('a' + i))}
	}
	if _, err := ParseFiles(context.Background(), p, files, Hints{}, testNow, 3); err != nil {
		t.Fatal(err)
	}
	if p.peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p.peak)
	}
}

func TestParseFilesAllFail(t *testing.T) {
	p := &fakeParser{fails: map[string]error{"": errors.New("nope")}}
	res, err := ParseFiles(context.Background(), p, []File{{}}, Hints{}, testNow, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Confidence != 0 || len(res.Transactions) != 0 || len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "file 1") {
		t.Errorf("res = %+v", res)
	}
}

func TestParseFilesRequiresFiles(t *testing.T) {
	_, err := ParseFiles(context.Background(), &fakeParser{}, nil, Hints{}, testNow, 1)
	if !errors.Is(err, core.ErrInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestParseFilesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ParseFiles(ctx, &fakeParser{}, []File{{Name: "x"}}, Hints{}, testNow, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestDecodeResult(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		count int
		conf  float64
	}{
		{"plain", `{"transactions":[{"date":"2026-01-15","description":"Coffee","amount":4.5}],"confidence":0.9,"warnings":[]}`, 1, 0.9},
		{"fenced", "```json\n{\"transactions\":[],\"confidence\":0.5}\n```", 0, 0.5},
		{"chatter", "Here you go:\n{\"transactions\":[{\"description\":\"x\",\"amount\":\"$1,234.50\"}]}\nThanks", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := decodeResult(tt.raw)
			if err != nil {
				t.Fatalf("decodeResult: %v", err)
			}
			if len(res.Transactions) != tt.count || res.Confidence != tt.conf {
				t.Errorf("res = %+v", res)
			}
		})
	}

	res, _ := decodeResult("{\"transactions\":[{\"description\":\"x\",\"amount\":\"$1,234.50\"}]}")
	if res.Transactions[0].Amount != 1234.5 {
		t.Errorf("amount = %v", res.Transactions[0].Amount)
	}
	if _, err := decodeResult("not json"); !errors.Is(err, core.ErrUpstreamPermanent) {
		t.Errorf("bad json err = %v", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt(Hints{CreditCard: "Visa", CutoffDate: "01/10/2026"}, 2026)
	for _, want := range []string{"card name (Visa)", "from 01/10/2026 onwards", "assume 2026", `"transactions"`} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.Contains(buildPrompt(Hints{}, 2026), "not specified") {
		t.Error("blank card should say not specified")
	}
}

func TestObjectName(t *testing.T) {
	at := time.Date(2026, time.February, 3, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		file string
		want string
	}{
		{"statement.pdf", "statements/a@b.c/2026-02-03/id-statement.pdf"},
		{`C:\Users\me\shot.png`, "statements/a@b.c/2026-02-03/id-shot.png"},
		{"../../etc/passwd", "statements/a@b.c/2026-02-03/id-passwd"},
		{"", "statements/a@b.c/2026-02-03/id-upload"},
	}
	for _, tt := range tests {
		if got := ObjectName(" A@B.c ", tt.file, at, "id"); got != tt.want {
			t.Errorf("ObjectName(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}
