package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brandonwu32/financedashboard/internal/cache"
	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/dates"
	"github.com/brandonwu32/financedashboard/internal/ledger"
	"github.com/brandonwu32/financedashboard/internal/log"
	"github.com/brandonwu32/financedashboard/internal/parser"
	"github.com/brandonwu32/financedashboard/internal/period"
	"github.com/brandonwu32/financedashboard/internal/sheets"
)

// Ledger ranges. Row 1 of each section is the header.
var (
	transactionRows   = sheets.Range{Section: sheets.SpendingSection, StartCol: 1, StartRow: 2, EndCol: 5}.String()
	transactionAppend = sheets.Range{Section: sheets.SpendingSection, StartCol: 1, StartRow: 1, EndCol: 5}.String()
	budgetRows        = sheets.Range{Section: sheets.BudgetSection, StartCol: 1, StartRow: 2, EndCol: 2}.String()
	budgetAppend      = sheets.Range{Section: sheets.BudgetSection, StartCol: 1, StartRow: 1, EndCol: 2}.String()
)

const budgetFirstRow = 2

// LedgerResolver finds the ledger of an onboarded user.
type LedgerResolver interface {
	LedgerFor(ctx context.Context, email string) (string, error)
}

type (
	// TransactionsView is a user's full ledger with rows whose dates could
	// not be read flagged for manual correction.
	TransactionsView struct {
		Transactions []core.Transaction `json:"transactions"`
		Warnings     []string           `json:"warnings"`
	}

	// AppendResult reports what an append actually wrote.
	AppendResult struct {
		Appended   int      `json:"appended"`
		Duplicates int      `json:"duplicates"`
		Warnings   []string `json:"warnings"`
	}

	// BudgetView carries the stored weekly budget and its value at the
	// requested cadence.
	BudgetView struct {
		Cadence core.Cadence       `json:"cadence"`
		Weekly  core.Budget        `json:"weekly"`
		Derived map[string]float64 `json:"derived"`
	}

	// BudgetUpdate reports how many categories changed in place and how many
	// were added.
	BudgetUpdate struct {
		Updated int `json:"updated"`
		Added   int `json:"added"`
	}

	// ParseOutcome is the parse result plus what happened to it afterwards.
	ParseOutcome struct {
		parser.Result
		Archived []string      `json:"archived,omitempty"`
		Saved    *AppendResult `json:"saved,omitempty"`
	}
)

// LedgerOptions configures a LedgerService. Zero values fall back to
// sensible defaults.
type LedgerOptions struct {
	Events           core.EventPublisher
	Anchor           dates.Date
	Now              func() time.Time
	CacheTTL         time.Duration
	CacheSize        int
	Parser           parser.DocumentParser
	Archiver         parser.Archiver
	ParseConcurrency int
	Logger           *log.Logger
}

// LedgerService reads and writes one user's ledger at a time. Reads are
// cached per ledger and every write by this process invalidates that
// ledger's entries.
type LedgerService struct {
	resolver LedgerResolver
	docs     sheets.LedgerStore
	events   core.EventPublisher
	anchor   dates.Date
	now      func() time.Time

	txCache     *cache.LRUCache[[]core.Transaction]
	budgetCache *cache.LRUCache[[]ledger.BudgetRow]

	parser           parser.DocumentParser
	archiver         parser.Archiver
	parseConcurrency int

	structured *log.StructuredLogger
}

func NewLedgerService(resolver LedgerResolver, docs sheets.LedgerStore, opts LedgerOptions) *LedgerService {
	if opts.Events == nil {
		opts.Events = core.NopPublisher{}
	}
	if !opts.Anchor.Valid() {
		opts.Anchor = period.DefaultAnchor
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CacheSize < 1 {
		opts.CacheSize = 256
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		resolver:         resolver,
		docs:             docs,
		events:           opts.Events,
		anchor:           opts.Anchor,
		now:              opts.Now,
		txCache:          cache.NewLRUCache[[]core.Transaction](opts.CacheSize, opts.CacheTTL),
		budgetCache:      cache.NewLRUCache[[]ledger.BudgetRow](opts.CacheSize, opts.CacheTTL),
		parser:           opts.Parser,
		archiver:         opts.Archiver,
		parseConcurrency: opts.ParseConcurrency,
		structured:       log.NewStructuredLogger(opts.Logger.WithComponent(log.ComponentLedger)),
	}
}

// Caches exposes the read caches so the caller can register them for
// periodic cleanup.
func (s *LedgerService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.txCache, s.budgetCache}
}

// Anchor is the biweekly anchor in use.
func (s *LedgerService) Anchor() dates.Date { return s.anchor }

// Transactions returns every transaction in the user's ledger.
func (s *LedgerService) Transactions(ctx context.Context, email string) (TransactionsView, error) {
	ledgerID, err := s.resolver.LedgerFor(ctx, email)
	if err != nil {
		return TransactionsView{}, err
	}
	txs, err := s.readTransactions(ctx, ledgerID)
	if err != nil {
		return TransactionsView{}, err
	}
	now := s.now()
	view := TransactionsView{Transactions: txs, Warnings: []string{}}
	for i, tx := range txs {
		if _, ok := dates.Normalize(tx.Date, now); !ok {
			view.Warnings = append(view.Warnings, fmt.Sprintf("transaction %d (%s): unrecognized date %q", i, tx.Description, tx.Date))
		}
	}
	return view, nil
}

// Append writes a batch all or nothing.
func (s *LedgerService) Append(ctx context.Context, email string, txs []core.Transaction) (AppendResult, error) {
	ledgerID, err := s.resolver.LedgerFor(ctx, email)
	if err != nil {
		return AppendResult{}, err
	}
	return s.appendTo(ctx, email, ledgerID, txs)
}

func (s *LedgerService) appendTo(ctx context.Context, email, ledgerID string, txs []core.Transaction) (AppendResult, error) {
	batch, err := ledger.Prepare(txs, s.now())
	if err != nil {
		return AppendResult{}, err
	}
	if err := s.docs.AppendRows(ctx, ledgerID, transactionAppend, batch.Rows); err != nil {
		return AppendResult{}, fmt.Errorf("append transactions: %w", err)
	}
	s.invalidate(ledgerID)

	res := AppendResult{Appended: len(batch.Rows), Duplicates: batch.Duplicates, Warnings: batch.Warnings}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	s.structured.LogTransactionsAppended(ctx, email, ledgerID, res.Appended, len(res.Warnings))
	s.publish(ctx, core.Event{
		Type:     core.EventTransactionsAppended,
		Actor:    core.NormalizeEmail(email),
		Subject:  core.NormalizeEmail(email),
		LedgerID: ledgerID,
		Count:    res.Appended,
	})
	return res, nil
}

// Budgets returns the weekly budget and its value at cadence c.
func (s *LedgerService) Budgets(ctx context.Context, email string, c core.Cadence) (BudgetView, error) {
	ledgerID, err := s.resolver.LedgerFor(ctx, email)
	if err != nil {
		return BudgetView{}, err
	}
	lines, err := s.readBudget(ctx, ledgerID)
	if err != nil {
		return BudgetView{}, err
	}
	weekly := budgetFromLines(lines)
	view := BudgetView{Cadence: c, Weekly: weekly, Derived: make(map[string]float64, len(weekly))}
	for cat, amt := range weekly {
		view.Derived[cat] = ledger.DeriveBudget(amt, c)
	}
	return view, nil
}

// UpdateBudgets sets weekly amounts. Existing categories, matched
// case-insensitively, are updated in place; new ones are appended.
func (s *LedgerService) UpdateBudgets(ctx context.Context, email string, budgets map[string]float64) (BudgetUpdate, error) {
	const op = "update budgets"
	if len(budgets) == 0 {
		return BudgetUpdate{}, core.Errorf(core.ErrInput, op, "no budgets provided")
	}
	names := make([]string, 0, len(budgets))
	for name, amt := range budgets {
		if strings.TrimSpace(name) == "" {
			return BudgetUpdate{}, core.Errorf(core.ErrInput, op, "budget category must not be blank")
		}
		if math.IsNaN(amt) || math.IsInf(amt, 0) || amt < 0 {
			return BudgetUpdate{}, core.Errorf(core.ErrInput, op, "budget for %q must be a non-negative number", name)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	// Categories match case-insensitively, so two keys may name the same row.
	seen := make(map[string]string, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if prev, ok := seen[key]; ok {
			return BudgetUpdate{}, core.Errorf(core.ErrInput, op, "budget categories %q and %q are the same category", prev, name)
		}
		seen[key] = name
	}

	ledgerID, err := s.resolver.LedgerFor(ctx, email)
	if err != nil {
		return BudgetUpdate{}, err
	}
	lines, err := s.readBudget(ctx, ledgerID)
	if err != nil {
		return BudgetUpdate{}, err
	}
	rowOf := make(map[string]int, len(lines))
	for _, l := range lines {
		rowOf[strings.ToLower(l.Category)] = l.Row
	}

	var res BudgetUpdate
	var added [][]any
	defer s.invalidate(ledgerID)
	for _, name := range names {
		amt := core.RoundCents(budgets[name])
		if row, ok := rowOf[strings.ToLower(strings.TrimSpace(name))]; ok {
			if err := s.docs.UpdateCell(ctx, ledgerID, sheets.Cell(sheets.BudgetSection, 2, row), amt); err != nil {
				return res, fmt.Errorf("update budget %q: %w", name, err)
			}
			res.Updated++
			continue
		}
		added = append(added, []any{ledger.SanitizeForStorage(strings.TrimSpace(name)), amt})
	}
	if len(added) > 0 {
		if err := s.docs.AppendRows(ctx, ledgerID, budgetAppend, added); err != nil {
			return res, fmt.Errorf("append budgets: %w", err)
		}
		res.Added = len(added)
	}

	slog.InfoContext(ctx, "Budgets updated",
		log.FieldComponent, log.ComponentLedger,
		log.FieldUser, core.NormalizeEmail(email),
		log.FieldLedgerID, ledgerID,
		"updated", res.Updated,
		"added", res.Added)
	s.publish(ctx, core.Event{
		Type:     core.EventBudgetsUpdated,
		Actor:    core.NormalizeEmail(email),
		Subject:  core.NormalizeEmail(email),
		LedgerID: ledgerID,
		Count:    res.Updated + res.Added,
	})
	return res, nil
}

// Summary aggregates the window of cadence c containing day.
func (s *LedgerService) Summary(ctx context.Context, email string, c core.Cadence, day time.Time, top int) (core.PeriodSummary, error) {
	now := s.now()
	p, err := period.At(c, s.anchor, day, now)
	if err != nil {
		return core.PeriodSummary{}, err
	}
	ledgerID, err := s.resolver.LedgerFor(ctx, email)
	if err != nil {
		return core.PeriodSummary{}, err
	}
	txs, err := s.readTransactions(ctx, ledgerID)
	if err != nil {
		return core.PeriodSummary{}, err
	}
	lines, err := s.readBudget(ctx, ledgerID)
	if err != nil {
		return core.PeriodSummary{}, err
	}
	return ledger.Summarize(txs, budgetFromLines(lines), p, now, top), nil
}

// Periods returns count windows of cadence c ending with the one containing
// day, each with its totals, oldest first.
func (s *LedgerService) Periods(ctx context.Context, email string, c core.Cadence, day time.Time, count int) ([]core.PeriodTotals, error) {
	now := s.now()
	ps, err := period.Ending(c, s.anchor, day, now, count)
	if err != nil {
		return nil, err
	}
	ledgerID, err := s.resolver.LedgerFor(ctx, email)
	if err != nil {
		return nil, err
	}
	txs, err := s.readTransactions(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	return ledger.History(txs, ps, now), nil
}

// Parse extracts transactions from uploaded files. Archiving is best
// effort. When save is set the cleaned result is appended to the user's
// ledger; a failed save is reported as a warning so the preview is not lost.
func (s *LedgerService) Parse(ctx context.Context, email string, files []parser.File, hints parser.Hints, save bool) (ParseOutcome, error) {
	if s.parser == nil {
		return ParseOutcome{}, core.Errorf(core.ErrUpstreamPermanent, "parse documents", "document parsing is not configured (set GEMINI_API_KEY)")
	}
	var ledgerID string
	if save {
		id, err := s.resolver.LedgerFor(ctx, email)
		if err != nil {
			return ParseOutcome{}, err
		}
		ledgerID = id
	}

	var out ParseOutcome
	var archiveWarnings []string
	if s.archiver != nil {
		for _, f := range files {
			loc, err := s.archiver.Archive(ctx, email, f)
			if err != nil {
				slog.WarnContext(ctx, "Statement archive failed",
					log.FieldComponent, log.ComponentParser,
					log.FieldUser, core.NormalizeEmail(email),
					log.FieldError, err)
				archiveWarnings = append(archiveWarnings, fmt.Sprintf("could not archive %s: %v", f.Name, err))
				continue
			}
			out.Archived = append(out.Archived, loc)
		}
	}

	res, err := parser.ParseFiles(ctx, s.parser, files, hints, s.now(), s.parseConcurrency)
	if err != nil {
		return ParseOutcome{}, err
	}
	out.Result = res
	out.Warnings = append(out.Warnings, archiveWarnings...)

	if save && len(res.Transactions) > 0 {
		saved, err := s.appendTo(ctx, email, ledgerID, res.Transactions)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("transactions were not saved: %v", err))
		} else {
			out.Saved = &saved
		}
	}
	return out, nil
}

func (s *LedgerService) readTransactions(ctx context.Context, ledgerID string) ([]core.Transaction, error) {
	if txs, ok := s.txCache.Get("tx:" + ledgerID); ok {
		return txs, nil
	}
	rows, err := s.docs.ReadRange(ctx, ledgerID, transactionRows)
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	txs := ledger.ParseTransactionRows(rows)
	s.txCache.Set("tx:"+ledgerID, txs)
	return txs, nil
}

func (s *LedgerService) readBudget(ctx context.Context, ledgerID string) ([]ledger.BudgetRow, error) {
	if lines, ok := s.budgetCache.Get("budget:" + ledgerID); ok {
		return lines, nil
	}
	rows, err := s.docs.ReadRange(ctx, ledgerID, budgetRows)
	if err != nil {
		return nil, fmt.Errorf("read budget: %w", err)
	}
	_, lines := ledger.ParseBudgetRows(rows, budgetFirstRow)
	s.budgetCache.Set("budget:"+ledgerID, lines)
	return lines, nil
}

func (s *LedgerService) invalidate(ledgerID string) {
	s.txCache.DeleteSuffix(":" + ledgerID)
	s.budgetCache.DeleteSuffix(":" + ledgerID)
}

// publish never fails the caller; the ledger write already happened.
func (s *LedgerService) publish(ctx context.Context, ev core.Event) {
	ev.ID = uuid.NewString()
	ev.At = s.now().UTC()
	if err := s.events.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "Failed to publish event",
			log.FieldComponent, log.ComponentLedger,
			log.FieldEventType, ev.Type,
			log.FieldError, err)
	}
}

func budgetFromLines(lines []ledger.BudgetRow) core.Budget {
	b := make(core.Budget, len(lines))
	for _, l := range lines {
		b[l.Category] = l.Weekly
	}
	return b
}
