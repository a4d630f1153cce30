// Package parser extracts transactions from uploaded statements and
// screenshots with a document model, then cleans the result up with the
// same date and dedupe rules the ingest path uses.
package parser

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/dates"
	"github.com/brandonwu32/financedashboard/internal/ledger"
	"github.com/brandonwu32/financedashboard/internal/log"
)

type (
	// File is one uploaded document.
	File struct {
		Name     string
		MIMEType string
		Data     []byte
	}

	// Hints narrow what the model should return.
	Hints struct {
		CreditCard string
		CutoffDate string
	}

	// Result is what a parser extracted. Confidence is between 0 and 1.
	Result struct {
		Transactions []core.Transaction `json:"transactions"`
		Confidence   float64            `json:"confidence"`
		Warnings     []string           `json:"warnings"`
	}
)

// DocumentParser turns one document into transactions.
type DocumentParser interface {
	ExtractTransactions(ctx context.Context, f File, h Hints) (Result, error)
}

// DefaultConcurrency bounds simultaneous model calls when no limit is given.
const DefaultConcurrency = 4

// ParseFiles runs p over every file with at most limit calls in flight. A
// file that fails becomes a warning, never an error; confidence is averaged
// over all files, failed ones counting as zero. Dates are normalized, card
// hints filled in, records before the cutoff dropped and duplicates removed.
func ParseFiles(ctx context.Context, p DocumentParser, files []File, h Hints, now time.Time, limit int) (Result, error) {
	if len(files) == 0 {
		return Result{}, core.Errorf(core.ErrInput, "parse files", "no files provided")
	}
	if limit < 1 {
		limit = DefaultConcurrency
	}

	results := make([]Result, len(files))
	failures := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, f := range files {
		g.Go(func() error {
			res, err := p.ExtractTransactions(gctx, f, h)
			results[i], failures[i] = res, err
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var merged Result
	for i, res := range results {
		if err := failures[i]; err != nil {
			slog.WarnContext(ctx, "Document parse failed",
				log.FieldComponent, log.ComponentParser,
				"file", files[i].Name,
				log.FieldError, err)
			merged.Warnings = append(merged.Warnings, fmt.Sprintf("Error processing %s: %v", displayName(files[i], i), err))
			continue
		}
		merged.Transactions = append(merged.Transactions, res.Transactions...)
		merged.Warnings = append(merged.Warnings, res.Warnings...)
		merged.Confidence += clampConfidence(res.Confidence)
	}
	merged.Confidence = merged.Confidence / float64(len(files))

	var dateWarnings []string
	merged.Transactions, dateWarnings = clean(merged.Transactions, h, now)
	merged.Warnings = append(merged.Warnings, dateWarnings...)
	if merged.Warnings == nil {
		merged.Warnings = []string{}
	}
	return merged, nil
}

// clean also reports every record whose date could not be normalized; those
// keep the raw date for manual correction.
func clean(txs []core.Transaction, h Hints, now time.Time) ([]core.Transaction, []string) {
	cutoff, hasCutoff := dates.Normalize(h.CutoffDate, now)
	card := strings.TrimSpace(h.CreditCard)

	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		tx.Description = strings.TrimSpace(tx.Description)
		tx.Category = strings.TrimSpace(tx.Category)
		tx.CreditCard = strings.TrimSpace(tx.CreditCard)
		if tx.CreditCard == "" {
			tx.CreditCard = card
		}
		tx.Amount = core.Finite(tx.Amount)

		d, ok := dates.Normalize(tx.Date, now)
		if ok {
			tx.Date = d.Display()
			if hasCutoff && d.Before(cutoff) {
				continue
			}
		}
		out = append(out, tx)
	}
	out = ledger.Dedupe(out, now)

	var warnings []string
	for i, tx := range out {
		if _, ok := dates.Normalize(tx.Date, now); !ok {
			warnings = append(warnings, fmt.Sprintf("transaction %d (%s): unrecognized date %q, correct it manually", i, tx.Description, tx.Date))
		}
	}
	return out, warnings
}

func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	return math.Min(c, 1)
}

func displayName(f File, i int) string {
	if name := strings.TrimSpace(f.Name); name != "" {
		return name
	}
	return fmt.Sprintf("file %d", i+1)
}
