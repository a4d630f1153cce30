// Package ledger aggregates and prepares transactions for a user's ledger.
//
// Totals are accumulated with decimal arithmetic and rounded to cents, so
// summing 0.10 and 0.20 gives exactly 0.30.
package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/dates"
	"github.com/brandonwu32/financedashboard/internal/period"
)

// Uncategorized is used for transactions without a category.
const Uncategorized = "Uncategorized"

// FilterByPeriod keeps the transactions whose date falls inside p. Dates
// that cannot be normalized are excluded. now is only used to infer the
// year of month-name dates.
func FilterByPeriod(txs []core.Transaction, p core.Period, now time.Time) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		d, ok := dates.Normalize(tx.Date, now)
		if !ok {
			continue
		}
		if period.Contains(p, d.Time(p.Start.Location())) {
			out = append(out, tx)
		}
	}
	return out
}

// Totals sums amounts. Average is zero for an empty set.
func Totals(txs []core.Transaction) core.Totals {
	sum := decimal.Zero
	for _, tx := range txs {
		sum = sum.Add(decimal.NewFromFloat(core.Finite(tx.Amount)))
	}
	t := core.Totals{
		Sum:   sum.Round(2).InexactFloat64(),
		Count: len(txs),
	}
	if t.Count > 0 {
		t.Average = sum.Div(decimal.NewFromInt(int64(t.Count))).Round(2).InexactFloat64()
	}
	return t
}

// ByCategory sums amounts per category. Blank categories are grouped
// under Uncategorized.
func ByCategory(txs []core.Transaction) map[string]float64 {
	sums := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		name := strings.TrimSpace(tx.Category)
		if name == "" {
			name = Uncategorized
		}
		sums[name] = sums[name].Add(decimal.NewFromFloat(core.Finite(tx.Amount)))
	}
	out := make(map[string]float64, len(sums))
	for k, v := range sums {
		out[k] = v.Round(2).InexactFloat64()
	}
	return out
}

// TopCategories orders categories by descending amount, breaking ties by
// name. n <= 0 returns every category.
func TopCategories(byCat map[string]float64, n int) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(byCat))
	for name, amt := range byCat {
		out = append(out, core.CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// DeriveBudget scales a weekly amount to cadence c. Monthly uses 52/12
// weeks and yearly 52 weeks, so neither is calendar-exact.
func DeriveBudget(weekly float64, c core.Cadence) float64 {
	weekly = core.Finite(weekly)
	switch c {
	case core.Biweekly:
		return weekly * 2
	case core.Monthly:
		return weekly * 52 / 12
	case core.Yearly:
		return weekly * 52
	default:
		return weekly
	}
}

// PercentChange returns (cur-prev)/prev*100, or 0 when prev is 0.
func PercentChange(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return core.RoundCents((cur - prev) / prev * 100)
}

// Compare builds the period-over-period comparison for p against the
// window of equal length immediately before it.
func Compare(txs []core.Transaction, p core.Period, now time.Time) core.Comparison {
	prev := period.Previous(p)
	cur := Totals(FilterByPeriod(txs, p, now)).Sum
	before := Totals(FilterByPeriod(txs, prev, now)).Sum
	return core.Comparison{
		Previous:   prev,
		PrevSum:    before,
		CurrentSum: cur,
		PctChange:  PercentChange(cur, before),
	}
}

// BudgetStatus lines up each budgeted category with what was spent in a
// period of cadence c. Categories with spend but no budget are listed after
// the budgeted ones with a zero budget.
func BudgetStatus(b core.Budget, spent map[string]float64, c core.Cadence) []core.BudgetLine {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)

	var extra []string
	for name := range spent {
		if _, ok := b[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)

	lines := make([]core.BudgetLine, 0, len(names)+len(extra))
	for _, name := range append(names, extra...) {
		weekly := b[name]
		budget := core.RoundCents(DeriveBudget(weekly, c))
		used := spent[name]
		lines = append(lines, core.BudgetLine{
			Category:  name,
			Weekly:    weekly,
			Budget:    budget,
			Spent:     used,
			Remaining: core.RoundCents(budget - used),
		})
	}
	return lines
}

// Summarize assembles the dashboard view of p.
func Summarize(txs []core.Transaction, b core.Budget, p core.Period, now time.Time, top int) core.PeriodSummary {
	in := FilterByPeriod(txs, p, now)
	byCat := ByCategory(in)
	return core.PeriodSummary{
		Period:        p,
		Totals:        Totals(in),
		TopCategories: TopCategories(byCat, top),
		Budget:        BudgetStatus(b, byCat, p.Cadence),
		Comparison:    Compare(txs, p, now),
	}
}

// History totals each period in ps.
func History(txs []core.Transaction, ps []core.Period, now time.Time) []core.PeriodTotals {
	out := make([]core.PeriodTotals, 0, len(ps))
	for _, p := range ps {
		out = append(out, core.PeriodTotals{Period: p, Totals: Totals(FilterByPeriod(txs, p, now))})
	}
	return out
}
