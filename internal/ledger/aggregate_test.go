package ledger

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/period"
)

var now = time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)

func currentBiweekly(t *testing.T) core.Period {
	t.Helper()
	p, err := period.Current(core.Biweekly, period.DefaultAnchor, now)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func sample() []core.Transaction {
	return []core.Transaction{
		{Date: "01/31/2026", Description: "Groceries", Amount: 50, Category: "Food"},
		{Date: "2026-02-13", Description: "Dinner", Amount: 30.5, Category: "Food"},
		{Date: "Feb 5", Description: "Bus", Amount: 2.75, Category: "Transit"},
		{Date: "01/30/2026", Description: "Yesterday", Amount: 10, Category: "Food"},
		{Date: "02/14/2026", Description: "Tomorrow", Amount: 12, Category: "Food"},
		{Date: "sometime", Description: "Unknown", Amount: 99, Category: "Misc"},
		{Date: "01/20/2026", Description: "Rent", Amount: 800, Category: "Housing"},
	}
}

func TestFilterByPeriod(t *testing.T) {
	p := currentBiweekly(t)
	got := FilterByPeriod(sample(), p, now)

	var names []string
	for _, tx := range got {
		names = append(names, tx.Description)
	}
	want := []string{"Groceries", "Dinner", "Bus"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("filtered = %v, want %v", names, want)
	}

	again := FilterByPeriod(got, p, now)
	if !reflect.DeepEqual(again, got) {
		t.Fatalf("filter is not idempotent: %v vs %v", again, got)
	}
}

func TestTotals(t *testing.T) {
	tests := []struct {
		name string
		txs  []core.Transaction
		want core.Totals
	}{
		{"empty", nil, core.Totals{}},
		{"exact cents", []core.Transaction{{Amount: 0.1}, {Amount: 0.2}}, core.Totals{Sum: 0.3, Count: 2, Average: 0.15}},
		{"refund", []core.Transaction{{Amount: 20}, {Amount: -5}}, core.Totals{Sum: 15, Count: 2, Average: 7.5}},
		{"non finite", []core.Transaction{{Amount: math.NaN()}, {Amount: 3}}, core.Totals{Sum: 3, Count: 2, Average: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Totals(tt.txs); got != tt.want {
				t.Errorf("Totals = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestByCategoryAndTop(t *testing.T) {
	byCat := ByCategory([]core.Transaction{
		{Category: "Food", Amount: 10},
		{Category: " Food ", Amount: 5},
		{Category: "", Amount: 7},
		{Category: "Fun", Amount: 15},
		{Category: "Auto", Amount: 15},
	})
	want := map[string]float64{"Food": 15, Uncategorized: 7, "Fun": 15, "Auto": 15}
	if !reflect.DeepEqual(byCat, want) {
		t.Fatalf("ByCategory = %v", byCat)
	}

	top := TopCategories(byCat, 2)
	if len(top) != 2 || top[0].Name != "Auto" || top[1].Name != "Food" {
		t.Fatalf("TopCategories = %+v", top)
	}
	if all := TopCategories(byCat, 0); len(all) != 4 || all[3].Name != Uncategorized {
		t.Fatalf("TopCategories(0) = %+v", all)
	}
}

func TestDeriveBudget(t *testing.T) {
	tests := []struct {
		cadence core.Cadence
		want    float64
	}{
		{core.Weekly, 100},
		{core.Biweekly, 200},
		{core.Monthly, 100 * 52.0 / 12.0},
		{core.Yearly, 5200},
	}
	for _, tt := range tests {
		if got := DeriveBudget(100, tt.cadence); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("DeriveBudget(100, %s) = %v, want %v", tt.cadence, got, tt.want)
		}
	}
	if got := core.RoundCents(DeriveBudget(100, core.Monthly)); got != 433.33 {
		t.Errorf("monthly rounded = %v", got)
	}
}

func TestPercentChange(t *testing.T) {
	if got := PercentChange(150, 100); got != 50 {
		t.Errorf("got %v", got)
	}
	if got := PercentChange(50, 0); got != 0 {
		t.Errorf("zero previous must give 0, got %v", got)
	}
	if got := PercentChange(0, 40); got != -100 {
		t.Errorf("got %v", got)
	}
}

func TestCompare(t *testing.T) {
	p := currentBiweekly(t)
	cmp := Compare(sample(), p, now)
	// Previous window is Jan 17 – Jan 30: Rent 800 + Yesterday 10.
	if cmp.PrevSum != 810 {
		t.Errorf("PrevSum = %v", cmp.PrevSum)
	}
	if cmp.CurrentSum != 83.25 {
		t.Errorf("CurrentSum = %v", cmp.CurrentSum)
	}
	if want := core.RoundCents((83.25 - 810) / 810 * 100); cmp.PctChange != want {
		t.Errorf("PctChange = %v, want %v", cmp.PctChange, want)
	}
}

func TestBudgetStatus(t *testing.T) {
	lines := BudgetStatus(core.Budget{"Food": 50, "Transit": 10}, map[string]float64{"Food": 80.5, "Misc": 4}, core.Biweekly)
	want := []core.BudgetLine{
		{Category: "Food", Weekly: 50, Budget: 100, Spent: 80.5, Remaining: 19.5},
		{Category: "Transit", Weekly: 10, Budget: 20, Spent: 0, Remaining: 20},
		{Category: "Misc", Weekly: 0, Budget: 0, Spent: 4, Remaining: -4},
	}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("BudgetStatus = %+v", lines)
	}
}

func TestSummarize(t *testing.T) {
	p := currentBiweekly(t)
	s := Summarize(sample(), core.Budget{"Food": 50}, p, now, 1)
	if s.Totals.Count != 3 || s.Totals.Sum != 83.25 {
		t.Errorf("totals = %+v", s.Totals)
	}
	if len(s.TopCategories) != 1 || s.TopCategories[0].Name != "Food" || s.TopCategories[0].Amount != 80.5 {
		t.Errorf("top = %+v", s.TopCategories)
	}
	if len(s.Budget) != 2 {
		t.Errorf("budget lines = %+v", s.Budget)
	}
}
