package core

// CategoryAmount is one row of a per-category breakdown.
type CategoryAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Totals summarizes a set of transactions.
type Totals struct {
	Sum     float64 `json:"sum"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
}

// BudgetLine compares a derived budget with actual spend for one category.
type BudgetLine struct {
	Category  string  `json:"category"`
	Weekly    float64 `json:"weekly"`
	Budget    float64 `json:"budget"`
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
}

// Comparison is a period-over-period delta.
type Comparison struct {
	Previous   Period  `json:"previous"`
	PrevSum    float64 `json:"previousSum"`
	PctChange  float64 `json:"pctChange"`
	CurrentSum float64 `json:"currentSum"`
}

// PeriodSummary is the dashboard view of one period.
type PeriodSummary struct {
	Period        Period           `json:"period"`
	Totals        Totals           `json:"totals"`
	TopCategories []CategoryAmount `json:"topCategories"`
	Budget        []BudgetLine     `json:"budget"`
	Comparison    Comparison       `json:"comparison"`
	Warnings      []string         `json:"warnings,omitempty"`
}

// PeriodTotals pairs a period with its totals for history charts.
type PeriodTotals struct {
	Period Period `json:"period"`
	Totals Totals `json:"totals"`
}
