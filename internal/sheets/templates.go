package sheets

// Header rows. Ledger headers are matched trimmed and case-insensitively.
var (
	TransactionHeader = []string{"Range", "Amount", "Type", "Desc", "Card"}
	BudgetHeader      = []string{"Budget Categories", "Values"}
	RegistryHeader    = []string{"Email", "Ledger ID", "Status", "Access", "Created At", "Notes"}
	RequestsHeader    = []string{"Email", "Status", "Requested At", "Notes"}
)

// NewLedgerDocument returns an empty ledger with both required sections.
func NewLedgerDocument(id, title string) *Document {
	return &Document{
		ID:    id,
		Title: title,
		Sections: []Section{
			{Name: SpendingSection, Rows: [][]string{append([]string(nil), TransactionHeader...)}},
			{Name: BudgetSection, Rows: [][]string{append([]string(nil), BudgetHeader...)}},
		},
	}
}

// NewRegistryDocument returns an empty central registry.
func NewRegistryDocument(id string) *Document {
	return &Document{
		ID:    id,
		Title: "Finance Dashboard Registry",
		Sections: []Section{
			{Name: RegistrySection, Rows: [][]string{append([]string(nil), RegistryHeader...)}},
			{Name: RequestsSection, Rows: [][]string{append([]string(nil), RequestsHeader...)}},
		},
	}
}
