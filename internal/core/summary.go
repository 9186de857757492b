package core

// OthersCategory is the synthetic bucket holding every category past the top ones.
const OthersCategory = "others"

// CategoryShare is one bucket of an expense breakdown.
type CategoryShare struct {
	Name    string
	Amount  Money
	Percent int
}

// PeriodSummary is computed fresh for every report cycle or analytics request
// and never persisted.
type PeriodSummary struct {
	TotalIncome      Money
	TotalExpenses    Money
	AvailableBalance Money
	SavingRate       float64
	ExpenseRatio     float64
	TransactionCount int
	TopCategories    []CategoryShare
}

// HasActivity reports whether any income or expense was recorded.
func (s PeriodSummary) HasActivity() bool {
	return !s.TotalIncome.IsZero() || !s.TotalExpenses.IsZero()
}
