package analytics

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// SavingRate is 100*(income-expenses)/income to two decimals, 0 when there is
// no income.
func SavingRate(income, expenses int64) float64 {
	if income <= 0 {
		return 0
	}
	return ratio(income-expenses, income)
}

// ExpenseRatio is 100*expenses/income to two decimals, 0 when there is no income.
func ExpenseRatio(income, expenses int64) float64 {
	if income <= 0 {
		return 0
	}
	return ratio(expenses, income)
}

// PercentageChange compares a metric across two periods. It is 0 when both are
// 0, 100 when only the previous value is 0, and otherwise the relative change
// clamped to [-100, 100] and rounded to two decimals.
func PercentageChange(previous, current int64) float64 {
	switch {
	case previous == 0 && current == 0:
		return 0
	case previous == 0:
		return 100
	}
	prev := decimal.NewFromInt(previous)
	change := decimal.NewFromInt(current - previous).Mul(hundred).Div(prev.Abs())
	if change.GreaterThan(hundred) {
		change = hundred
	} else if change.LessThan(hundred.Neg()) {
		change = hundred.Neg()
	}
	f, _ := change.Round(2).Float64()
	return f
}

func ratio(num, den int64) float64 {
	f, _ := decimal.NewFromInt(num).Mul(hundred).Div(decimal.NewFromInt(den)).Round(2).Float64()
	return f
}
