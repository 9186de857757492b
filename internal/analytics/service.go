package analytics

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Aggregator runs typed aggregation queries over the ledger.
type Aggregator interface {
	Aggregate(ctx context.Context, q storage.AggregationRequest) ([]storage.AggregateRow, error)
}

// Totals are the headline figures of one window.
type Totals struct {
	Income   core.Money
	Expenses core.Money
	Balance  core.Money
}

// Changes holds the percentage change of each headline figure.
type Changes struct {
	Income   float64
	Expenses float64
	Balance  float64
}

// SummaryAnalytics is the result of an analytics request. Previous and
// Changes are nil for all-time requests.
type SummaryAnalytics struct {
	Range    DateRange
	Summary  core.PeriodSummary
	Previous *Totals
	Changes  *Changes
}

type Service struct {
	agg Aggregator
}

func NewService(agg Aggregator) *Service {
	return &Service{agg: agg}
}

const (
	aliasTotal = "total"
	aliasCount = "n"
)

// PeriodSummary aggregates one user's ledger over [from, to], both ends
// inclusive, in a single grouped query.
func (s *Service) PeriodSummary(ctx context.Context, userID string, from, to time.Time) (core.PeriodSummary, error) {
	return s.summarize(ctx, userID, DateRange{From: from, To: to})
}

// Summary resolves a preset and compares it with the previous window.
func (s *Service) Summary(ctx context.Context, userID string, p Preset, now, customFrom, customTo time.Time) (SummaryAnalytics, error) {
	r, err := Resolve(p, now, customFrom, customTo)
	if err != nil {
		return SummaryAnalytics{}, err
	}

	cur, err := s.summarize(ctx, userID, r)
	if err != nil {
		return SummaryAnalytics{}, err
	}
	out := SummaryAnalytics{Range: r, Summary: cur}

	prevRange, ok := r.Previous()
	if !ok {
		return out, nil
	}
	prev, err := s.summarize(ctx, userID, prevRange)
	if err != nil {
		return SummaryAnalytics{}, fmt.Errorf("previous period: %w", err)
	}
	out.Previous = &Totals{Income: prev.TotalIncome, Expenses: prev.TotalExpenses, Balance: prev.AvailableBalance}
	out.Changes = &Changes{
		Income:   PercentageChange(prev.TotalIncome.Cents, cur.TotalIncome.Cents),
		Expenses: PercentageChange(prev.TotalExpenses.Cents, cur.TotalExpenses.Cents),
		Balance:  PercentageChange(prev.AvailableBalance.Cents, cur.AvailableBalance.Cents),
	}
	return out, nil
}

func (s *Service) summarize(ctx context.Context, userID string, r DateRange) (core.PeriodSummary, error) {
	b := storage.NewAggregation().Where(storage.FieldUserID, storage.OpEq, userID)
	if !r.Unbounded {
		b = b.Between(storage.FieldDate, r.From, r.To)
	}
	req, err := b.GroupBy(storage.FieldType, storage.FieldCategory).
		SumAbs(storage.FieldAmount, aliasTotal).
		Count(aliasCount).
		Build()
	if err != nil {
		return core.PeriodSummary{}, err
	}

	rows, err := s.agg.Aggregate(ctx, req)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("aggregate ledger for %s: %w", userID, err)
	}
	return Summarize(rows), nil
}

// Summarize folds rows grouped by type and category into a PeriodSummary.
func Summarize(rows []storage.AggregateRow) core.PeriodSummary {
	var (
		sum        core.PeriodSummary
		byCategory = map[string]core.Money{}
	)
	for _, row := range rows {
		amount := core.Cents(row.Values[aliasTotal])
		sum.TransactionCount += int(row.Values[aliasCount])
		switch core.TransactionType(row.Keys[storage.FieldType]) {
		case core.Income:
			sum.TotalIncome = sum.TotalIncome.Add(amount)
		case core.Expense:
			sum.TotalExpenses = sum.TotalExpenses.Add(amount)
			name := row.Keys[storage.FieldCategory]
			byCategory[name] = byCategory[name].Add(amount)
		}
	}
	sum.AvailableBalance = sum.TotalIncome.Sub(sum.TotalExpenses)
	sum.SavingRate = SavingRate(sum.TotalIncome.Cents, sum.TotalExpenses.Cents)
	sum.ExpenseRatio = ExpenseRatio(sum.TotalIncome.Cents, sum.TotalExpenses.Cents)
	sum.TopCategories = CategoryBreakdown(byCategory)
	return sum
}
