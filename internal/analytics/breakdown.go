// Package analytics derives period summaries, category breakdowns and
// period-over-period changes from typed aggregation queries. All arithmetic is
// done in integer minor units; decimal is used only for rounding rates.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// TopCategoryCount is how many expense categories are reported by name before
// the rest are folded into core.OthersCategory.
const TopCategoryCount = 3

// CategoryBreakdown sorts expense totals descending (ties by name), keeps the
// top TopCategoryCount and rolls the remainder into one "others" bucket. A
// recorded category that already carries the bucket's name is not ranked; it
// is folded into the bucket, which always comes last. The bucket amounts
// always sum to the total exactly; only percentages round.
func CategoryBreakdown(totals map[string]core.Money) []core.CategoryShare {
	shares := make([]core.CategoryShare, 0, len(totals))
	var (
		total     int64
		rest      core.Money
		hasOthers bool
	)
	for name, amount := range totals {
		a := amount.Abs()
		total += a.Cents
		if name == core.OthersCategory {
			rest, hasOthers = rest.Add(a), true
			continue
		}
		shares = append(shares, core.CategoryShare{Name: name, Amount: a})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Amount.Cents != shares[j].Amount.Cents {
			return shares[i].Amount.Cents > shares[j].Amount.Cents
		}
		return shares[i].Name < shares[j].Name
	})

	if len(shares) > TopCategoryCount {
		for _, s := range shares[TopCategoryCount:] {
			rest = rest.Add(s.Amount)
		}
		shares, hasOthers = shares[:TopCategoryCount], true
	}
	if hasOthers {
		shares = append(shares, core.CategoryShare{Name: core.OthersCategory, Amount: rest})
	}

	for i := range shares {
		shares[i].Percent = wholePercent(shares[i].Amount.Cents, total)
	}
	return shares
}

// wholePercent is part/total*100 rounded half away from zero, 0 when total is 0.
func wholePercent(part, total int64) int {
	if total == 0 {
		return 0
	}
	p := decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(total)).Round(0)
	return int(p.IntPart())
}
