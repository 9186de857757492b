// Package insights turns a period summary into short natural-language
// observations. Generators never fail: any problem yields an empty list.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// MaxInsights caps how many observations a report carries.
const MaxInsights = 5

// Generator produces insights for a summary. Implementations must not return
// errors; failures are logged and degrade to nil.
type Generator interface {
	Generate(ctx context.Context, summary core.PeriodSummary, periodLabel string) []string
}

// Disabled is used when no AI backend is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, core.PeriodSummary, string) []string {
	return nil
}

// Parse extracts a JSON array of strings from a model reply, tolerating
// markdown code fences around it. Blank entries are dropped and at most
// MaxInsights are kept.
func Parse(raw string) ([]string, error) {
	s := stripFences(raw)
	if s == "" {
		return nil, fmt.Errorf("empty response")
	}

	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		out = append(out, it)
		if len(out) == MaxInsights {
			break
		}
	}
	return out, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag, if any, up to the first newline.
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "[{") {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Prompt renders the instruction sent to the model. Amounts are in major units.
func Prompt(summary core.PeriodSummary, periodLabel string) string {
	var cats strings.Builder
	for _, c := range summary.TopCategories {
		fmt.Fprintf(&cats, "\n  - %s: %s (%d%%)", c.Name, c.Amount.Decimal().StringFixed(2), c.Percent)
	}

	return fmt.Sprintf(`You are a friendly personal finance assistant.
Analyze this user's finances for %s and give short, practical observations.

Data:
- Total income: %s
- Total expenses: %s
- Available balance: %s
- Savings rate: %.2f%%
- Top expense categories:%s

Rules:
- Reply with a JSON array of at most %d strings and nothing else.
- Each string is one sentence under 25 words.
- Mention concrete numbers where useful. Do not invent data.

Example: ["You saved 40%% of your income this month.", "Rent took half of your spending."]`,
		periodLabel,
		summary.TotalIncome.Decimal().StringFixed(2),
		summary.TotalExpenses.Decimal().StringFixed(2),
		summary.AvailableBalance.Decimal().StringFixed(2),
		summary.SavingRate,
		cats.String(),
		MaxInsights)
}
