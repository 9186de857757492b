// Package notify delivers monthly report emails. Payload amounts are in major
// currency units; conversion happens in NewNotification.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"fintrack/internal/core"
)

var ErrInvalidNotification = errors.New("invalid notification")

// Dispatcher delivers one report email. A returned error only marks the
// delivery as failed; callers never abort bookkeeping on it.
type Dispatcher interface {
	Send(ctx context.Context, n Notification) error
}

type Category struct {
	Name    string  `json:"name"`
	Amount  float64 `json:"amount"`
	Percent int     `json:"percent"`
}

type Notification struct {
	Email         string     `json:"email" validate:"required,email"`
	Name          string     `json:"name"`
	Frequency     string     `json:"frequency" validate:"required"`
	Period        string     `json:"period" validate:"required"`
	TotalIncome   float64    `json:"totalIncome"`
	TotalExpenses float64    `json:"totalExpenses"`
	Balance       float64    `json:"availableBalance"`
	SavingsRate   float64    `json:"savingsRate"`
	ExpenseRatio  float64    `json:"expenseRatio"`
	TopCategories []Category `json:"topCategories"`
	Insights      []string   `json:"insights"`
}

var validate = validator.New()

// NewNotification builds the payload for one user and period.
func NewNotification(user core.User, frequency core.ReportFrequency, period string, s core.PeriodSummary, insights []string) Notification {
	cats := make([]Category, 0, len(s.TopCategories))
	for _, c := range s.TopCategories {
		cats = append(cats, Category{Name: c.Name, Amount: c.Amount.Major(), Percent: c.Percent})
	}
	return Notification{
		Email:         user.Email,
		Name:          user.Name,
		Frequency:     FrequencyLabel(frequency),
		Period:        period,
		TotalIncome:   s.TotalIncome.Major(),
		TotalExpenses: s.TotalExpenses.Major(),
		Balance:       s.AvailableBalance.Major(),
		SavingsRate:   s.SavingRate,
		ExpenseRatio:  s.ExpenseRatio,
		TopCategories: cats,
		Insights:      insights,
	}
}

func (n Notification) Validate() error {
	if err := validate.Struct(n); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNotification, err)
	}
	return nil
}

// FrequencyLabel renders a frequency for humans, e.g. MONTHLY -> "Monthly".
func FrequencyLabel(f core.ReportFrequency) string {
	s := strings.ToLower(string(f))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
