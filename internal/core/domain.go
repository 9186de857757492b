package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	Daily   RecurringInterval = "DAILY"
	Weekly  RecurringInterval = "WEEKLY"
	Monthly RecurringInterval = "MONTHLY"
	Yearly  RecurringInterval = "YEARLY"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	PaymentCard          PaymentMethod = "CARD"
	PaymentBankTransfer  PaymentMethod = "BANK_TRANSFER"
	PaymentMobilePayment PaymentMethod = "MOBILE_PAYMENT"
	PaymentAutoDebit     PaymentMethod = "AUTO_DEBIT"
	PaymentCash          PaymentMethod = "CASH"
	PaymentOther         PaymentMethod = "OTHER"
)

const (
	FrequencyMonthly ReportFrequency = "MONTHLY"
)

const (
	ReportSent       ReportStatus = "SENT"
	ReportFailed     ReportStatus = "FAILED"
	ReportNoActivity ReportStatus = "NO_ACTIVITY"
)

// RecurringTitlePrefix marks the title of instances materialized from a template.
const RecurringTitlePrefix = "Recurring - "

type (
	RecurringInterval string
	TransactionType   string
	PaymentMethod     string
	ReportFrequency   string
	ReportStatus      string

	// Transaction is a ledger entry. When IsRecurring is set it acts as a
	// template and carries the recurrence state.
	Transaction struct {
		ID                string            `validate:"required"`
		UserID            string            `validate:"required"`
		Title             string            `validate:"required,max=255"`
		Description       string            `validate:"max=1000"`
		Amount            Money             `validate:"-"`
		Type              TransactionType   `validate:"required,oneof=INCOME EXPENSE"`
		Category          string            `validate:"required"`
		PaymentMethod     PaymentMethod     `validate:"omitempty,oneof=CARD BANK_TRANSFER MOBILE_PAYMENT AUTO_DEBIT CASH OTHER"`
		Date              time.Time         `validate:"required"`
		IsRecurring       bool              `validate:"-"`
		RecurringInterval RecurringInterval `validate:"required_if=IsRecurring true,interval"`
		NextRecurringDate *time.Time        `validate:"required_if=IsRecurring true"`
		LastProcessed     *time.Time        `validate:"-"`
		CreatedAt         time.Time         `validate:"-"`
		UpdatedAt         time.Time         `validate:"-"`
	}

	User struct {
		ID    string
		Name  string
		Email string
	}

	ReportSetting struct {
		ID             string          `validate:"required"`
		UserID         string          `validate:"required"`
		IsEnabled      bool            `validate:"-"`
		Frequency      ReportFrequency `validate:"required,oneof=MONTHLY"`
		LastSentDate   *time.Time      `validate:"-"`
		NextReportDate *time.Time      `validate:"-"`
		UpdatedAt      time.Time       `validate:"-"`
	}

	// Report is the immutable audit record written once per processed setting per cycle.
	Report struct {
		ID       string
		UserID   string
		SentDate time.Time
		Period   string
		Status   ReportStatus
	}
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidInterval    = errors.New("invalid recurring interval")
	ErrInvalidRecurrence  = errors.New("invalid recurrence state")
	ErrInvalidSetting     = errors.New("invalid report setting")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyTitle         = errors.New("empty title")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Empty is allowed here; required_if enforces presence for templates.
	_ = v.RegisterValidation("interval", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || RecurringInterval(s).IsValid()
	})
	return v
}

func (i RecurringInterval) IsValid() bool {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (i RecurringInterval) String() string {
	return string(i)
}

// ParseRecurringInterval accepts any letter case.
func ParseRecurringInterval(s string) (RecurringInterval, error) {
	i := RecurringInterval(strings.ToUpper(strings.TrimSpace(s)))
	if !i.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidInterval, s)
	}
	return i, nil
}

// Validate checks field constraints and the recurrence invariant: a template
// must carry an interval and a next date, an instance must carry neither.
// Amounts may be signed but never zero.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTransaction, describe(err))
	}
	if !t.IsRecurring && (t.RecurringInterval != "" || t.NextRecurringDate != nil) {
		return fmt.Errorf("%w: non-recurring transaction carries recurrence state", ErrInvalidRecurrence)
	}
	return nil
}

// ValidateTemplate is the check applied to rows returned by the due scan.
func (t Transaction) ValidateTemplate() error {
	if !t.IsRecurring {
		return fmt.Errorf("%w: transaction %s is not recurring", ErrInvalidRecurrence, t.ID)
	}
	if !t.RecurringInterval.IsValid() {
		return fmt.Errorf("%w: transaction %s has interval %q", ErrInvalidRecurrence, t.ID, t.RecurringInterval)
	}
	if t.NextRecurringDate == nil || t.NextRecurringDate.IsZero() {
		return fmt.Errorf("%w: transaction %s has no next recurring date", ErrInvalidRecurrence, t.ID)
	}
	return nil
}

// Materialize returns the one-shot instance produced when the template fires.
// The caller assigns the identity.
func (t Transaction) Materialize(id string, now time.Time) Transaction {
	return Transaction{
		ID:            id,
		UserID:        t.UserID,
		Title:         RecurringTitlePrefix + t.Title,
		Description:   t.Description,
		Amount:        t.Amount,
		Type:          t.Type,
		Category:      t.Category,
		PaymentMethod: t.PaymentMethod,
		Date:          *t.NextRecurringDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s ReportSetting) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSetting, describe(err))
	}
	return nil
}

// describe flattens validator errors into "Field:tag" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+":"+fe.Tag())
	}
	return strings.Join(parts, ", ")
}
