package services

import (
	"context"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// RecurringStore is the persistence the recurring processor needs.
type RecurringStore interface {
	DueRecurringTransactions(now time.Time) *storage.Cursor[core.Transaction]
	MaterializeRecurrence(ctx context.Context, template, instance core.Transaction, next, now time.Time) error
}

// ReportStore is the persistence the report processor needs.
type ReportStore interface {
	DueReportSettings(now time.Time) *storage.Cursor[storage.DueReportSetting]
	RecordReportOutcome(ctx context.Context, o storage.ReportOutcome) error
}

// SummaryProvider computes a user's summary for an inclusive range.
type SummaryProvider interface {
	PeriodSummary(ctx context.Context, userID string, from, to time.Time) (core.PeriodSummary, error)
}

type ReportSettingStore interface {
	GetUser(ctx context.Context, id string) (core.User, error)
	CreateReportSetting(ctx context.Context, s core.ReportSetting, now time.Time) error
	GetReportSetting(ctx context.Context, userID string) (core.ReportSetting, error)
	UpdateReportSetting(ctx context.Context, s core.ReportSetting, now time.Time) error
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) error
}
