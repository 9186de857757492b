package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestTransactionService_Create(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		tx       core.Transaction
		wantNext *time.Time
		wantErr  error
	}{
		{
			name: "recurring from recent date",
			tx: core.Transaction{UserID: "u1", Title: "Rent", Amount: core.Cents(90000), Type: core.Expense,
				Category: "Housing", Date: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
				IsRecurring: true, RecurringInterval: core.Monthly},
			wantNext: ptr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		},
		{
			name: "recurring from stale date re-anchors on now",
			tx: core.Transaction{UserID: "u1", Title: "Coffee", Amount: core.Cents(300), Type: core.Expense,
				Category: "Food", Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				IsRecurring: true, RecurringInterval: core.Weekly},
			wantNext: ptr(now.AddDate(0, 0, 7)),
		},
		{
			name: "one-off drops recurrence state",
			tx: core.Transaction{UserID: "u1", Title: "Book", Amount: core.Cents(1500), Type: core.Expense,
				Category: "Education", Date: now, RecurringInterval: core.Monthly},
		},
		{
			name: "recurring needs a valid interval",
			tx: core.Transaction{UserID: "u1", Title: "Gym", Amount: core.Cents(4500), Type: core.Expense,
				Category: "Health", Date: now, IsRecurring: true, RecurringInterval: "HOURLY"},
			wantErr: core.ErrInvalidTransaction,
		},
		{
			name:    "blank title",
			tx:      core.Transaction{UserID: "u1", Title: "  ", Type: core.Income, Category: "Work", Date: now},
			wantErr: core.ErrEmptyTitle,
		},
		{
			name: "zero amount",
			tx: core.Transaction{UserID: "u1", Title: "Nothing", Type: core.Expense,
				Category: "Misc", Date: now},
			wantErr: core.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepo(t)
			svc := NewTransactionService(repo)
			svc.now = func() time.Time { return now }

			got, err := svc.Create(context.Background(), tt.tx)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.ID == "" || !got.CreatedAt.Equal(now) {
				t.Errorf("identity not assigned: %+v", got)
			}

			stored, err := repo.GetTransaction(context.Background(), got.ID)
			if err != nil {
				t.Fatal(err)
			}
			switch {
			case tt.wantNext == nil && (stored.NextRecurringDate != nil || stored.RecurringInterval != ""):
				t.Errorf("one-off kept recurrence state: %+v", stored)
			case tt.wantNext != nil && (stored.NextRecurringDate == nil || !stored.NextRecurringDate.Equal(*tt.wantNext)):
				t.Errorf("next = %v, want %v", stored.NextRecurringDate, *tt.wantNext)
			}
		})
	}
}

func ptr(t time.Time) *time.Time {
	return &t
}
