package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// TransactionService creates ledger entries, deriving the recurrence schedule
// of templates.
type TransactionService struct {
	store TransactionStore
	now   func() time.Time
}

func NewTransactionService(store TransactionStore) *TransactionService {
	return &TransactionService{store: store, now: time.Now}
}

// Create validates and stores t. Identity and timestamps are assigned here;
// a recurring entry gets its first next date from its own date.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := s.now().UTC()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt, t.UpdatedAt = now, now
	t.LastProcessed = nil

	if t.IsRecurring {
		next, err := core.InitialNextRecurringDate(t.Date, t.RecurringInterval, now)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("%w: %v", core.ErrInvalidTransaction, err)
		}
		t.NextRecurringDate = &next
	} else {
		t.RecurringInterval = ""
		t.NextRecurringDate = nil
	}

	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction created",
		"id", t.ID,
		"user_id", t.UserID,
		"recurring", t.IsRecurring,
		"amount_cents", t.Amount.Cents)
	return t, nil
}
