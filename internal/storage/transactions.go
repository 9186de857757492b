package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

const transactionColumns = `id, user_id, title, description, amount_cents, type, category,
	payment_method, date_ms, is_recurring, recurring_interval, next_recurring_date_ms,
	last_processed_ms, created_at_ms, updated_at_ms`

const insertTransaction = `INSERT INTO transactions (` + transactionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		t                   core.Transaction
		interval            sql.NullString
		dateMs              int64
		isRecurring         int64
		nextMs, lastMs      sql.NullInt64
		createdMs, updateMs int64
	)
	err := s.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Amount.Cents, &t.Type, &t.Category,
		&t.PaymentMethod, &dateMs, &isRecurring, &interval, &nextMs,
		&lastMs, &createdMs, &updateMs)
	if err != nil {
		return t, err
	}
	t.Date = fromMillis(dateMs)
	t.IsRecurring = isRecurring == 1
	t.RecurringInterval = core.RecurringInterval(interval.String)
	t.NextRecurringDate = timePtr(nextMs)
	t.LastProcessed = timePtr(lastMs)
	t.CreatedAt = fromMillis(createdMs)
	t.UpdatedAt = fromMillis(updateMs)
	return t, nil
}

func transactionArgs(t core.Transaction) []any {
	return []any{
		t.ID, t.UserID, t.Title, t.Description, t.Amount.Cents, string(t.Type), t.Category,
		string(t.PaymentMethod), toMillis(t.Date), boolInt(t.IsRecurring),
		nullString(string(t.RecurringInterval)), nullMillis(t.NextRecurringDate),
		nullMillis(t.LastProcessed), toMillis(t.CreatedAt), toMillis(t.UpdatedAt),
	}
}

// CreateTransaction inserts a ledger entry as-is.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	if _, err := r.db.ExecContext(ctx, insertTransaction, transactionArgs(t)...); err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.ID, err)
	}
	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"user_id", t.UserID,
		"amount_cents", t.Amount.Cents,
		"recurring", t.IsRecurring)
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return t, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

// DueRecurringTransactions streams every template with isRecurring set and a
// next date at or before now.
func (r *SQLiteRepository) DueRecurringTransactions(now time.Time) *Cursor[core.Transaction] {
	nowMs := toMillis(now)
	return newCursor(r.pageSize,
		func(t core.Transaction) string { return t.ID },
		func(ctx context.Context, after string, limit int) ([]core.Transaction, error) {
			rows, err := r.db.QueryContext(ctx, `SELECT `+transactionColumns+`
				FROM transactions
				WHERE is_recurring = 1
				  AND next_recurring_date_ms IS NOT NULL
				  AND next_recurring_date_ms <= ?
				  AND id > ?
				ORDER BY id
				LIMIT ?`, nowMs, after, limit)
			if err != nil {
				return nil, fmt.Errorf("query due recurring transactions: %w", err)
			}
			defer rows.Close()

			page := make([]core.Transaction, 0, limit)
			for rows.Next() {
				t, err := scanTransaction(rows)
				if err != nil {
					return nil, fmt.Errorf("scan transaction: %w", err)
				}
				page = append(page, t)
			}
			return page, rows.Err()
		})
}

// MaterializeRecurrence inserts instance and advances the template in one
// transaction. The template update is guarded on the next date read by the
// scan, so a template edited or fired concurrently yields ErrStale and
// nothing is written.
func (r *SQLiteRepository) MaterializeRecurrence(ctx context.Context, template, instance core.Transaction, next, now time.Time) error {
	if template.NextRecurringDate == nil {
		return fmt.Errorf("template %s: %w", template.ID, core.ErrInvalidRecurrence)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertTransaction, transactionArgs(instance)...); err != nil {
			return fmt.Errorf("insert instance of %s: %w", template.ID, err)
		}

		res, err := tx.ExecContext(ctx, `UPDATE transactions
			SET next_recurring_date_ms = ?, last_processed_ms = ?, updated_at_ms = ?
			WHERE id = ? AND is_recurring = 1 AND next_recurring_date_ms = ?`,
			toMillis(next), toMillis(now), toMillis(now),
			template.ID, toMillis(*template.NextRecurringDate))
		if err != nil {
			return fmt.Errorf("advance template %s: %w", template.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return r.staleOrMissing(ctx, tx, template.ID)
		}
		return nil
	})
}

func (r *SQLiteRepository) staleOrMissing(ctx context.Context, tx *sql.Tx, id string) error {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM transactions WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("template %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lookup template %s: %w", id, err)
	}
	return fmt.Errorf("template %s: %w", id, ErrStale)
}

// CountTransactions returns how many entries a user owns.
func (r *SQLiteRepository) CountTransactions(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}
