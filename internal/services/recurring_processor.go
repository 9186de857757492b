package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const JobRecurringTransactions = "recurring-transactions"

// RecurringProcessor materializes due recurrence templates. Each template is
// handled in its own atomic unit: the instance insert and the template
// advance commit together or not at all.
type RecurringProcessor struct {
	store RecurringStore
	opts  processorOptions
}

func NewRecurringProcessor(store RecurringStore, opts ...ProcessorOption) *RecurringProcessor {
	return &RecurringProcessor{
		store: store,
		opts:  buildOptions(DefaultRecurringCommitTimeout, opts),
	}
}

// Process runs one batch for templates due at now. Entity problems are
// contained in the summary; the error is non-nil only when the scan itself
// failed or was interrupted.
func (p *RecurringProcessor) Process(ctx context.Context, now time.Time) (BatchSummary, error) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentRecurring)
	b := newBatch(JobRecurringTransactions, time.Now())

	cur := p.store.DueRecurringTransactions(now)
	var g errgroup.Group
	g.SetLimit(p.opts.concurrency)

	for ctx.Err() == nil && cur.Next(ctx) {
		tx := cur.Value()
		g.Go(func() error {
			b.add(p.processOne(ctx, logger, tx, now))
			return nil
		})
	}
	_ = g.Wait()

	summary := b.finish(time.Now())
	scanErr := cur.Err()
	if scanErr == nil {
		scanErr = ctx.Err()
	}
	if scanErr != nil {
		logger.ErrorContext(ctx, "Recurring transaction scan aborted",
			log.NewFields().WithError(scanErr, log.ErrorTypeDatabase).ToSlice()...)
		return summary, fmt.Errorf("scan due recurring transactions: %w", scanErr)
	}

	logger.InfoContext(ctx, "Recurring transaction batch complete",
		"scanned", summary.Scanned,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		log.FieldDuration, summary.Duration.Milliseconds())
	return summary, nil
}

func (p *RecurringProcessor) processOne(ctx context.Context, logger *log.Logger, tx core.Transaction, now time.Time) Outcome {
	entry := logger.WithFields(log.NewFields().
		WithOperation(log.OpMaterialize).
		WithTransaction(tx.ID, tx.UserID, string(tx.RecurringInterval), tx.Amount.Cents))

	if err := tx.ValidateTemplate(); err != nil {
		entry.WarnContext(ctx, "Skipping malformed recurrence template",
			log.NewFields().WithError(err, log.ErrorTypeValidation).ToSlice()...)
		return skipped(tx.ID, err.Error())
	}

	next, err := core.NextOccurrence(*tx.NextRecurringDate, tx.RecurringInterval)
	if err != nil {
		return skipped(tx.ID, err.Error())
	}
	instance := tx.Materialize(p.opts.newID(), now)

	// The unit of work is detached from batch cancellation so an in-flight
	// entity always commits or rolls back, bounded by its own deadline.
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.commitTimeout)
	defer cancel()

	err = p.store.MaterializeRecurrence(txCtx, tx, instance, next, now)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrStale):
		entry.InfoContext(ctx, "Template changed since scan, leaving it for the next run")
		return skipped(tx.ID, "changed since scan")
	case errors.Is(err, core.ErrNotFound):
		entry.WarnContext(ctx, "Template disappeared before processing",
			log.NewFields().WithError(err, log.ErrorTypeNotFound).ToSlice()...)
		return failed(tx.ID, err)
	default:
		errType := log.ErrorTypeDatabase
		if errors.Is(err, context.DeadlineExceeded) {
			errType = log.ErrorTypeTimeout
		}
		entry.ErrorContext(ctx, "Failed to materialize recurring transaction",
			log.NewFields().WithError(err, errType).ToSlice()...)
		return failed(tx.ID, err)
	}

	entry.InfoContext(ctx, "Created transaction from recurring template",
		log.FieldInstanceID, instance.ID,
		log.FieldNextDate, next.Format(time.RFC3339))
	return succeeded(tx.ID, "")
}
