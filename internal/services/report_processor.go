package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/storage"
)

const JobPeriodicReports = "periodic-reports"

// ReportProcessor generates, delivers and records the reports of every due
// subscription. Delivery is best effort; the audit record and the schedule
// advance are written atomically whatever the delivery result.
type ReportProcessor struct {
	store      ReportStore
	generator  *ReportGenerator
	dispatcher notify.Dispatcher
	opts       processorOptions
}

func NewReportProcessor(store ReportStore, generator *ReportGenerator, dispatcher notify.Dispatcher, opts ...ProcessorOption) *ReportProcessor {
	return &ReportProcessor{
		store:      store,
		generator:  generator,
		dispatcher: dispatcher,
		opts:       buildOptions(DefaultReportCommitTimeout, opts),
	}
}

// Process runs one reporting cycle covering the calendar month before now.
func (p *ReportProcessor) Process(ctx context.Context, now time.Time) (BatchSummary, error) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentReports)
	b := newBatch(JobPeriodicReports, time.Now())

	from, to := core.ReportingPeriod(now)
	period := core.PeriodLabel(from, to)

	cur := p.store.DueReportSettings(now)
	var g errgroup.Group
	g.SetLimit(p.opts.concurrency)

	for ctx.Err() == nil && cur.Next(ctx) {
		due := cur.Value()
		g.Go(func() error {
			b.add(p.processOne(ctx, logger, due, from, to, period, now))
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
		logger.ErrorContext(ctx, "Report setting scan aborted",
			log.NewFields().WithError(scanErr, log.ErrorTypeDatabase).ToSlice()...)
		return summary, fmt.Errorf("scan due report settings: %w", scanErr)
	}

	logger.InfoContext(ctx, "Report cycle complete",
		log.FieldPeriod, period,
		"scanned", summary.Scanned,
		"sent", summary.Details[string(core.ReportSent)],
		"delivery_failed", summary.Details[string(core.ReportFailed)],
		"no_activity", summary.Details[string(core.ReportNoActivity)],
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		log.FieldDuration, summary.Duration.Milliseconds())
	return summary, nil
}

func (p *ReportProcessor) processOne(ctx context.Context, logger *log.Logger, due storage.DueReportSetting, from, to time.Time, period string, now time.Time) Outcome {
	setting := due.Setting
	entry := logger.WithFields(log.NewFields().
		WithOperation(log.OpReport).
		WithReportSetting(setting.ID, setting.UserID, period))

	if due.User == nil {
		err := fmt.Errorf("user %s: %w", setting.UserID, core.ErrNotFound)
		entry.WarnContext(ctx, "Report owner not found, skipping",
			log.NewFields().WithError(err, log.ErrorTypeNotFound).ToSlice()...)
		return failed(setting.ID, err)
	}
	if err := setting.Validate(); err != nil {
		entry.WarnContext(ctx, "Skipping malformed report setting",
			log.NewFields().WithError(err, log.ErrorTypeValidation).ToSlice()...)
		return skipped(setting.ID, err.Error())
	}

	report, err := p.generator.Generate(ctx, setting.UserID, from, to)
	if err != nil {
		entry.ErrorContext(ctx, "Failed to generate report",
			log.NewFields().WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return failed(setting.ID, err)
	}

	status := core.ReportNoActivity
	if report != nil {
		status = core.ReportSent
		n := notify.NewNotification(*due.User, setting.Frequency, period, report.Summary, report.Insights)
		if err := p.dispatcher.Send(ctx, n); err != nil {
			entry.WarnContext(ctx, "Report delivery failed",
				log.NewFields().WithOperation(log.OpDeliver).WithError(err, log.ErrorTypeNetwork).ToSlice()...)
			status = core.ReportFailed
		}
	}

	outcome := storage.ReportOutcome{
		Report: core.Report{
			ID:       p.opts.newID(),
			UserID:   setting.UserID,
			SentDate: now,
			Period:   period,
			Status:   status,
		},
		SettingID:      setting.ID,
		NextReportDate: core.NextReportDate(&now, now),
	}
	if status == core.ReportSent {
		outcome.LastSentDate = &now
	}

	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.commitTimeout)
	defer cancel()

	if err := p.store.RecordReportOutcome(txCtx, outcome); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			entry.WarnContext(ctx, "Report setting disappeared before recording",
				log.NewFields().WithError(err, log.ErrorTypeNotFound).ToSlice()...)
			return failed(setting.ID, err)
		}
		entry.ErrorContext(ctx, "Failed to record report outcome",
			log.NewFields().WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return failed(setting.ID, err)
	}

	entry.InfoContext(ctx, "Report processed",
		log.FieldReportID, outcome.Report.ID,
		log.FieldStatus, string(status),
		log.FieldNextDate, outcome.NextReportDate.Format(time.DateOnly))
	return succeeded(setting.ID, string(status))
}
