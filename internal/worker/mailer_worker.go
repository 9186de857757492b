package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/notify"
)

// DefaultSendTimeout bounds one SMTP delivery.
const DefaultSendTimeout = 30 * time.Second

// MailerWorker delivers report emails taken off the queue.
type MailerWorker struct {
	mailer      notify.Dispatcher
	logger      *log.Logger
	sendTimeout time.Duration

	delivered atomic.Int64
	rejected  atomic.Int64
	failed    atomic.Int64
}

// Stats counts handled messages since the worker started.
type Stats struct {
	Delivered int64
	Rejected  int64
	Failed    int64
}

func NewMailerWorker(mailer notify.Dispatcher, logger *log.Logger) *MailerWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MailerWorker{
		mailer:      mailer,
		logger:      logger.WithComponent(log.ComponentMailer),
		sendTimeout: DefaultSendTimeout,
	}
}

// HandleReportEmail delivers one queued notification. Invalid notifications
// are dropped and reported as nil so the broker does not redeliver them.
func (w *MailerWorker) HandleReportEmail(ctx context.Context, n notify.Notification) error {
	if err := n.Validate(); err != nil {
		w.rejected.Add(1)
		w.logger.WarnContext(ctx, "Dropping invalid report email",
			log.FieldPeriod, n.Period,
			log.FieldError, err.Error())
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	start := time.Now()
	if err := w.mailer.Send(sendCtx, n); err != nil {
		w.failed.Add(1)
		errorType := log.ErrorTypeNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			errorType = log.ErrorTypeTimeout
		}
		w.logger.ErrorContext(ctx, "Failed to deliver report email",
			append([]any{log.FieldPeriod, n.Period},
				log.NewFields().WithError(err, errorType).WithDuration(time.Since(start)).ToSlice()...)...)
		return fmt.Errorf("deliver report email for %s: %w", n.Period, err)
	}

	w.delivered.Add(1)
	w.logger.InfoContext(ctx, "Report email delivered",
		append([]any{log.FieldPeriod, n.Period},
			log.NewFields().WithDuration(time.Since(start)).ToSlice()...)...)
	return nil
}

func (w *MailerWorker) Stats() Stats {
	return Stats{
		Delivered: w.delivered.Load(),
		Rejected:  w.rejected.Load(),
		Failed:    w.failed.Load(),
	}
}
