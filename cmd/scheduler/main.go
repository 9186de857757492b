package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/cli"
	"fintrack/internal/insights"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/scheduler"
	"fintrack/internal/services"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)
	logger.Info("Starting scheduler")

	recurringTrigger, _ := cfg.RecurringTrigger()
	reportTrigger, _ := cfg.ReportTrigger()

	sqliteRepo := cli.InitSQLite(logger, cfg)
	defer sqliteRepo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Insights are optional; reports go out without them
	var generator insights.Generator = insights.Disabled{}
	if cfg.GeminiAPIKey != "" {
		gemini, err := insights.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("Failed to initialize Gemini client, reports will carry no insights", "error", err)
		} else {
			generator = gemini
			logger.Info("Gemini insights enabled", "model", cfg.GeminiModel)
		}
	} else {
		logger.Info("GEMINI_API_KEY not set - reports will carry no insights")
	}

	// Report emails go through the queue when AMQP is configured, otherwise
	// straight to SMTP
	var dispatcher notify.Dispatcher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		dispatcher = amqpClient
		logger.Info("AMQP client initialized - report emails will be delivered by mailer-worker")
	} else {
		smtpDispatcher, err := notify.NewSMTPDispatcher(cli.SMTPConfig(cfg))
		if err != nil {
			logger.Error("Failed to initialize SMTP dispatcher", "error", err)
			os.Exit(1)
		}
		dispatcher = smtpDispatcher
		logger.Info("AMQP disabled - report emails will be sent over SMTP", "smtp_host", cfg.SMTPHost)
	}

	recurring := services.NewRecurringProcessor(sqliteRepo,
		services.WithCommitTimeout(cfg.RecurringCommitTimeout),
		services.WithConcurrency(cfg.BatchConcurrency))

	reportGenerator := services.NewReportGenerator(analytics.NewService(sqliteRepo), generator)
	reports := services.NewReportProcessor(sqliteRepo, reportGenerator, dispatcher,
		services.WithCommitTimeout(cfg.ReportCommitTimeout),
		services.WithConcurrency(cfg.BatchConcurrency))

	sched := scheduler.New(
		scheduler.WithLogger(logger.WithComponent(log.ComponentScheduler)),
		scheduler.WithRunOnStart(cfg.RunOnStart))

	jobs := []scheduler.Job{
		{Name: services.JobRecurringTransactions, Trigger: recurringTrigger, Run: batchJob(recurring.Process)},
		{Name: services.JobPeriodicReports, Trigger: reportTrigger, Run: batchJob(reports.Process)},
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			logger.Error("Failed to register job", "job", job.Name, "error", err)
			os.Exit(1)
		}
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := sched.Start(ctx); err != nil {
			logger.Error("Scheduler stopped", "error", err)
		}
	}()

	// In-flight entity transactions are detached from cancellation and bounded
	// by their commit deadline
	shutdownTimeout := max(cfg.RecurringCommitTimeout, cfg.ReportCommitTimeout) + 5*time.Second
	cli.WaitForShutdown(logger, cancel, stopped, shutdownTimeout)
}

// batchJob adapts a processor to the scheduler. Entity problems stay in the
// summary; only scan-level errors fail the run.
func batchJob(process func(ctx context.Context, now time.Time) (services.BatchSummary, error)) scheduler.RunFunc {
	return func(ctx context.Context, now time.Time) error {
		summary, err := process(ctx, now)
		logger := log.FromContext(ctx)
		for _, o := range summary.Problems {
			logger.DebugContext(ctx, "Batch problem", log.FieldOutcome, o.String())
		}
		logger.InfoContext(ctx, summary.String())
		return err
	}
}
