package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentMailer)
	logger.Info("Starting mailer-worker")

	if cfg.AMQPURL == "" || cfg.SMTPHost == "" {
		logger.Error("mailer-worker needs both AMQP_URL and SMTP_HOST")
		os.Exit(1)
	}

	smtpDispatcher, err := notify.NewSMTPDispatcher(cli.SMTPConfig(cfg))
	if err != nil {
		logger.Error("Failed to initialize SMTP dispatcher", "error", err)
		os.Exit(1)
	}
	mailerWorker := worker.NewMailerWorker(smtpDispatcher, logger)

	// Initialize AMQP client for consuming messages
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := amqpClient.ConsumeReportEmails(ctx, mailerWorker.HandleReportEmail); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	cli.WaitForShutdown(logger, cancel, stopped, worker.DefaultSendTimeout+5*time.Second)

	stats := mailerWorker.Stats()
	logger.Info("Mailer-worker stats",
		"delivered", stats.Delivered,
		"rejected", stats.Rejected,
		"failed", stats.Failed)
}
