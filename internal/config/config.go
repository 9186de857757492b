package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/log"
	"fintrack/internal/scheduler"
)

type Config struct {
	// Database
	SQLiteDBPath string
	ScanPageSize int

	// AMQP. An empty URL sends report emails over SMTP directly.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Insights
	GeminiAPIKey string
	GeminiModel  string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailerSender string

	// Jobs
	RecurringTriggerTime   string
	RecurringTriggerDay    string
	ReportTriggerTime      string
	ReportTriggerDay       string
	RecurringCommitTimeout time.Duration
	ReportCommitTimeout    time.Duration
	BatchConcurrency       int
	RunOnStart             bool

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),
		ScanPageSize: getEnvInt("SCAN_PAGE_SIZE", 100),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "report_emails"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailerSender: getEnv("MAILER_SENDER", "Fintrack <noreply@fintrack.local>"),

		RecurringTriggerTime:   getEnv("RECURRING_TRIGGER_TIME", "00:05"),
		RecurringTriggerDay:    getEnv("RECURRING_TRIGGER_DAY", "*"),
		ReportTriggerTime:      getEnv("REPORT_TRIGGER_TIME", "02:30"),
		ReportTriggerDay:       getEnv("REPORT_TRIGGER_DAY", "1"),
		RecurringCommitTimeout: getEnvDuration("RECURRING_COMMIT_TIMEOUT", 20*time.Second),
		ReportCommitTimeout:    getEnvDuration("REPORT_COMMIT_TIMEOUT", 10*time.Second),
		BatchConcurrency:       getEnvInt("BATCH_CONCURRENCY", 1),
		RunOnStart:             getEnvBool("RUN_ON_START", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// RecurringTrigger is the schedule of the recurring transactions job.
func (c *Config) RecurringTrigger() (scheduler.Trigger, error) {
	return scheduler.ParseTrigger(c.RecurringTriggerTime, c.RecurringTriggerDay)
}

// ReportTrigger is the schedule of the periodic reports job.
func (c *Config) ReportTrigger() (scheduler.Trigger, error) {
	return scheduler.ParseTrigger(c.ReportTriggerTime, c.ReportTriggerDay)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.ScanPageSize < 1 || c.ScanPageSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid scan page size %d: must be between 1 and 10000", c.ScanPageSize))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	} else if c.SMTPHost == "" {
		errors = append(errors, "either AMQP_URL or SMTP_HOST must be provided to deliver reports")
	}

	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
	}
	if _, err := mail.ParseAddress(c.MailerSender); err != nil {
		errors = append(errors, fmt.Sprintf("invalid mailer sender '%s': %v", c.MailerSender, err))
	}
	if c.SMTPPassword != "" && c.SMTPUsername == "" {
		errors = append(errors, "SMTP password set without SMTP username")
	}

	if c.GeminiAPIKey != "" && c.GeminiModel == "" {
		errors = append(errors, "Gemini model cannot be empty when GEMINI_API_KEY is provided")
	}

	if _, err := c.RecurringTrigger(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid recurring trigger: %v", err))
	}
	if _, err := c.ReportTrigger(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid report trigger: %v", err))
	}

	for name, d := range map[string]time.Duration{
		"recurring commit timeout": c.RecurringCommitTimeout,
		"report commit timeout":    c.ReportCommitTimeout,
	} {
		if d < 100*time.Millisecond || d > 10*time.Minute {
			errors = append(errors, fmt.Sprintf("invalid %s %v: must be between 100ms and 10m", name, d))
		}
	}

	if c.BatchConcurrency < 1 || c.BatchConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid batch concurrency %d: must be between 1 and 64", c.BatchConcurrency))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
