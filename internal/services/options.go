package services

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultRecurringCommitTimeout = 20 * time.Second
	DefaultReportCommitTimeout    = 10 * time.Second
)

type processorOptions struct {
	commitTimeout time.Duration
	concurrency   int
	newID         func() string
}

// ProcessorOption customizes a batch processor.
type ProcessorOption func(*processorOptions)

// WithCommitTimeout bounds each entity's atomic write, commit included.
func WithCommitTimeout(d time.Duration) ProcessorOption {
	return func(o *processorOptions) {
		if d > 0 {
			o.commitTimeout = d
		}
	}
}

// WithConcurrency sets how many entities are processed at once. Default 1.
func WithConcurrency(n int) ProcessorOption {
	return func(o *processorOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithIDGenerator replaces the UUID generator for new records.
func WithIDGenerator(fn func() string) ProcessorOption {
	return func(o *processorOptions) {
		if fn != nil {
			o.newID = fn
		}
	}
}

func buildOptions(commitTimeout time.Duration, opts []ProcessorOption) processorOptions {
	o := processorOptions{
		commitTimeout: commitTimeout,
		concurrency:   1,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
