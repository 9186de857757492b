package services

import (
	"fmt"
	"sync"
	"time"
)

// OutcomeKind classifies how one entity of a batch ended.
type OutcomeKind string

const (
	OutcomeSucceeded OutcomeKind = "succeeded"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome is the result of processing one entity. Reason explains a skip, Err
// a failure and Detail carries a success label such as a report status.
type Outcome struct {
	EntityID string
	Kind     OutcomeKind
	Detail   string
	Reason   string
	Err      error
}

func succeeded(id, detail string) Outcome {
	return Outcome{EntityID: id, Kind: OutcomeSucceeded, Detail: detail}
}

func skipped(id, reason string) Outcome {
	return Outcome{EntityID: id, Kind: OutcomeSkipped, Reason: reason}
}

func failed(id string, err error) Outcome {
	return Outcome{EntityID: id, Kind: OutcomeFailed, Err: err}
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSkipped:
		return fmt.Sprintf("%s skipped: %s", o.EntityID, o.Reason)
	case OutcomeFailed:
		return fmt.Sprintf("%s failed: %v", o.EntityID, o.Err)
	}
	return fmt.Sprintf("%s succeeded", o.EntityID)
}

// maxRecordedOutcomes bounds the failures and skips kept for inspection.
const maxRecordedOutcomes = 100

// BatchSummary aggregates the outcomes of one processor run.
type BatchSummary struct {
	Job       string
	StartedAt time.Time
	Duration  time.Duration
	Scanned   int
	Succeeded int
	Skipped   int
	Failed    int
	// Details counts successes per Detail label.
	Details map[string]int
	// Problems keeps the first skipped and failed outcomes.
	Problems []Outcome
}

func (s BatchSummary) String() string {
	return fmt.Sprintf("%s: scanned=%d succeeded=%d skipped=%d failed=%d in %s",
		s.Job, s.Scanned, s.Succeeded, s.Skipped, s.Failed, s.Duration.Round(time.Millisecond))
}

// batch collects outcomes from concurrent entity workers.
type batch struct {
	mu      sync.Mutex
	summary BatchSummary
}

func newBatch(job string, started time.Time) *batch {
	return &batch{summary: BatchSummary{Job: job, StartedAt: started, Details: map[string]int{}}}
}

func (b *batch) add(o Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.summary.Scanned++
	switch o.Kind {
	case OutcomeSucceeded:
		b.summary.Succeeded++
		if o.Detail != "" {
			b.summary.Details[o.Detail]++
		}
		return
	case OutcomeSkipped:
		b.summary.Skipped++
	case OutcomeFailed:
		b.summary.Failed++
	}
	if len(b.summary.Problems) < maxRecordedOutcomes {
		b.summary.Problems = append(b.summary.Problems, o)
	}
}

func (b *batch) finish(end time.Time) BatchSummary {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.summary.Duration = end.Sub(b.summary.StartedAt)
	return b.summary
}
