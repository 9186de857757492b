package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/core"
	"fintrack/internal/notify"
	"fintrack/internal/storage"
)

var (
	// Trigger times of the default schedules for the May 2025 cycle.
	recurringNow = time.Date(2025, 5, 1, 0, 5, 0, 0, time.UTC)
	reportNow    = time.Date(2025, 5, 1, 2, 30, 0, 0, time.UTC)
)

func newRepo(t *testing.T, opts ...storage.Option) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"), opts...)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sequentialIDs(prefix string) func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("%s-%d", prefix, n.Add(1)) }
}

func mustExec(t *testing.T, repo *storage.SQLiteRepository, query string) {
	t.Helper()
	if _, err := repo.DB().Exec(query); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

type fakeDispatcher struct {
	mu   sync.Mutex
	err  error
	sent []notify.Notification
}

func (d *fakeDispatcher) Send(_ context.Context, n notify.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	return d.err
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

type fakeInsights []string

func (f fakeInsights) Generate(context.Context, core.PeriodSummary, string) []string {
	return f
}

func newReportProcessor(repo *storage.SQLiteRepository, d notify.Dispatcher, opts ...ProcessorOption) *ReportProcessor {
	gen := NewReportGenerator(analytics.NewService(repo), fakeInsights{"Spending is under control."})
	return NewReportProcessor(repo, gen, d, append([]ProcessorOption{WithIDGenerator(sequentialIDs("report"))}, opts...)...)
}

func analyticsFor(repo *storage.SQLiteRepository) *analytics.Service {
	return analytics.NewService(repo)
}
