package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
)

var (
	testNow  = time.Date(2025, 5, 1, 0, 5, 0, 0, time.UTC)
	testPast = time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)
)

func newTestRepo(t *testing.T, opts ...Option) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"), opts...)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func recurringTx(id string, next time.Time) core.Transaction {
	return core.Transaction{
		ID:                id,
		UserID:            "user-1",
		Title:             "Gym",
		Amount:            core.Cents(4500),
		Type:              core.Expense,
		Category:          "Health",
		PaymentMethod:     core.PaymentCard,
		Date:              next.AddDate(0, -1, 0),
		IsRecurring:       true,
		RecurringInterval: core.Monthly,
		NextRecurringDate: &next,
		CreatedAt:         testPast,
		UpdatedAt:         testPast,
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	want := recurringTx("tx-1", testPast)
	if err := repo.CreateTransaction(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != want.Title || got.Amount != want.Amount || got.RecurringInterval != core.Monthly {
		t.Errorf("got %+v", got)
	}
	if got.NextRecurringDate == nil || !got.NextRecurringDate.Equal(testPast) {
		t.Errorf("next recurring date = %v", got.NextRecurringDate)
	}
	if got.LastProcessed != nil {
		t.Errorf("last processed should be nil, got %v", got.LastProcessed)
	}

	if _, err := repo.GetTransaction(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDueRecurringTransactions_Pages(t *testing.T) {
	repo := newTestRepo(t, WithPageSize(2))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.CreateTransaction(ctx, recurringTx(fmt.Sprintf("due-%d", i), testPast)); err != nil {
			t.Fatal(err)
		}
	}
	future := testNow.Add(time.Hour)
	if err := repo.CreateTransaction(ctx, recurringTx("future", future)); err != nil {
		t.Fatal(err)
	}
	plain := recurringTx("plain", testPast)
	plain.IsRecurring, plain.RecurringInterval, plain.NextRecurringDate = false, "", nil
	if err := repo.CreateTransaction(ctx, plain); err != nil {
		t.Fatal(err)
	}

	cur := repo.DueRecurringTransactions(testNow)
	var ids []string
	for cur.Next(ctx) {
		ids = append(ids, cur.Value().ID)
	}
	if err := cur.Err(); err != nil {
		t.Fatal(err)
	}
	if len(ids) != 5 || cur.Fetched() != 5 {
		t.Fatalf("got %v", ids)
	}
	for i, id := range ids {
		if id != fmt.Sprintf("due-%d", i) {
			t.Errorf("ids[%d] = %s", i, id)
		}
	}
}

func TestCursor_CancelledContext(t *testing.T) {
	repo := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cur := repo.DueRecurringTransactions(testNow)
	if cur.Next(ctx) {
		t.Fatal("Next should fail on a cancelled context")
	}
	if !errors.Is(cur.Err(), context.Canceled) {
		t.Fatalf("Err() = %v", cur.Err())
	}
}

func TestMaterializeRecurrence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tmpl := recurringTx("tmpl", testPast)
	if err := repo.CreateTransaction(ctx, tmpl); err != nil {
		t.Fatal(err)
	}
	next := testPast.AddDate(0, 1, 0)
	inst := tmpl.Materialize("inst", testNow)

	if err := repo.MaterializeRecurrence(ctx, tmpl, inst, next, testNow); err != nil {
		t.Fatalf("MaterializeRecurrence() error = %v", err)
	}

	got, err := repo.GetTransaction(ctx, "tmpl")
	if err != nil {
		t.Fatal(err)
	}
	if !got.NextRecurringDate.Equal(next) || got.LastProcessed == nil || !got.LastProcessed.Equal(testNow) {
		t.Errorf("template not advanced: %+v", got)
	}
	if _, err := repo.GetTransaction(ctx, "inst"); err != nil {
		t.Errorf("instance missing: %v", err)
	}

	// Replaying the same scan result must not fire twice.
	again := tmpl.Materialize("inst-2", testNow)
	if err := repo.MaterializeRecurrence(ctx, tmpl, again, next, testNow); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if _, err := repo.GetTransaction(ctx, "inst-2"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("stale replay left an instance behind: %v", err)
	}
}

func TestMaterializeRecurrence_RollsBackOnFailure(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tmpl := recurringTx("tmpl", testPast)
	if err := repo.CreateTransaction(ctx, tmpl); err != nil {
		t.Fatal(err)
	}
	_, err := repo.DB().ExecContext(ctx, `CREATE TRIGGER fail_advance BEFORE UPDATE ON transactions
		BEGIN SELECT RAISE(ABORT, 'forced failure'); END`)
	if err != nil {
		t.Fatal(err)
	}

	inst := tmpl.Materialize("inst", testNow)
	if err := repo.MaterializeRecurrence(ctx, tmpl, inst, testPast.AddDate(0, 1, 0), testNow); err == nil {
		t.Fatal("expected forced failure")
	}

	n, err := repo.CountTransactions(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("instance insert was not rolled back: %d rows", n)
	}
	got, _ := repo.GetTransaction(ctx, "tmpl")
	if !got.NextRecurringDate.Equal(testPast) || got.LastProcessed != nil {
		t.Errorf("template changed: %+v", got)
	}
}

func TestMaterializeRecurrence_ExpiredDeadline(t *testing.T) {
	repo := newTestRepo(t)
	tmpl := recurringTx("tmpl", testPast)
	if err := repo.CreateTransaction(context.Background(), tmpl); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	inst := tmpl.Materialize("inst", testNow)
	if err := repo.MaterializeRecurrence(ctx, tmpl, inst, testPast.AddDate(0, 1, 0), testNow); err == nil {
		t.Fatal("expected deadline error")
	}
	if n, _ := repo.CountTransactions(context.Background(), "user-1"); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestDueReportSettings_JoinsUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateUser(ctx, core.User{ID: "u1", Name: "Ada", Email: "ada@example.com"}, testPast); err != nil {
		t.Fatal(err)
	}
	due := testPast
	settings := []core.ReportSetting{
		{ID: "s1", UserID: "u1", IsEnabled: true, Frequency: core.FrequencyMonthly, NextReportDate: &due},
		{ID: "s2", UserID: "ghost", IsEnabled: true, Frequency: core.FrequencyMonthly, NextReportDate: &due},
		{ID: "s3", UserID: "u3", IsEnabled: false, Frequency: core.FrequencyMonthly, NextReportDate: &due},
	}
	for _, s := range settings {
		if err := repo.CreateReportSetting(ctx, s, testPast); err != nil {
			t.Fatal(err)
		}
	}

	cur := repo.DueReportSettings(testNow)
	var got []DueReportSetting
	for cur.Next(ctx) {
		got = append(got, cur.Value())
	}
	if err := cur.Err(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d due settings", len(got))
	}
	if got[0].User == nil || got[0].User.Email != "ada@example.com" {
		t.Errorf("s1 user not resolved: %+v", got[0])
	}
	if got[1].User != nil {
		t.Errorf("s2 user should be nil, got %+v", got[1].User)
	}
}

func TestRecordReportOutcome(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sent := time.Date(2025, 3, 1, 2, 30, 0, 0, time.UTC)
	due := testPast
	s := core.ReportSetting{ID: "s1", UserID: "u1", IsEnabled: true, Frequency: core.FrequencyMonthly,
		LastSentDate: &sent, NextReportDate: &due}
	if err := repo.CreateReportSetting(ctx, s, testPast); err != nil {
		t.Fatal(err)
	}

	next := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	err := repo.RecordReportOutcome(ctx, ReportOutcome{
		Report:         core.Report{ID: "r1", UserID: "u1", SentDate: testNow, Period: "April 1 - 30, 2025", Status: core.ReportFailed},
		SettingID:      "s1",
		NextReportDate: next,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetReportSetting(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.LastSentDate == nil || !got.LastSentDate.Equal(sent) {
		t.Errorf("last sent should be kept, got %v", got.LastSentDate)
	}
	if !got.NextReportDate.Equal(next) {
		t.Errorf("next report = %v", got.NextReportDate)
	}

	reports, total, err := repo.ListReports(ctx, "u1", 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || reports[0].Status != core.ReportFailed || reports[0].Period != "April 1 - 30, 2025" {
		t.Errorf("reports = %+v, total %d", reports, total)
	}

	// Unknown setting rolls back the audit record as well.
	err = repo.RecordReportOutcome(ctx, ReportOutcome{
		Report:    core.Report{ID: "r2", UserID: "u1", SentDate: testNow, Period: "x", Status: core.ReportSent},
		SettingID: "missing",
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, total, _ := repo.ListReports(ctx, "u1", 20, 0); total != 1 {
		t.Errorf("total = %d after failed outcome", total)
	}
}
