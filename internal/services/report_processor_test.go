package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type reportFixture struct {
	repo    *storage.SQLiteRepository
	userID  string
	setting core.ReportSetting
}

func newReportFixture(t *testing.T, withUser bool, lastSent *time.Time) reportFixture {
	t.Helper()
	repo := newRepo(t)
	ctx := context.Background()
	f := reportFixture{repo: repo, userID: "user-1"}

	if withUser {
		if err := repo.CreateUser(ctx, core.User{ID: f.userID, Name: "Ada", Email: "ada@example.com"}, reportNow); err != nil {
			t.Fatal(err)
		}
	}
	due := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	f.setting = core.ReportSetting{ID: "setting-1", UserID: f.userID, IsEnabled: true,
		Frequency: core.FrequencyMonthly, LastSentDate: lastSent, NextReportDate: &due}
	if err := repo.CreateReportSetting(ctx, f.setting, due.AddDate(0, -2, 0)); err != nil {
		t.Fatal(err)
	}
	return f
}

func (f reportFixture) addApril(t *testing.T) {
	t.Helper()
	entries := []core.Transaction{
		{ID: "in", Title: "Salary", Amount: core.Cents(500000), Type: core.Income, Category: "Work", Date: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)},
		{ID: "rent", Title: "Rent", Amount: core.Cents(-200000), Type: core.Expense, Category: "Housing", Date: time.Date(2025, 4, 3, 9, 0, 0, 0, time.UTC)},
		{ID: "food", Title: "Food", Amount: core.Cents(100000), Type: core.Expense, Category: "Food", Date: time.Date(2025, 4, 30, 23, 59, 0, 0, time.UTC)},
		{ID: "may", Title: "Later", Amount: core.Cents(999), Type: core.Expense, Category: "Food", Date: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, e := range entries {
		e.UserID, e.CreatedAt, e.UpdatedAt = f.userID, e.Date, e.Date
		if err := f.repo.CreateTransaction(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}
}

func (f reportFixture) reports(t *testing.T) []core.Report {
	t.Helper()
	reports, _, err := f.repo.ListReports(context.Background(), f.userID, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	return reports
}

func (f reportFixture) stored(t *testing.T) core.ReportSetting {
	t.Helper()
	s, err := f.repo.GetReportSetting(context.Background(), f.userID)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

var nextCycle = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func TestReportProcessor_Sent(t *testing.T) {
	f := newReportFixture(t, true, nil)
	f.addApril(t)
	d := &fakeDispatcher{}

	summary, err := newReportProcessor(f.repo, d).Process(context.Background(), reportNow)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Succeeded != 1 || summary.Details[string(core.ReportSent)] != 1 {
		t.Fatalf("summary = %s %v", summary, summary.Details)
	}

	if d.count() != 1 {
		t.Fatalf("dispatched %d", d.count())
	}
	n := d.sent[0]
	if n.Email != "ada@example.com" || n.Period != "April 1 - 30, 2025" || n.Frequency != "Monthly" {
		t.Errorf("notification = %+v", n)
	}
	if n.TotalIncome != 5000 || n.TotalExpenses != 3000 || n.Balance != 2000 || n.SavingsRate != 40 {
		t.Errorf("totals = %+v", n)
	}
	if len(n.Insights) != 1 || len(n.TopCategories) != 2 || n.TopCategories[0].Name != "Housing" {
		t.Errorf("insights %v categories %v", n.Insights, n.TopCategories)
	}

	reports := f.reports(t)
	if len(reports) != 1 || reports[0].Status != core.ReportSent || reports[0].Period != "April 1 - 30, 2025" {
		t.Fatalf("reports = %+v", reports)
	}
	s := f.stored(t)
	if s.LastSentDate == nil || !s.LastSentDate.Equal(reportNow) {
		t.Errorf("last sent = %v", s.LastSentDate)
	}
	if !s.NextReportDate.Equal(nextCycle) {
		t.Errorf("next = %v, want %v", s.NextReportDate, nextCycle)
	}
}

func TestReportProcessor_DeliveryFailureStillAdvances(t *testing.T) {
	prevSent := time.Date(2025, 3, 1, 2, 30, 0, 0, time.UTC)
	f := newReportFixture(t, true, &prevSent)
	f.addApril(t)
	d := &fakeDispatcher{err: errors.New("smtp: 421 service not available")}

	summary, err := newReportProcessor(f.repo, d).Process(context.Background(), reportNow)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Details[string(core.ReportFailed)] != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %s %v", summary, summary.Details)
	}
	if r := f.reports(t); len(r) != 1 || r[0].Status != core.ReportFailed {
		t.Fatalf("reports = %+v", r)
	}
	s := f.stored(t)
	if s.LastSentDate == nil || !s.LastSentDate.Equal(prevSent) {
		t.Errorf("last sent changed to %v", s.LastSentDate)
	}
	if !s.NextReportDate.Equal(nextCycle) {
		t.Errorf("next = %v", s.NextReportDate)
	}
}

func TestReportProcessor_NoActivity(t *testing.T) {
	f := newReportFixture(t, true, nil)
	d := &fakeDispatcher{}

	summary, err := newReportProcessor(f.repo, d).Process(context.Background(), reportNow)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Details[string(core.ReportNoActivity)] != 1 {
		t.Fatalf("summary = %s %v", summary, summary.Details)
	}
	if d.count() != 0 {
		t.Error("nothing should be delivered without activity")
	}
	if r := f.reports(t); len(r) != 1 || r[0].Status != core.ReportNoActivity {
		t.Fatalf("reports = %+v", r)
	}
	s := f.stored(t)
	if s.LastSentDate != nil {
		t.Errorf("last sent = %v, want unchanged nil", s.LastSentDate)
	}
	if !s.NextReportDate.Equal(nextCycle) {
		t.Errorf("next = %v", s.NextReportDate)
	}
}

func TestReportProcessor_MissingUserFails(t *testing.T) {
	f := newReportFixture(t, false, nil)
	f.addApril(t)
	d := &fakeDispatcher{}

	summary, err := newReportProcessor(f.repo, d).Process(context.Background(), reportNow)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 || summary.Skipped != 0 || summary.Scanned != 1 {
		t.Fatalf("summary = %s", summary)
	}
	if len(summary.Problems) != 1 || !errors.Is(summary.Problems[0].Err, core.ErrNotFound) {
		t.Errorf("problems = %v", summary.Problems)
	}
	if len(f.reports(t)) != 0 || d.count() != 0 {
		t.Error("a setting without an owner must not write or send anything")
	}
	if s := f.stored(t); !s.NextReportDate.Equal(*f.setting.NextReportDate) {
		t.Errorf("next = %v", s.NextReportDate)
	}
}

func TestReportProcessor_Idempotent(t *testing.T) {
	f := newReportFixture(t, true, nil)
	f.addApril(t)
	d := &fakeDispatcher{}
	p := newReportProcessor(f.repo, d)

	if _, err := p.Process(context.Background(), reportNow); err != nil {
		t.Fatal(err)
	}
	before := f.stored(t)

	summary, err := p.Process(context.Background(), reportNow.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if summary.Scanned != 0 {
		t.Errorf("rerun scanned %d", summary.Scanned)
	}
	if len(f.reports(t)) != 1 || d.count() != 1 {
		t.Error("rerun must not write or send")
	}
	if after := f.stored(t); !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("setting mutated: %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}
}

func TestReportProcessor_CommitFailureLeavesNoTrace(t *testing.T) {
	f := newReportFixture(t, true, nil)
	f.addApril(t)
	mustExec(t, f.repo, `CREATE TRIGGER fail_settings BEFORE UPDATE ON report_settings
		BEGIN SELECT RAISE(ABORT, 'forced commit failure'); END`)

	summary, err := newReportProcessor(f.repo, &fakeDispatcher{}).Process(context.Background(), reportNow)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Failed != 1 {
		t.Fatalf("summary = %s", summary)
	}
	if len(f.reports(t)) != 0 {
		t.Error("audit record must roll back with the setting update")
	}
	if s := f.stored(t); !s.NextReportDate.Equal(*f.setting.NextReportDate) || s.LastSentDate != nil {
		t.Errorf("setting changed: %+v", s)
	}
}

func TestReportGenerator_NoActivityIsNil(t *testing.T) {
	repo := newRepo(t)
	gen := NewReportGenerator(analyticsFor(repo), nil)
	from, to := core.ReportingPeriod(reportNow)

	got, err := gen.Generate(context.Background(), "nobody", from, to)
	if err != nil || got != nil {
		t.Errorf("Generate() = %v, %v", got, err)
	}
}
