package core

import (
	"fmt"
	"time"
)

// reportLeadMonths is how many calendar months past the anchor the next
// report is scheduled.
const reportLeadMonths = 2

// NextOccurrence advances anchor by exactly one interval unit. Time of day and
// location are preserved; month and year steps clamp to the last valid day of
// the target month (Jan 31 + 1 month = Feb 28 or 29).
func NextOccurrence(anchor time.Time, interval RecurringInterval) (time.Time, error) {
	return AdvanceOccurrence(anchor, interval, 1)
}

// AdvanceOccurrence advances anchor by n interval units in a single step.
func AdvanceOccurrence(anchor time.Time, interval RecurringInterval, n int) (time.Time, error) {
	switch interval {
	case Daily:
		return anchor.AddDate(0, 0, n), nil
	case Weekly:
		return anchor.AddDate(0, 0, 7*n), nil
	case Monthly:
		return addMonthsClamped(anchor, n), nil
	case Yearly:
		return addMonthsClamped(anchor, 12*n), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
	}
}

// InitialNextRecurringDate is the first due date of a new template dated at
// date. If one interval after date is already in the past the schedule is
// re-anchored on now instead of back-filling missed occurrences.
func InitialNextRecurringDate(date time.Time, interval RecurringInterval, now time.Time) (time.Time, error) {
	next, err := NextOccurrence(date, interval)
	if err != nil {
		return time.Time{}, err
	}
	if next.Before(now) {
		return NextOccurrence(now, interval)
	}
	return next, nil
}

// NextReportDate returns 00:00 UTC on the first day of the month two months
// after lastSent, or after now when nothing was sent yet.
func NextReportDate(lastSent *time.Time, now time.Time) time.Time {
	anchor := now
	if lastSent != nil && !lastSent.IsZero() {
		anchor = *lastSent
	}
	anchor = anchor.UTC()
	return time.Date(anchor.Year(), anchor.Month()+reportLeadMonths, 1, 0, 0, 0, 0, time.UTC)
}

// ReportingPeriod returns the calendar month preceding now as an inclusive
// range: the first instant of the month and the last nanosecond of it.
func ReportingPeriod(now time.Time) (from, to time.Time) {
	now = now.UTC()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from = thisMonth.AddDate(0, -1, 0)
	to = thisMonth.Add(-time.Nanosecond)
	return from, to
}

// PeriodLabel renders a range as "April 1 - 30, 2025".
func PeriodLabel(from, to time.Time) string {
	return from.Format("January 2") + " - " + to.Format("2, 2006")
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); d > last {
		d = last
	}
	h, mi, s := t.Clock()
	return time.Date(first.Year(), first.Month(), d, h, mi, s, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
