// Package scheduler fires batch jobs on fixed UTC time-of-day triggers.
package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidTrigger = errors.New("invalid trigger")

type dayKind int

const (
	everyDay dayKind = iota
	dayOfMonth
	onWeekday
)

// DayRule selects the days a trigger may fire on.
type DayRule struct {
	kind    dayKind
	day     int
	weekday time.Weekday
}

func EveryDay() DayRule {
	return DayRule{kind: everyDay}
}

// DayOfMonth fires on day d only. Months without that day are skipped.
func DayOfMonth(d int) DayRule {
	return DayRule{kind: dayOfMonth, day: d}
}

func OnWeekday(w time.Weekday) DayRule {
	return DayRule{kind: onWeekday, weekday: w}
}

func (r DayRule) matches(t time.Time) bool {
	switch r.kind {
	case dayOfMonth:
		return t.Day() == r.day
	case onWeekday:
		return t.Weekday() == r.weekday
	}
	return true
}

func (r DayRule) String() string {
	switch r.kind {
	case dayOfMonth:
		return "day " + strconv.Itoa(r.day)
	case onWeekday:
		return r.weekday.String()
	}
	return "every day"
}

// ParseDayRule accepts "*" (or empty) for every day, 1-31 for a day of the
// month, or a weekday name such as "mon" or "Monday".
func ParseDayRule(s string) (DayRule, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "*" {
		return EveryDay(), nil
	}
	if d, err := strconv.Atoi(s); err == nil {
		if d < 1 || d > 31 {
			return DayRule{}, fmt.Errorf("%w: day of month %d out of range", ErrInvalidTrigger, d)
		}
		return DayOfMonth(d), nil
	}
	for w := time.Sunday; w <= time.Saturday; w++ {
		name := strings.ToLower(w.String())
		if s == name || s == name[:3] {
			return OnWeekday(w), nil
		}
	}
	return DayRule{}, fmt.Errorf("%w: unknown day rule %q", ErrInvalidTrigger, s)
}

// Trigger is a fixed time of day on the days selected by Day, always in UTC.
type Trigger struct {
	Hour   int
	Minute int
	Day    DayRule
}

// ParseTrigger builds a trigger from "HH:MM" and a day rule.
func ParseTrigger(timeOfDay, day string) (Trigger, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(timeOfDay), ":")
	h, herr := strconv.Atoi(hh)
	m, merr := strconv.Atoi(mm)
	if !ok || herr != nil || merr != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return Trigger{}, fmt.Errorf("%w: time of day %q, want HH:MM", ErrInvalidTrigger, timeOfDay)
	}
	rule, err := ParseDayRule(day)
	if err != nil {
		return Trigger{}, err
	}
	return Trigger{Hour: h, Minute: m, Day: rule}, nil
}

// maxSearchDays bounds the day scan; any valid rule matches well within it.
const maxSearchDays = 4 * 366

// NextFireTime returns the earliest firing strictly after now.
func (t Trigger) NextFireTime(now time.Time) time.Time {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i < maxSearchDays; i++ {
		d := day.AddDate(0, 0, i)
		if !t.Day.matches(d) {
			continue
		}
		at := time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, time.UTC)
		if at.After(now) {
			return at
		}
	}
	return time.Time{}
}

func (t Trigger) String() string {
	return fmt.Sprintf("%02d:%02d UTC, %s", t.Hour, t.Minute, t.Day)
}
