package analytics

import (
	"errors"
	"fmt"
	"time"
)

// Preset names a reporting window relative to now.
type Preset string

const (
	Last30Days  Preset = "last30Days"
	LastMonth   Preset = "lastMonth"
	Last3Months Preset = "last3Months"
	LastYear    Preset = "lastYear"
	ThisMonth   Preset = "thisMonth"
	ThisYear    Preset = "thisYear"
	AllTime     Preset = "allTime"
	Custom      Preset = "custom"
)

var (
	ErrUnknownPreset = errors.New("unknown date range preset")
	ErrInvalidRange  = errors.New("invalid date range")
)

// DateRange is a closed interval [From, To]. Unbounded is set for all-time
// queries, where From and To are zero.
type DateRange struct {
	Preset    Preset
	From      time.Time
	To        time.Time
	Unbounded bool
}

// Resolve turns a preset into concrete UTC bounds. customFrom and customTo are
// only read for Custom.
func Resolve(p Preset, now time.Time, customFrom, customTo time.Time) (DateRange, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	r := DateRange{Preset: p, To: now}
	switch p {
	case Last30Days:
		r.From = today.AddDate(0, 0, -29)
	case LastMonth:
		r.From = monthStart.AddDate(0, -1, 0)
		r.To = endOf(monthStart)
	case Last3Months:
		r.From = monthStart.AddDate(0, -3, 0)
		r.To = endOf(monthStart)
	case LastYear:
		r.From = yearStart.AddDate(-1, 0, 0)
		r.To = endOf(yearStart)
	case ThisMonth:
		r.From = monthStart
	case ThisYear:
		r.From = yearStart
	case AllTime:
		return DateRange{Preset: AllTime, Unbounded: true}, nil
	case Custom:
		if customFrom.IsZero() || customTo.IsZero() {
			return DateRange{}, fmt.Errorf("%w: custom range needs both bounds", ErrInvalidRange)
		}
		if customTo.Before(customFrom) {
			return DateRange{}, fmt.Errorf("%w: %s is after %s", ErrInvalidRange,
				customFrom.Format(time.DateOnly), customTo.Format(time.DateOnly))
		}
		r.From, r.To = customFrom.UTC(), customTo.UTC()
	default:
		return DateRange{}, fmt.Errorf("%w: %q", ErrUnknownPreset, p)
	}
	return r, nil
}

// Previous returns the comparison window. Year-scoped presets shift back one
// calendar year; everything else takes the same length ending just before
// From. All-time has no previous period.
func (r DateRange) Previous() (DateRange, bool) {
	if r.Unbounded {
		return DateRange{}, false
	}
	if r.Preset == ThisYear || r.Preset == LastYear {
		return DateRange{Preset: r.Preset, From: r.From.AddDate(-1, 0, 0), To: r.To.AddDate(-1, 0, 0)}, true
	}
	length := r.To.Sub(r.From)
	to := r.From.Add(-time.Millisecond)
	return DateRange{Preset: r.Preset, From: to.Add(-length), To: to}, true
}

// endOf is the last stored instant before boundary. Timestamps are kept at
// millisecond precision.
func endOf(boundary time.Time) time.Time {
	return boundary.Add(-time.Millisecond)
}
