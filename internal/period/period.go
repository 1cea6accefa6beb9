// Package period turns report queries into concrete date ranges.
package period

import (
	"fmt"
	"time"

	"github.com/lox/chat-ledger/internal/parser"
	"github.com/lox/chat-ledger/internal/types"
)

// Range is an inclusive span of time
type Range struct {
	Type  types.ReportType
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Resolve returns the range q selects, relative to now. Nil fields take the
// value of the current period, and an empty type means today.
func Resolve(q types.ReportQuery, now time.Time) (Range, error) {
	kind := q.Type
	if kind == "" {
		kind = types.ReportTypeDaily
	}

	year, month, day := now.Date()
	if q.Year != nil {
		year = *q.Year
	}
	if q.Month != nil {
		month = time.Month(*q.Month)
	}
	if q.Day != nil {
		day = *q.Day
	}

	if year < 1 {
		return Range{}, parser.Errorf(parser.CodeUnsupportedFilter, "Unsupported year: %d", year)
	}

	loc := now.Location()
	switch kind {
	case types.ReportTypeDaily:
		if month < time.January || month > time.December {
			return Range{}, parser.Errorf(parser.CodeUnsupportedFilter, "Unsupported month: %d", month)
		}
		if day < 1 || day > daysIn(year, month) {
			return Range{}, parser.Errorf(parser.CodeUnsupportedFilter, "Unsupported day: %d", day)
		}
		start := time.Date(year, month, day, 0, 0, 0, 0, loc)
		return Range{Type: kind, Start: start, End: start.AddDate(0, 0, 1).Add(-time.Nanosecond)}, nil

	case types.ReportTypeMonthly:
		if month < time.January || month > time.December {
			return Range{}, parser.Errorf(parser.CodeUnsupportedFilter, "Unsupported month: %d", month)
		}
		start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		return Range{Type: kind, Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}, nil

	case types.ReportTypeYearly:
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		return Range{Type: kind, Start: start, End: start.AddDate(1, 0, 0).Add(-time.Nanosecond)}, nil
	}

	return Range{}, parser.Errorf(parser.CodeUnsupportedFilter, "Unsupported type: %s", kind)
}

// Label renders the period of r the way reports show it
func (r Range) Label() string {
	switch r.Type {
	case types.ReportTypeMonthly:
		return r.Start.Format("01/2006")
	case types.ReportTypeYearly:
		return r.Start.Format("2006")
	default:
		return r.Start.Format("02/01/2006")
	}
}

// Label resolves q and renders its period
func Label(q types.ReportQuery, now time.Time) (string, error) {
	r, err := Resolve(q, now)
	if err != nil {
		return "", fmt.Errorf("resolving period: %w", err)
	}
	return r.Label(), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
