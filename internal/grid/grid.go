// Package grid builds the month grid: whole weeks from the week containing
// the 1st through the week containing the last day of the month.
package grid

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

// Cell is one day of the grid.
type Cell struct {
	Date model.Date
	// InMonth is false for the leading and trailing days borrowed from the
	// neighbouring months.
	InMonth bool
	// Past is set once the whole day lies before the reference instant.
	Past bool
}

// Dates returns the grid days for the month containing month. The result
// always has a multiple of 7 entries and starts on weekStart.
func Dates(month model.Date, weekStart time.Weekday) []model.Date {
	first := model.NewDate(month.Year, month.Month, 1)
	last := model.NewDate(month.Year, month.Month+1, 0)

	start := first.AddDays(-daysBetween(weekStart, first.Weekday()))
	end := last.AddDays(daysBetween(last.Weekday(), weekEnd(weekStart)))

	return eachDay(start, end)
}

// Build returns the grid cells for the month containing month. now is the
// wall clock, not the visible month: a day is past once it has ended.
func Build(month model.Date, weekStart time.Weekday, now time.Time) []Cell {
	dates := Dates(month, weekStart)
	cells := make([]Cell, len(dates))
	for i, d := range dates {
		cells[i] = Cell{
			Date:    d,
			InMonth: d.SameMonth(month),
			Past:    d.EndOfDay().Before(now),
		}
	}
	return cells
}

// Weeks splits grid-ordered items into rows of seven.
func Weeks[T any](cells []T) [][]T {
	rows := make([][]T, 0, len(cells)/7)
	for i := 0; i+7 <= len(cells); i += 7 {
		rows = append(rows, cells[i:i+7])
	}
	return rows
}

// WeekdayNames returns abbreviated day names ("Sun", "Mon", ...) in grid
// column order.
func WeekdayNames(weekStart time.Weekday) []string {
	names := make([]string, 7)
	for i := range names {
		names[i] = ((weekStart + time.Weekday(i)) % 7).String()[:3]
	}
	return names
}

// ParseWeekStart maps "sunday"/"monday" to a weekday. Anything else is
// Sunday.
func ParseWeekStart(s string) time.Weekday {
	if s == "monday" {
		return time.Monday
	}
	return time.Sunday
}

func weekEnd(weekStart time.Weekday) time.Weekday {
	return (weekStart + 6) % 7
}

// daysBetween counts forward steps from a to b within one week.
func daysBetween(a, b time.Weekday) int {
	return (int(b) - int(a) + 7) % 7
}

func eachDay(start, end model.Date) []model.Date {
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: noon(start),
		Until:   noon(end),
	})
	if err != nil {
		appLog.Error("grid: daily rule rejected, stepping manually", err, "start", start, "end", end)
		var out []model.Date
		for d := start; !d.After(end); d = d.AddDays(1) {
			out = append(out, d)
		}
		return out
	}

	times := rule.All()
	out := make([]model.Date, len(times))
	for i, t := range times {
		out[i] = model.DateOf(t.In(time.Local))
	}
	return out
}

// noon anchors a day away from midnight, which some zones skip when DST
// starts.
func noon(d model.Date) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.Local)
}
