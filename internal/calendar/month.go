// Package calendar composes the month grid with the event list: the
// visible month and its navigation, and one DayCell per grid day.
package calendar

import (
	"fmt"
	"time"

	"monthcal/internal/grid"
	"monthcal/internal/model"
	"monthcal/internal/overflow"
)

const monthParamLayout = "2006-01"

// Month is the visible month of the grid. It is a value; navigation returns
// a new Month.
type Month struct {
	// First is the 1st of the visible month.
	First     model.Date
	WeekStart time.Weekday
	Now       func() time.Time
}

// NewMonth shows the month containing today.
func NewMonth(weekStart time.Weekday, now func() time.Time) Month {
	if now == nil {
		now = time.Now
	}
	return Month{
		First:     firstOf(model.DateOf(now())),
		WeekStart: weekStart,
		Now:       now,
	}
}

// ParseMonth reads "YYYY-MM".
func ParseMonth(s string) (model.Date, error) {
	t, err := time.ParseInLocation(monthParamLayout, s, time.Local)
	if err != nil {
		return model.Date{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return model.DateOf(t), nil
}

// Show returns the month containing d.
func (m Month) Show(d model.Date) Month {
	m.First = firstOf(d)
	return m
}

func (m Month) Next() Month {
	return m.Show(model.NewDate(m.First.Year, m.First.Month+1, 1))
}

func (m Month) Previous() Month {
	return m.Show(model.NewDate(m.First.Year, m.First.Month-1, 1))
}

// Today jumps back to the month containing today.
func (m Month) Today() Month {
	return m.Show(model.DateOf(m.Now()))
}

// Title is the long month name with a two-digit year, e.g. "March 24".
func (m Month) Title() string {
	return m.First.Time().Format("January 06")
}

// Param is the "YYYY-MM" form used in URLs.
func (m Month) Param() string {
	return m.First.Time().Format(monthParamLayout)
}

// Cells builds the grid for the visible month.
func (m Month) Cells() []grid.Cell {
	return grid.Build(m.First, m.WeekStart, m.Now())
}

// Days builds one DayCell per grid cell over events. When size is non-zero
// every cell's list is resized to it right away.
func (m Month) Days(events []model.Event, opts CellOptions, size overflow.Size) []*DayCell {
	cells := m.Cells()
	days := make([]*DayCell, len(cells))
	for i, c := range cells {
		days[i] = NewDayCell(c, i, events, opts)
		if size != (overflow.Size{}) {
			days[i].List.Resize(size)
		}
	}
	return days
}

func firstOf(d model.Date) model.Date {
	return model.NewDate(d.Year, d.Month, 1)
}
