package calendar

import (
	"fmt"
	"sort"

	"monthcal/internal/grid"
	"monthcal/internal/model"
	"monthcal/internal/overflow"
)

// EventsOn returns the events that fall on date, sorted for display.
func EventsOn(events []model.Event, date model.Date) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range events {
		if ev.Date == date {
			out = append(out, ev)
		}
	}
	SortEvents(out)
	return out
}

// SortEvents orders all-day events first, then timed events by start time
// ("HH:MM", compared as strings). The sort is stable, so all-day events
// and timed events with equal starts keep insertion order.
func SortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, aTimed := events[i].Times()
		b, bTimed := events[j].Times()
		switch {
		case !aTimed && bTimed:
			return true
		case aTimed && !bTimed:
			return false
		case !aTimed && !bTimed:
			return false
		default:
			return a.Start.String() < b.Start.String()
		}
	})
}

// Label is the one-line text for an event: "9:30AM Review" or "Standup".
func Label(ev model.Event) string {
	if t, ok := ev.Times(); ok {
		return t.Start.Kitchen() + " " + ev.Title
	}
	return ev.Title
}

// MoreLabel is the overflow indicator text.
func MoreLabel(hidden int) string {
	return fmt.Sprintf("+%d", hidden)
}

// CellOptions configures how a day's event list is laid out and rendered.
type CellOptions struct {
	Layout         overflow.Layout[model.Event]
	RenderItem     func(model.Event) string
	RenderOverflow func(int) string
}

func (o CellOptions) withDefaults() CellOptions {
	if o.Layout == nil {
		o.Layout = overflow.Fixed[model.Event](1, 0)
	}
	if o.RenderItem == nil {
		o.RenderItem = Label
	}
	if o.RenderOverflow == nil {
		o.RenderOverflow = MoreLabel
	}
	return o
}

// DayCell is one rendered day: header data plus the day's events behind an
// overflow list.
type DayCell struct {
	grid.Cell
	// Index is the position in the grid; the first row shows weekday names.
	Index  int
	Events []model.Event
	List   *overflow.List[model.Event]
}

// NewDayCell filters and sorts events for the cell and wraps them in an
// overflow list.
func NewDayCell(cell grid.Cell, index int, events []model.Event, opts CellOptions) *DayCell {
	opts = opts.withDefaults()
	day := EventsOn(events, cell.Date)

	list := overflow.New(opts.Layout, opts.RenderItem, opts.RenderOverflow)
	list.SetItems(day)

	return &DayCell{
		Cell:   cell,
		Index:  index,
		Events: day,
		List:   list,
	}
}

// ShowWeekday reports whether the cell sits in the first grid row.
func (d *DayCell) ShowWeekday() bool {
	return d.Index < 7
}

// WeekdayName is the abbreviated weekday, e.g. "Tue".
func (d *DayCell) WeekdayName() string {
	return d.Date.Weekday().String()[:3]
}

// DayNumber is the day of month.
func (d *DayCell) DayNumber() int {
	return d.Date.Day
}
