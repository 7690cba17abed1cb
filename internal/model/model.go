package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidColor  = errors.New("invalid color")
	ErrInvalidClock  = errors.New("invalid clock time")
	ErrInvalidDate   = errors.New("invalid date")
	ErrMissingTiming = errors.New("timed event needs both start and end")
)

// Color is one entry of the fixed event palette.
type Color string

const (
	ColorRed   Color = "red"
	ColorGreen Color = "green"
	ColorBlue  Color = "blue"
)

// Colors is the palette in display order. The first entry is the default
// for new events.
var Colors = []Color{ColorRed, ColorGreen, ColorBlue}

// ParseColor accepts a palette name, case-insensitively.
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Colors {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidColor, s)
}

// Timing is either AllDay or Timed. The unexported marker keeps the set of
// variants closed to this package.
type Timing interface {
	isTiming()
}

// AllDay spans the whole day and carries no clock times.
type AllDay struct{}

// Timed runs from Start to End on the event's date.
type Timed struct {
	Start Clock
	End   Clock
}

func (AllDay) isTiming() {}
func (Timed) isTiming()  {}

// NewTimed parses both "HH:MM" values. Both are required.
func NewTimed(start, end string) (Timed, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return Timed{}, ErrMissingTiming
	}
	s, err := ParseClock(start)
	if err != nil {
		return Timed{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Timed{}, err
	}
	return Timed{Start: s, End: e}, nil
}

// EventInput is an event before the store assigns it an id.
type EventInput struct {
	Title  string
	Color  Color
	Date   Date
	Timing Timing
}

// Event is a stored calendar entry. ID is assigned once by the store and
// never changes.
type Event struct {
	ID     string
	Title  string
	Color  Color
	Date   Date
	Timing Timing
}

// WithID turns an input into a stored event.
func (in EventInput) WithID(id string) Event {
	return Event{
		ID:     id,
		Title:  in.Title,
		Color:  in.Color,
		Date:   in.Date,
		Timing: in.Timing,
	}
}

// Input strips the id.
func (e Event) Input() EventInput {
	return EventInput{
		Title:  e.Title,
		Color:  e.Color,
		Date:   e.Date,
		Timing: e.Timing,
	}
}

// AllDay reports whether the event has no clock times. A nil Timing is
// treated as all-day.
func (e Event) AllDay() bool {
	_, timed := e.Timing.(Timed)
	return !timed
}

// Times returns start and end for timed events.
func (e Event) Times() (Timed, bool) {
	t, ok := e.Timing.(Timed)
	return t, ok
}

// wireEvent is the persisted JSON shape: timing is flattened into
// allDay/start/end.
type wireEvent struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Color  Color  `json:"color"`
	Date   string `json:"date"`
	AllDay bool   `json:"allDay"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	w := wireEvent{
		ID:     e.ID,
		Title:  e.Title,
		Color:  e.Color,
		Date:   e.Date.ISO(),
		AllDay: true,
	}
	if t, ok := e.Timing.(Timed); ok {
		w.AllDay = false
		w.Start = t.Start.String()
		w.End = t.End.String()
	}
	return json.Marshal(w)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	date, err := ParseDate(w.Date)
	if err != nil {
		return err
	}
	color, err := ParseColor(string(w.Color))
	if err != nil {
		return err
	}

	var timing Timing = AllDay{}
	if !w.AllDay {
		t, err := NewTimed(w.Start, w.End)
		if err != nil {
			return fmt.Errorf("event %s: %w", w.ID, err)
		}
		timing = t
	}

	*e = Event{
		ID:     w.ID,
		Title:  w.Title,
		Color:  color,
		Date:   date,
		Timing: timing,
	}
	return nil
}
