// Package form is the create/edit event form behind the modal. It is a
// small state machine:
//
//	Closed -> OpenCreate(date) -> Submit | Cancel -> Closed
//	Closed -> OpenEdit(event)  -> Submit | Delete | Cancel -> Closed
//
// A rejected submit leaves the form open and touches nothing. A successful
// submit closes the form and fires exactly one store mutation.
package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

var (
	ErrClosed     = errors.New("form: not open")
	ErrNotEditing = errors.New("form: delete needs an existing event")
)

// Mode is the form state.
type Mode int

const (
	Closed Mode = iota
	Creating
	Editing
)

func (m Mode) String() string {
	switch m {
	case Creating:
		return "create"
	case Editing:
		return "edit"
	default:
		return "closed"
	}
}

// Mutator is the slice of the event store the form writes to.
type Mutator interface {
	Add(in model.EventInput) (model.Event, error)
	Edit(id string, in model.EventInput) error
	Remove(id string) error
}

// Input is the raw field values as typed by the user.
type Input struct {
	Title  string
	AllDay bool
	Start  string
	End    string
	Color  string
}

// ValidationError lists the offending fields. The form stays open.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "form: " + strings.Join(parts, "; ")
}

// Form holds the state of one modal.
type Form struct {
	store Mutator
	mode  Mode
	date  model.Date
	event model.Event
}

func New(store Mutator) *Form {
	return &Form{store: store}
}

// OpenCreate opens an empty form for a new event on date.
func (f *Form) OpenCreate(date model.Date) {
	f.mode = Creating
	f.date = date
	f.event = model.Event{}
}

// OpenEdit opens the form prefilled with ev.
func (f *Form) OpenEdit(ev model.Event) {
	f.mode = Editing
	f.date = ev.Date
	f.event = ev
}

// Cancel closes without side effects.
func (f *Form) Cancel() {
	f.mode = Closed
	f.event = model.Event{}
}

func (f *Form) Mode() Mode { return f.mode }

func (f *Form) IsOpen() bool { return f.mode != Closed }

// Date is the day the form is bound to.
func (f *Form) Date() model.Date { return f.date }

// EventID is the id being edited, empty in create mode.
func (f *Form) EventID() string { return f.event.ID }

// Defaults are the initial field values: the edited event, or an empty
// timed event in the first palette color.
func (f *Form) Defaults() Input {
	if f.mode != Editing {
		return Input{Color: string(model.Colors[0])}
	}
	in := Input{
		Title:  f.event.Title,
		AllDay: f.event.AllDay(),
		Color:  string(f.event.Color),
	}
	if t, ok := f.event.Times(); ok {
		in.Start = t.Start.String()
		in.End = t.End.String()
	}
	return in
}

// Submit validates in and, when valid, closes the form and applies the
// mutation for the current mode.
func (f *Form) Submit(in Input) error {
	if f.mode == Closed {
		return ErrClosed
	}

	ev, err := f.build(in)
	if err != nil {
		appLog.Debug("form: submit blocked", "mode", f.mode, "err", err)
		return err
	}

	mode, id := f.mode, f.event.ID
	f.Cancel()

	if mode == Editing {
		return f.store.Edit(id, ev)
	}
	_, err = f.store.Add(ev)
	return err
}

// Delete removes the edited event and closes the form.
func (f *Form) Delete() error {
	if f.mode != Editing {
		return ErrNotEditing
	}
	id := f.event.ID
	f.Cancel()
	return f.store.Remove(id)
}

func (f *Form) build(in Input) (model.EventInput, error) {
	return toEvent(in, f.date)
}

func toEvent(in Input, date model.Date) (model.EventInput, error) {
	fields := map[string]string{}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		fields["title"] = "required"
	}

	color := model.Colors[0]
	if strings.TrimSpace(in.Color) != "" {
		c, err := model.ParseColor(in.Color)
		if err != nil {
			fields["color"] = fmt.Sprintf("must be one of %v", model.Colors)
		} else {
			color = c
		}
	}

	var timing model.Timing = model.AllDay{}
	if !in.AllDay {
		start, startErr := parseRequiredClock(in.Start)
		if startErr != "" {
			fields["start"] = startErr
		}
		end, endErr := parseRequiredClock(in.End)
		if endErr != "" {
			fields["end"] = endErr
		}
		if startErr == "" && endErr == "" {
			if end.Before(start) {
				fields["end"] = "must not be before start"
			}
			timing = model.Timed{Start: start, End: end}
		}
	}

	if len(fields) > 0 {
		return model.EventInput{}, &ValidationError{Fields: fields}
	}
	return model.EventInput{
		Title:  title,
		Color:  color,
		Date:   date,
		Timing: timing,
	}, nil
}

func parseRequiredClock(s string) (model.Clock, string) {
	if strings.TrimSpace(s) == "" {
		return model.Clock{}, "required"
	}
	c, err := model.ParseClock(s)
	if err != nil {
		return model.Clock{}, "must be HH:MM"
	}
	return c, ""
}
