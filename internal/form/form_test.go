package form

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthcal/internal/model"
)

type call struct {
	op string
	id string
	in model.EventInput
}

type recorder struct {
	calls []call
}

func (r *recorder) Add(in model.EventInput) (model.Event, error) {
	r.calls = append(r.calls, call{op: "add", in: in})
	return in.WithID("new"), nil
}

func (r *recorder) Edit(id string, in model.EventInput) error {
	r.calls = append(r.calls, call{op: "edit", id: id, in: in})
	return nil
}

func (r *recorder) Remove(id string) error {
	r.calls = append(r.calls, call{op: "remove", id: id})
	return nil
}

var day = model.NewDate(2024, time.March, 5)

func TestCreateSubmit(t *testing.T) {
	rec := &recorder{}
	f := New(rec)
	f.OpenCreate(day)
	require.Equal(t, Creating, f.Mode())
	assert.Equal(t, "red", f.Defaults().Color)

	err := f.Submit(Input{Title: " Standup ", AllDay: true, Color: "blue"})
	require.NoError(t, err)

	assert.Equal(t, Closed, f.Mode())
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "add", rec.calls[0].op)
	assert.Equal(t, model.EventInput{
		Title:  "Standup",
		Color:  model.ColorBlue,
		Date:   day,
		Timing: model.AllDay{},
	}, rec.calls[0].in)
}

func TestAllDayIgnoresTimes(t *testing.T) {
	rec := &recorder{}
	f := New(rec)
	f.OpenCreate(day)

	require.NoError(t, f.Submit(Input{Title: "x", AllDay: true, Start: "garbage"}))
	assert.Equal(t, model.AllDay{}, rec.calls[0].in.Timing)
}

func TestInvalidSubmitStaysOpen(t *testing.T) {
	tests := []struct {
		name   string
		in     Input
		fields []string
	}{
		{name: "missing title", in: Input{AllDay: true}, fields: []string{"title"}},
		{name: "blank title", in: Input{Title: "   ", AllDay: true}, fields: []string{"title"}},
		{name: "timed without times", in: Input{Title: "x"}, fields: []string{"start", "end"}},
		{name: "timed without end", in: Input{Title: "x", Start: "09:00"}, fields: []string{"end"}},
		{name: "bad clock", in: Input{Title: "x", Start: "9am", End: "10:00"}, fields: []string{"start"}},
		{name: "end before start", in: Input{Title: "x", Start: "10:00", End: "09:00"}, fields: []string{"end"}},
		{name: "bad color", in: Input{Title: "x", AllDay: true, Color: "pink"}, fields: []string{"color"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			f := New(rec)
			f.OpenCreate(day)

			err := f.Submit(tt.in)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			for _, field := range tt.fields {
				assert.Contains(t, verr.Fields, field)
			}
			assert.Len(t, verr.Fields, len(tt.fields))
			assert.Equal(t, Creating, f.Mode())
			assert.Empty(t, rec.calls)
		})
	}
}

func TestEditSubmitKeepsDateAndID(t *testing.T) {
	timing, err := model.NewTimed("09:00", "10:00")
	require.NoError(t, err)
	ev := model.Event{ID: "e1", Title: "Review", Color: model.ColorGreen, Date: day, Timing: timing}

	rec := &recorder{}
	f := New(rec)
	f.OpenEdit(ev)

	assert.Equal(t, Input{Title: "Review", Start: "09:00", End: "10:00", Color: "green"}, f.Defaults())
	assert.Equal(t, "e1", f.EventID())

	require.NoError(t, f.Submit(Input{Title: "Review v2", Start: "09:30", End: "10:00", Color: "green"}))

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "edit", rec.calls[0].op)
	assert.Equal(t, "e1", rec.calls[0].id)
	assert.Equal(t, day, rec.calls[0].in.Date)
	assert.False(t, f.IsOpen())
}

func TestDelete(t *testing.T) {
	rec := &recorder{}
	f := New(rec)

	assert.ErrorIs(t, f.Delete(), ErrNotEditing)

	f.OpenCreate(day)
	assert.ErrorIs(t, f.Delete(), ErrNotEditing)
	assert.True(t, f.IsOpen())

	f.OpenEdit(model.Event{ID: "e1", Date: day, Timing: model.AllDay{}})
	require.NoError(t, f.Delete())
	assert.False(t, f.IsOpen())
	assert.Equal(t, []call{{op: "remove", id: "e1"}}, rec.calls)
}

func TestCancelAndClosedSubmit(t *testing.T) {
	rec := &recorder{}
	f := New(rec)

	assert.ErrorIs(t, f.Submit(Input{Title: "x", AllDay: true}), ErrClosed)

	f.OpenCreate(day)
	f.Cancel()
	assert.ErrorIs(t, f.Submit(Input{Title: "x", AllDay: true}), ErrClosed)
	assert.Empty(t, rec.calls)
}

func TestSubmitFiresOnce(t *testing.T) {
	rec := &recorder{}
	f := New(rec)
	f.OpenCreate(day)

	require.NoError(t, f.Submit(Input{Title: "x", AllDay: true}))
	assert.ErrorIs(t, f.Submit(Input{Title: "x", AllDay: true}), ErrClosed)
	assert.Len(t, rec.calls, 1)
}

func TestValidationErrorMessage(t *testing.T) {
	f := New(&recorder{})
	f.OpenCreate(day)
	err := f.Submit(Input{})
	assert.EqualError(t, err, "form: end: required; start: required; title: required")
}
