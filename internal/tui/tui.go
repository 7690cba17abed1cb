// Package tui is the terminal month view. It shares the store, the grid and
// the form with the web UI; the terminal size drives the overflow lists.
package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"monthcal/internal/calendar"
	"monthcal/internal/form"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/overflow"
	"monthcal/internal/store"
)

// Lines taken by the title, weekday row and status line.
const chromeLines = 3

// Form fields in focus order.
const (
	fieldTitle = iota
	fieldAllDay
	fieldStart
	fieldEnd
	fieldColor
	fieldCount
)

// eventsChangedMsg is sent when the store changes underneath the view.
type eventsChangedMsg struct{}

type Model struct {
	store    *store.Store
	month    calendar.Month
	selected model.Date
	days     []*calendar.DayCell

	width, height int
	cellWidth     int
	cellLines     int

	form     *form.Form
	title    textinput.Model
	start    textinput.Model
	end      textinput.Model
	allDay   bool
	colorIdx int
	focus    int

	status string
}

// New shows the current month with today selected.
func New(st *store.Store, weekStart time.Weekday, now func() time.Time) Model {
	m := Model{
		store:  st,
		month:  calendar.NewMonth(weekStart, now),
		form:   form.New(st),
		title:  newInput("Title", 128),
		start:  newInput("HH:MM", 5),
		end:    newInput("HH:MM", 5),
		status: "a add  enter edit  n/p month  t today  q quit",
	}
	m.selected = model.DateOf(m.month.Now())
	m.rebuild()
	return m
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 30
	return ti
}

// Run starts the program and keeps the view in sync with st until the user
// quits.
func Run(st *store.Store, weekStart time.Weekday) error {
	p := tea.NewProgram(New(st, weekStart, time.Now), tea.WithAltScreen())

	// Send blocks until the loop reads it, and mutations made from Update
	// notify on the loop goroutine.
	cancel := st.Subscribe(func([]model.Event) {
		go p.Send(eventsChangedMsg{})
	})
	defer cancel()

	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case eventsChangedMsg:
		m.rebuild()
		return m, nil
	case tea.KeyMsg:
		if m.form.IsOpen() {
			return m.updateForm(msg)
		}
		return m.updateGrid(msg)
	}
	return m, nil
}

func (m Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		m.moveSelection(-1)
	case "right", "l":
		m.moveSelection(1)
	case "up", "k":
		m.moveSelection(-7)
	case "down", "j":
		m.moveSelection(7)
	case "n":
		m.month = m.month.Next()
		m.selected = m.month.First
		m.rebuild()
	case "p":
		m.month = m.month.Previous()
		m.selected = m.month.First
		m.rebuild()
	case "t":
		m.month = m.month.Today()
		m.selected = model.DateOf(m.month.Now())
		m.rebuild()
	case "a":
		m.form.OpenCreate(m.selected)
		m.loadForm()
	case "enter":
		events := calendar.EventsOn(m.store.Events(), m.selected)
		if len(events) == 0 {
			m.status = "no events on " + m.selected.String()
			return m, nil
		}
		m.form.OpenEdit(events[0])
		m.loadForm()
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.form.Cancel()
		m.status = "cancelled"
		return m, nil
	case "tab", "down":
		m.setFocus((m.focus + 1) % fieldCount)
		return m, nil
	case "shift+tab", "up":
		m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		return m, nil
	case "enter":
		m.submit()
		return m, nil
	case "ctrl+d":
		m.delete()
		return m, nil
	}

	switch m.focus {
	case fieldAllDay:
		if s := msg.String(); s == " " || s == "space" {
			m.allDay = !m.allDay
		}
		return m, nil
	case fieldColor:
		switch msg.String() {
		case "left", "h":
			m.colorIdx = (m.colorIdx + len(model.Colors) - 1) % len(model.Colors)
		case "right", "l":
			m.colorIdx = (m.colorIdx + 1) % len(model.Colors)
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldTitle:
		m.title, cmd = m.title.Update(msg)
	case fieldStart:
		m.start, cmd = m.start.Update(msg)
	case fieldEnd:
		m.end, cmd = m.end.Update(msg)
	}
	return m, cmd
}

func (m *Model) moveSelection(days int) {
	m.selected = m.selected.AddDays(days)
	if !m.selected.SameMonth(m.month.First) {
		m.month = m.month.Show(m.selected)
		m.rebuild()
	}
}

// loadForm copies the form defaults into the inputs and focuses the title.
func (m *Model) loadForm() {
	in := m.form.Defaults()
	m.title.SetValue(in.Title)
	m.start.SetValue(in.Start)
	m.end.SetValue(in.End)
	m.allDay = in.AllDay
	m.colorIdx = 0
	for i, c := range model.Colors {
		if string(c) == in.Color {
			m.colorIdx = i
		}
	}
	m.setFocus(fieldTitle)
	m.status = fmt.Sprintf("%s event on %s", m.form.Mode(), m.form.Date().String())
}

func (m *Model) setFocus(field int) {
	m.focus = field
	inputs := map[int]*textinput.Model{fieldTitle: &m.title, fieldStart: &m.start, fieldEnd: &m.end}
	for f, in := range inputs {
		if f == field {
			in.Focus()
		} else {
			in.Blur()
		}
	}
}

func (m *Model) input() form.Input {
	return form.Input{
		Title:  m.title.Value(),
		AllDay: m.allDay,
		Start:  m.start.Value(),
		End:    m.end.Value(),
		Color:  string(model.Colors[m.colorIdx]),
	}
}

func (m *Model) submit() {
	err := m.form.Submit(m.input())
	var verr *form.ValidationError
	switch {
	case errors.As(err, &verr):
		m.status = verr.Error()
		return
	case err != nil:
		appLog.Error("tui: saving event failed", err)
		m.status = "save failed: " + err.Error()
	default:
		m.status = "saved"
	}
	m.rebuild()
}

func (m *Model) delete() {
	if err := m.form.Delete(); err != nil {
		if errors.Is(err, form.ErrNotEditing) {
			m.status = "nothing to delete"
			return
		}
		appLog.Error("tui: deleting event failed", err)
		m.status = "delete failed: " + err.Error()
	} else {
		m.status = "deleted"
	}
	m.rebuild()
}

// resize recomputes the cell geometry and tells every overflow list.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	rows := len(m.days) / 7
	if rows == 0 {
		rows = 1
	}
	m.cellWidth = max(width/7, 1)
	// One line for the day number, one for the "+N" indicator.
	m.cellLines = max((height-chromeLines)/rows-2, 0)

	size := m.cellSize()
	for _, d := range m.days {
		d.List.Resize(size)
	}
}

func (m *Model) cellSize() overflow.Size {
	if m.width == 0 && m.height == 0 {
		return overflow.Size{}
	}
	return overflow.Size{Width: m.cellWidth, Height: m.cellLines}
}

// rebuild reloads the visible month from the store.
func (m *Model) rebuild() {
	rows := len(m.days) / 7
	m.days = m.month.Days(m.store.Events(), calendar.CellOptions{}, overflow.Size{})
	if len(m.days)/7 != rows && m.width > 0 {
		m.resize(m.width, m.height)
		return
	}
	if size := m.cellSize(); size != (overflow.Size{}) {
		for _, d := range m.days {
			d.List.Resize(size)
		}
	}
}

// dayCell finds the cell for date in the visible grid.
func (m Model) dayCell(date model.Date) *calendar.DayCell {
	for _, d := range m.days {
		if d.Date == date {
			return d
		}
	}
	return nil
}
