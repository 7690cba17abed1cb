package web

import (
	"errors"
	"net/http"
	"net/url"

	"monthcal/internal/calendar"
	"monthcal/internal/form"
	"monthcal/internal/grid"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
	"monthcal/internal/overflow"
)

// pageData is everything month.html needs.
type pageData struct {
	Title      string
	MonthParam string
	PrevParam  string
	NextParam  string
	Weeks      [][]dayView
	Modal      *modalView
}

type dayView struct {
	Date        string
	Day         int
	Weekday     string
	ShowWeekday bool
	InMonth     bool
	Past        bool
	Events      []eventView
	More        string
}

type eventView struct {
	ID     string
	Title  string
	Color  string
	Time   string
	AllDay bool
}

type modalView struct {
	Mode      string
	Action    string
	Delete    string
	Date      string
	DateLabel string
	Input     form.Input
	Errors    map[string]string
	Colors    []model.Color
}

// cellOptions lays events out in fixed-height rows inside the configured
// cell body.
func (s *Server) cellOptions() calendar.CellOptions {
	return calendar.CellOptions{
		Layout: overflow.Fixed[model.Event](s.cfg.Layout.EventHeight, s.cfg.Layout.Gap),
	}
}

func (s *Server) month(r *http.Request) calendar.Month {
	m := calendar.NewMonth(grid.ParseWeekStart(s.cfg.WeekStart), s.now)
	if p := r.FormValue("month"); p != "" {
		first, err := calendar.ParseMonth(p)
		if err != nil {
			appLog.Debug("ignoring bad month parameter", "month", p)
			return m
		}
		m = m.Show(first)
	}
	return m
}

func (s *Server) page(m calendar.Month, modal *modalView) pageData {
	size := overflow.Size{Height: s.cfg.Layout.CellHeight}
	days := m.Days(s.store.Events(), s.cellOptions(), size)

	views := make([]dayView, len(days))
	for i, d := range days {
		v := dayView{
			Date:        d.Date.String(),
			Day:         d.DayNumber(),
			Weekday:     d.WeekdayName(),
			ShowWeekday: d.ShowWeekday(),
			InMonth:     d.InMonth,
			Past:        d.Past,
		}
		for _, ev := range d.List.Visible() {
			v.Events = append(v.Events, toEventView(ev))
		}
		if rendered := d.List.Render(); rendered.Hidden > 0 {
			v.More = rendered.Overflow
		}
		views[i] = v
	}

	return pageData{
		Title:      m.Title(),
		MonthParam: m.Param(),
		PrevParam:  m.Previous().Param(),
		NextParam:  m.Next().Param(),
		Weeks:      grid.Weeks(views),
		Modal:      modal,
	}
}

func toEventView(ev model.Event) eventView {
	v := eventView{ID: ev.ID, Title: ev.Title, Color: string(ev.Color), AllDay: true}
	if t, ok := ev.Times(); ok {
		v.AllDay = false
		v.Time = t.Start.Kitchen()
	}
	return v
}

func newModal(f *form.Form, in form.Input, fields map[string]string) *modalView {
	mv := &modalView{
		Mode:      f.Mode().String(),
		Date:      f.Date().String(),
		DateLabel: f.Date().Time().Format("1/2/06"),
		Input:     in,
		Errors:    fields,
		Colors:    model.Colors,
		Action:    "/events",
	}
	if f.Mode() == form.Editing {
		mv.Action = "/events/" + url.PathEscape(f.EventID())
		mv.Delete = mv.Action + "/delete"
	}
	return mv
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tpl.ExecuteTemplate(w, "month.html", data); err != nil {
		appLog.Error("failed to render month page", err)
	}
}

// handleMonth renders the grid, with the modal open for ?new= or ?edit=.
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	m := s.month(r)
	f := form.New(s.store)

	q := r.URL.Query()
	switch {
	case q.Get("new") != "":
		date, err := model.ParseDate(q.Get("new"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		f.OpenCreate(date)
		if q.Get("month") == "" {
			m = m.Show(date)
		}
	case q.Get("edit") != "":
		ev, ok := s.store.Get(q.Get("edit"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		f.OpenEdit(ev)
		if q.Get("month") == "" {
			m = m.Show(ev.Date)
		}
	}

	var modal *modalView
	if f.IsOpen() {
		modal = newModal(f, f.Defaults(), nil)
	}
	s.render(w, http.StatusOK, s.page(m, modal))
}

func readInput(r *http.Request) form.Input {
	return form.Input{
		Title:  r.PostFormValue("title"),
		AllDay: r.PostFormValue("all_day") != "",
		Start:  r.PostFormValue("start"),
		End:    r.PostFormValue("end"),
		Color:  r.PostFormValue("color"),
	}
}

// submit applies in through f. A validation failure re-renders the page
// with the modal open and 422.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, f *form.Form, in form.Input) {
	m := s.month(r)
	if r.PostFormValue("month") == "" {
		m = m.Show(f.Date())
	}

	// Submit closes the form, so keep what the modal needs first.
	modal := newModal(f, in, nil)

	err := f.Submit(in)
	var verr *form.ValidationError
	switch {
	case errors.As(err, &verr):
		modal.Errors = verr.Fields
		s.render(w, http.StatusUnprocessableEntity, s.page(m, modal))
		return
	case err != nil:
		appLog.Error("saving event failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save event")
		return
	}
	http.Redirect(w, r, "/?month="+m.Param(), http.StatusSeeOther)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	date, err := model.ParseDate(r.PostFormValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	f := form.New(s.store)
	f.OpenCreate(date)
	s.submit(w, r, f, readInput(r))
}

// editTarget returns the stored event, or a stub carrying only the id so
// that edits and deletes of unknown ids stay silent no-ops in the store.
func (s *Server) editTarget(r *http.Request) model.Event {
	id := r.PathValue("id")
	if ev, ok := s.store.Get(id); ok {
		return ev
	}
	appLog.Debug("edit of unknown event", "id", id)
	return model.Event{ID: id, Date: model.DateOf(s.now())}
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	f := form.New(s.store)
	f.OpenEdit(s.editTarget(r))
	s.submit(w, r, f, readInput(r))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	f := form.New(s.store)
	ev := s.editTarget(r)
	f.OpenEdit(ev)
	if err := f.Delete(); err != nil {
		appLog.Error("deleting event failed", err, "id", ev.ID)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	http.Redirect(w, r, "/?month="+s.month(r).Show(ev.Date).Param(), http.StatusSeeOther)
}
