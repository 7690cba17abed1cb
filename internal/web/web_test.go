package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthcal/internal/config"
	"monthcal/internal/kv"
	"monthcal/internal/model"
	"monthcal/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(kv.NewMemoryStore())
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Layout = config.LayoutConfig{CellHeight: 50, EventHeight: 20}
	cfg.Capture.Output = filepath.Join(t.TempDir(), "preview.png")

	s := NewServer(cfg, st)
	s.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.Local) }
	return s, st
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func document(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return doc
}

func TestMonthPage(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/?month=2024-03", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	doc := document(t, rec)
	assert.Equal(t, 1, doc.Find(`[data-ready="true"]`).Length())
	assert.Equal(t, "March 24", doc.Find("h1").Text())

	days := doc.Find(".day")
	assert.Equal(t, 42, days.Length())
	assert.Equal(t, "2024-02-25", days.First().AttrOr("data-date", ""))
	assert.True(t, days.First().HasClass("non-month-day"))
	assert.Equal(t, 7, doc.Find(".week-name").Length())
	assert.Equal(t, "Sun", doc.Find(".week-name").First().Text())

	assert.True(t, doc.Find(`[data-date="2024-03-09"]`).HasClass("old-month-day"))
	assert.False(t, doc.Find(`[data-date="2024-03-10"]`).HasClass("old-month-day"))
	assert.Equal(t, 0, doc.Find("dialog").Length())
}

func TestMonthPageBadMonthFallsBackToToday(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/?month=March", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "March 24", document(t, rec).Find("h1").Text())
}

func TestDayCellOverflow(t *testing.T) {
	s, st := newTestServer(t)
	day := model.NewDate(2024, time.March, 5)
	timed, err := model.NewTimed("09:00", "10:00")
	require.NoError(t, err)

	_, err = st.Add(model.EventInput{Title: "Late", Color: model.ColorGreen, Date: day, Timing: timed})
	require.NoError(t, err)
	for _, title := range []string{"One", "Two", "Three"} {
		_, err = st.Add(model.EventInput{Title: title, Color: model.ColorBlue, Date: day, Timing: model.AllDay{}})
		require.NoError(t, err)
	}

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/?month=2024-03", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	cell := document(t, rec).Find(`[data-date="2024-03-05"]`)
	events := cell.Find(".event")
	require.Equal(t, 2, events.Length())
	assert.Equal(t, "One", events.Eq(0).Find(".event-name").Text())
	assert.Equal(t, "Two", events.Eq(1).Find(".event-name").Text())
	assert.Equal(t, "+2", cell.Find(".events-view-more-btn").Text())
}

func TestCreateEvent(t *testing.T) {
	s, st := newTestServer(t)

	rec := do(t, s.Handler(), postForm("/events", url.Values{
		"date":    {"2024-03-05"},
		"title":   {"Standup"},
		"all_day": {"on"},
		"color":   {"blue"},
	}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?month=2024-03", rec.Header().Get("Location"))

	events := st.Events()
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, "Standup", events[0].Title)
	assert.Equal(t, model.ColorBlue, events[0].Color)
	assert.Equal(t, model.NewDate(2024, time.March, 5), events[0].Date)
	assert.True(t, events[0].AllDay())
}

func TestCreateEventInvalidKeepsModalOpen(t *testing.T) {
	s, st := newTestServer(t)

	rec := do(t, s.Handler(), postForm("/events", url.Values{
		"date":  {"2024-03-05"},
		"title": {""},
		"start": {"10:00"},
		"end":   {"09:00"},
	}))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, st.Events())

	doc := document(t, rec)
	modal := doc.Find("dialog.modal")
	require.Equal(t, 1, modal.Length())
	assert.Equal(t, "create", modal.AttrOr("data-mode", ""))
	assert.Equal(t, "required", modal.Find(`[data-field="title"]`).Text())
	assert.Equal(t, 1, modal.Find(`[data-field="end"]`).Length())
	assert.Equal(t, "10:00", modal.Find(`input[name="start"]`).AttrOr("value", ""))
}

func TestNewAndEditModals(t *testing.T) {
	s, st := newTestServer(t)

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/?new=2024-04-02", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	doc := document(t, rec)
	assert.Equal(t, "April 24", doc.Find("h1").Text())
	assert.Equal(t, "4/2/24", doc.Find(".modal-date").Text())
	radios := doc.Find(`input[type="radio"][name="color"]`)
	assert.Equal(t, 3, radios.Length())
	assert.Equal(t, "red", doc.Find(`input[name="color"][checked]`).AttrOr("value", ""))

	ev, err := st.Add(model.EventInput{Title: "Review", Color: model.ColorGreen, Date: model.NewDate(2024, time.March, 6), Timing: model.AllDay{}})
	require.NoError(t, err)

	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/?edit="+ev.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	doc = document(t, rec)
	modal := doc.Find("dialog.modal")
	assert.Equal(t, "edit", modal.AttrOr("data-mode", ""))
	assert.Equal(t, "Review", modal.Find(`input[name="title"]`).AttrOr("value", ""))
	_, checked := modal.Find(`input[name="all_day"]`).Attr("checked")
	assert.True(t, checked)
	assert.Equal(t, "green", modal.Find(`input[name="color"][checked]`).AttrOr("value", ""))
	assert.Equal(t, "/events/"+ev.ID+"/delete", doc.Find(".delete-form").AttrOr("action", ""))

	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/?edit=missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditThenDelete(t *testing.T) {
	s, st := newTestServer(t)
	ev, err := st.Add(model.EventInput{Title: "Review", Color: model.ColorGreen, Date: model.NewDate(2024, time.March, 6), Timing: model.AllDay{}})
	require.NoError(t, err)

	rec := do(t, s.Handler(), postForm("/events/"+ev.ID, url.Values{
		"title": {"Review v2"},
		"start": {"14:00"},
		"end":   {"15:00"},
		"color": {"red"},
		"month": {"2024-03"},
	}))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got, ok := st.Get(ev.ID)
	require.True(t, ok)
	assert.Equal(t, "Review v2", got.Title)
	assert.Equal(t, model.ColorRed, got.Color)
	assert.Equal(t, ev.Date, got.Date)
	tm, timed := got.Times()
	require.True(t, timed)
	assert.Equal(t, "14:00", tm.Start.String())

	rec = do(t, s.Handler(), postForm("/events/"+ev.ID+"/delete", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, ok = st.Get(ev.ID)
	assert.False(t, ok)
}

func TestEditUnknownIDIsNoop(t *testing.T) {
	s, st := newTestServer(t)
	_, err := st.Add(model.EventInput{Title: "Keep", Color: model.ColorRed, Date: model.NewDate(2024, time.March, 6), Timing: model.AllDay{}})
	require.NoError(t, err)
	before := st.Events()

	rec := do(t, s.Handler(), postForm("/events/nope", url.Values{"title": {"x"}, "all_day": {"on"}}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	rec = do(t, s.Handler(), postForm("/events/nope/delete", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	assert.Equal(t, before, st.Events())
}

func TestAPIEventsAndICS(t *testing.T) {
	s, st := newTestServer(t)

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"events":[],"week_start":"Sunday"}`, rec.Body.String())

	ev, err := st.Add(model.EventInput{Title: "Standup", Color: model.ColorBlue, Date: model.NewDate(2024, time.March, 5), Timing: model.AllDay{}})
	require.NoError(t, err)

	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/events", nil))
	var resp struct {
		Events []model.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, ev, resp.Events[0])

	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/calendar.ics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rec.Body.String(), "UID:"+ev.ID)
}

func TestPreview(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/preview.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, os.WriteFile(s.cfg.Capture.Output, []byte("\x89PNG"), 0o644))
	rec = do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/preview.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	h := s.Handler()

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "secret")
	rec = do(t, h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
