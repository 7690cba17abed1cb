package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthcal/internal/model"
)

func sampleEvents(t *testing.T) []model.Event {
	t.Helper()
	timing, err := model.NewTimed("09:30", "10:15")
	require.NoError(t, err)
	return []model.Event{
		{ID: "a1", Title: "Standup", Color: model.ColorBlue, Date: model.NewDate(2024, time.March, 5), Timing: model.AllDay{}},
		{ID: "t1", Title: "Review", Color: model.ColorGreen, Date: model.NewDate(2024, time.March, 6), Timing: timing},
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	events := sampleEvents(t)

	body := Export(events, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")
	assert.Contains(t, string(body), "SUMMARY:Standup")

	back, err := Import(body)
	require.NoError(t, err)
	assert.Equal(t, events, back)
}

func TestExportKeepsWallClockOnDSTDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	prev := time.Local
	time.Local = loc
	t.Cleanup(func() { time.Local = prev })

	// Clocks jump from 02:00 to 03:00 on this day.
	timing, err := model.NewTimed("12:00", "13:00")
	require.NoError(t, err)
	events := []model.Event{
		{ID: "l1", Title: "Lunch", Color: model.ColorRed, Date: model.NewDate(2024, time.March, 10), Timing: timing},
	}

	body := Export(events, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, string(body), "20240310T160000Z")

	back, err := Import(body)
	require.NoError(t, err)
	assert.Equal(t, events, back)
}

func TestImportSkipsBrokenEvents(t *testing.T) {
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"SUMMARY:no uid",
		"DTSTART;VALUE=DATE:20240305",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:ok",
		"DTSTART;VALUE=DATE:20240307",
		"COLOR:purple",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	events, err := Import([]byte(body))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ok", events[0].ID)
	assert.Equal(t, "Untitled", events[0].Title)
	assert.Equal(t, model.ColorRed, events[0].Color)
	assert.Equal(t, model.NewDate(2024, time.March, 7), events[0].Date)
	assert.True(t, events[0].AllDay())
}

func TestImportEmpty(t *testing.T) {
	_, err := Import(nil)
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	existing := []model.Event{{ID: "a", Title: "old"}, {ID: "b", Title: "keep"}}
	imported := []model.Event{{ID: "a", Title: "new"}, {ID: "c", Title: "added"}}

	got := Merge(existing, imported)

	assert.Equal(t, []model.Event{{ID: "a", Title: "new"}, {ID: "b", Title: "keep"}, {ID: "c", Title: "added"}}, got)
	assert.Equal(t, "old", existing[0].Title)
}

func TestFetcherUsesConditionalCache(t *testing.T) {
	body := Export(sampleEvents(t), time.Now())
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())

	got, fromCache, err := f.Fetch(context.Background(), srv.URL+"/feed.ics?token=secret")
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, body, got)

	got, fromCache, err = f.Fetch(context.Background(), srv.URL+"/feed.ics?token=secret")
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, body, got)
	assert.Equal(t, 2, hits)
}

func TestFetcherRejectsNonHTTP(t *testing.T) {
	_, _, err := NewFetcher(t.TempDir()).Fetch(context.Background(), "file:///etc/passwd")
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private.ics?token=abcd"))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
