package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

const untitled = "Untitled"

// Import parses an iCalendar payload into events keyed by their UID.
// Recurrence rules are not expanded; a recurring VEVENT contributes its
// first occurrence only. VEVENTs without UID or DTSTART are skipped.
func Import(body []byte) ([]model.Event, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve)
		if err != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Warn("ics: skipping vevent", "err", err)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics: import parsed", "event_count", len(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (model.Event, error) {
	var out model.Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.ID = uidProp.Value

	out.Title = untitled
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil && strings.TrimSpace(p.Value) != "" {
		out.Title = strings.TrimSpace(p.Value)
	}

	out.Color = model.Colors[0]
	if p := ve.GetProperty(propertyColor); p != nil {
		if c, err := model.ParseColor(p.Value); err == nil {
			out.Color = c
		}
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, errors.New("missing DTSTART")
	}

	if isDateValue(dtStart) {
		start, err := ve.GetAllDayStartAt()
		if err != nil {
			return out, err
		}
		out.Date = model.NewDate(start.Year(), start.Month(), start.Day())
		out.Timing = model.AllDay{}
		return out, nil
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	start = start.In(time.Local)

	end, err := ve.GetEndAt()
	if err != nil {
		end = start
	}
	end = end.In(time.Local)

	out.Date = model.DateOf(start)
	timing := model.Timed{
		Start: model.Clock{Hour: start.Hour(), Minute: start.Minute()},
		End:   model.Clock{Hour: end.Hour(), Minute: end.Minute()},
	}
	// Events running past midnight are cut at the end of their first day.
	if model.DateOf(end) != out.Date || timing.End.Before(timing.Start) {
		timing.End = model.Clock{Hour: 23, Minute: 59}
	}
	out.Timing = timing
	return out, nil
}

// isDateValue detects all-day starts: VALUE=DATE or no time part.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// Merge overlays imported events onto existing ones: an imported event
// replaces the existing event with the same id, new ids are appended.
func Merge(existing, imported []model.Event) []model.Event {
	index := make(map[string]int, len(existing))
	out := make([]model.Event, len(existing))
	copy(out, existing)
	for i, ev := range out {
		index[ev.ID] = i
	}
	for _, ev := range imported {
		if i, ok := index[ev.ID]; ok {
			out[i] = ev
			continue
		}
		index[ev.ID] = len(out)
		out = append(out, ev)
	}
	return out
}
