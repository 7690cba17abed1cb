package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"monthcal/internal/model"
)

const productID = "-//monthcal//Month Calendar//EN"

const propertyColor = ical.ComponentProperty("COLOR")

// Export renders events as an iCalendar document. The event id becomes the
// UID, so exporting and importing again is idempotent.
func Export(events []model.Event, now time.Time) []byte {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range events {
		vev := cal.AddEvent(ev.ID)
		vev.SetDtStampTime(now.UTC())
		vev.SetSummary(ev.Title)
		vev.SetProperty(propertyColor, string(ev.Color))

		if t, ok := ev.Times(); ok {
			vev.SetStartAt(at(ev.Date, t.Start))
			vev.SetEndAt(at(ev.Date, t.End))
			continue
		}
		vev.SetAllDayStartAt(ev.Date.Time())
		vev.SetAllDayEndAt(ev.Date.AddDays(1).Time())
	}

	return []byte(cal.Serialize())
}

// at is the local wall-clock time c on day d.
func at(d model.Date, c model.Clock) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.Hour, c.Minute, 0, 0, time.Local)
}
