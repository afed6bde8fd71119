package event

import (
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

const (
	icsProductId    = "-//planit//events//EN"
	defaultDuration = time.Hour
)

// ToICS renders events as an iCalendar feed. Start times are interpreted in loc and
// every event lasts one hour.
func ToICS(events []Event, loc *time.Location, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductId)

	for _, e := range events {
		start := e.StartsAt(loc)

		vevent := cal.AddEvent(e.Id + "@planit")
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(start)
		vevent.SetEndAt(start.Add(defaultDuration))
		vevent.SetSummary(e.Name)
		vevent.SetLocation(icsLocation(e))
		if e.Description != "" {
			vevent.SetDescription(e.Description)
		}
	}
	return cal.Serialize()
}

func icsLocation(e Event) string {
	if strings.TrimSpace(e.Location) == "" {
		return e.Venue
	}
	return e.Venue + ", " + e.Location
}
