package event

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/samber/mo"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidEvent  = errors.New("invalid event")
	ErrEventInPast   = errors.New("event date is in the past")
)

// TimeLayout is the 24-hour, zero padded time-of-day format of Event.Time.
// Zero padding keeps string order equal to chronological order.
const TimeLayout = "15:04"

type Event struct {
	Id          string
	OwnerId     int
	Name        string
	Date        civil.Date
	Time        string
	Venue       string
	Location    string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Fields are the user supplied values of a new event.
type Fields struct {
	Name        string
	Date        civil.Date
	Time        string
	Venue       string
	Location    string
	Description string
}

// Patch describes a partial update. Name, Date, Time and Venue are applied only
// when present and non-empty; Location and Description are applied whenever present,
// so they can be cleared.
type Patch struct {
	Name        mo.Option[string]
	Date        mo.Option[civil.Date]
	Time        mo.Option[string]
	Venue       mo.Option[string]
	Location    mo.Option[string]
	Description mo.Option[string]
}

func (f Fields) toEvent() Event {
	return Event{
		Name:        strings.TrimSpace(f.Name),
		Date:        f.Date,
		Time:        strings.TrimSpace(f.Time),
		Venue:       strings.TrimSpace(f.Venue),
		Location:    f.Location,
		Description: f.Description,
	}
}

// Apply returns a copy of e with the patch applied.
func (p Patch) Apply(e Event) Event {
	if name, ok := p.Name.Get(); ok && strings.TrimSpace(name) != "" {
		e.Name = strings.TrimSpace(name)
	}
	if date, ok := p.Date.Get(); ok && !date.IsZero() {
		e.Date = date
	}
	if t, ok := p.Time.Get(); ok && strings.TrimSpace(t) != "" {
		e.Time = strings.TrimSpace(t)
	}
	if venue, ok := p.Venue.Get(); ok && strings.TrimSpace(venue) != "" {
		e.Venue = strings.TrimSpace(venue)
	}
	if location, ok := p.Location.Get(); ok {
		e.Location = location
	}
	if description, ok := p.Description.Get(); ok {
		e.Description = description
	}
	return e
}

// Validate checks the fields every persisted event must carry.
func (e Event) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidEvent)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidEvent)
	}
	if !e.Date.IsValid() {
		return fmt.Errorf("%w: date %s does not exist", ErrInvalidEvent, e.Date)
	}
	if e.Time == "" {
		return fmt.Errorf("%w: time is required", ErrInvalidEvent)
	}
	if !IsValidTime(e.Time) {
		return fmt.Errorf("%w: time %q must be in HH:MM 24-hour format", ErrInvalidEvent, e.Time)
	}
	if e.Venue == "" {
		return fmt.Errorf("%w: venue is required", ErrInvalidEvent)
	}
	return nil
}

// IsValidTime reports whether s is a zero padded HH:MM time of day.
func IsValidTime(s string) bool {
	if len(s) != len(TimeLayout) {
		return false
	}
	_, err := time.Parse(TimeLayout, s)
	return err == nil
}

// StartsAt combines the event's date and time in loc.
func (e Event) StartsAt(loc *time.Location) time.Time {
	start := e.Date.In(loc)
	if t, err := time.Parse(TimeLayout, e.Time); err == nil {
		start = time.Date(start.Year(), start.Month(), start.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	}
	return start
}
