package calendar

import (
	"sort"

	"cloud.google.com/go/civil"
	"github.com/planit/planit/pkg/event"
)

// EventsOnDate returns the events scheduled on date ordered by time of day.
// Events sharing a time keep their input order.
func EventsOnDate(events []event.Event, date civil.Date) []event.Event {
	result := make([]event.Event, 0)
	for _, e := range events {
		if e.Date == date {
			result = append(result, e)
		}
	}
	sortByTime(result)
	return result
}

func HasEvents(events []event.Event, date civil.Date) bool {
	for _, e := range events {
		if e.Date == date {
			return true
		}
	}
	return false
}

func CountOnDate(events []event.Event, date civil.Date) int {
	count := 0
	for _, e := range events {
		if e.Date == date {
			count++
		}
	}
	return count
}

// DayIndex buckets events by date once so that many days can be looked up cheaply.
type DayIndex struct {
	byDate map[civil.Date][]event.Event
}

func NewDayIndex(events []event.Event) *DayIndex {
	byDate := make(map[civil.Date][]event.Event)
	for _, e := range events {
		byDate[e.Date] = append(byDate[e.Date], e)
	}
	for _, bucket := range byDate {
		sortByTime(bucket)
	}
	return &DayIndex{byDate: byDate}
}

// On returns the events on date ordered by time. The returned slice is a copy.
func (idx *DayIndex) On(date civil.Date) []event.Event {
	bucket := idx.byDate[date]
	result := make([]event.Event, len(bucket))
	copy(result, bucket)
	return result
}

func (idx *DayIndex) Has(date civil.Date) bool {
	return len(idx.byDate[date]) > 0
}

func (idx *DayIndex) Count(date civil.Date) int {
	return len(idx.byDate[date])
}

// Zero padded HH:MM sorts chronologically as a string.
func sortByTime(events []event.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
}
