package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/planit/planit/internal/clock"
	"github.com/planit/planit/pkg/event"
	"github.com/planit/planit/pkg/user"
	log "github.com/sirupsen/logrus"
)

var ErrMonthOutOfRange = errors.New("month is outside of the navigation window")

// EventReader is the part of the event service the calendar reads from.
type EventReader interface {
	ListEventsBetween(ctx context.Context, from, to civil.Date) ([]event.Event, error)
}

type Day struct {
	DayCell
	EventCount int
}

type MonthView struct {
	Year        int
	Month       time.Month
	Today       civil.Date
	HasPrevious bool
	HasNext     bool
	Days        []Day
}

type DayView struct {
	Date    civil.Date
	IsToday bool
	IsPast  bool
	Events  []event.Event
}

type Options struct {
	// NavigationMonths is how far from the current month the month view may move.
	// Zero means no limit.
	NavigationMonths int
}

type Service interface {
	GetMonth(ctx context.Context, year int, month time.Month) (MonthView, error)
	GetCurrentMonth(ctx context.Context) (MonthView, error)
	GetDay(ctx context.Context, date civil.Date) (DayView, error)
}

type ServiceImpl struct {
	events  EventReader
	clock   clock.Clock
	options Options
}

func NewService(events EventReader, clock clock.Clock, options Options) *ServiceImpl {
	return &ServiceImpl{
		events:  events,
		clock:   clock,
		options: options,
	}
}

func (s *ServiceImpl) GetCurrentMonth(ctx context.Context) (MonthView, error) {
	today, err := s.today(ctx)
	if err != nil {
		return MonthView{}, err
	}
	return s.GetMonth(ctx, today.Year, today.Month)
}

func (s *ServiceImpl) GetMonth(ctx context.Context, year int, month time.Month) (MonthView, error) {
	today, err := s.today(ctx)
	if err != nil {
		return MonthView{}, err
	}

	cells, err := BuildGrid(year, month, today)
	if err != nil {
		return MonthView{}, err
	}

	offset := MonthsBetween(today.Year, today.Month, year, month)
	if !s.withinWindow(offset) {
		return MonthView{}, fmt.Errorf("%w: %d-%02d is %d months from %d-%02d",
			ErrMonthOutOfRange, year, month, offset, today.Year, today.Month)
	}

	from, to := cells[0].Date, cells[len(cells)-1].Date
	events, err := s.events.ListEventsBetween(ctx, from, to)
	if err != nil {
		return MonthView{}, fmt.Errorf("failed to list events: %w", err)
	}
	log.Tracef("Building month %d-%02d with %d events", year, month, len(events))

	index := NewDayIndex(events)
	days := make([]Day, 0, len(cells))
	for _, cell := range cells {
		days = append(days, Day{DayCell: cell, EventCount: index.Count(cell.Date)})
	}

	prevYear, prevMonth := PreviousMonth(year, month)
	nextYear, nextMonth := NextMonth(year, month)
	return MonthView{
		Year:        year,
		Month:       month,
		Today:       today,
		HasPrevious: s.withinWindow(MonthsBetween(today.Year, today.Month, prevYear, prevMonth)),
		HasNext:     s.withinWindow(MonthsBetween(today.Year, today.Month, nextYear, nextMonth)),
		Days:        days,
	}, nil
}

func (s *ServiceImpl) GetDay(ctx context.Context, date civil.Date) (DayView, error) {
	today, err := s.today(ctx)
	if err != nil {
		return DayView{}, err
	}
	events, err := s.events.ListEventsBetween(ctx, date, date)
	if err != nil {
		return DayView{}, fmt.Errorf("failed to list events: %w", err)
	}
	return DayView{
		Date:    date,
		IsToday: date == today,
		IsPast:  date.Before(today),
		Events:  EventsOnDate(events, date),
	}, nil
}

func (s *ServiceImpl) today(ctx context.Context) (civil.Date, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return civil.Date{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return clock.Today(s.clock, currentUser.Location()), nil
}

func (s *ServiceImpl) withinWindow(offset int) bool {
	if s.options.NavigationMonths == 0 {
		return true
	}
	return offset >= -s.options.NavigationMonths && offset <= s.options.NavigationMonths
}
