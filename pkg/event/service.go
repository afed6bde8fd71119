package event

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/planit/planit/internal/clock"
	"github.com/planit/planit/internal/event_bus"
	"github.com/planit/planit/pkg/user"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	ListEvents(ctx context.Context) ([]Event, error)
	ListEventsOnDate(ctx context.Context, date civil.Date) ([]Event, error)
	ListEventsBetween(ctx context.Context, from, to civil.Date) ([]Event, error)
	GetEvent(ctx context.Context, id string) (Event, error)
	CreateEvent(ctx context.Context, fields Fields) (Event, error)
	UpdateEvent(ctx context.Context, id string, patch Patch) (Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ExportCalendar(ctx context.Context) (string, error)
}

type Options struct {
	// RejectPastDates refuses to schedule events on days before the user's today.
	RejectPastDates bool
}

type ServiceImpl struct {
	repo     Repository
	clock    clock.Clock
	eventBus *event_bus.EventBus
	options  Options
}

func NewEventService(repo Repository, clock clock.Clock, eventBus *event_bus.EventBus, options Options) *ServiceImpl {
	return &ServiceImpl{
		repo:     repo,
		clock:    clock,
		eventBus: eventBus,
		options:  options,
	}
}

func (s *ServiceImpl) ListEvents(ctx context.Context) ([]Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.ListEvents(ctx, userId)
}

func (s *ServiceImpl) ListEventsOnDate(ctx context.Context, date civil.Date) ([]Event, error) {
	return s.ListEventsBetween(ctx, date, date)
}

func (s *ServiceImpl) ListEventsBetween(ctx context.Context, from, to civil.Date) ([]Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	if to.Before(from) {
		return []Event{}, nil
	}
	return s.repo.ListEventsBetween(ctx, userId, from, to)
}

func (s *ServiceImpl) GetEvent(ctx context.Context, id string) (Event, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return s.repo.GetEvent(ctx, userId, id)
}

func (s *ServiceImpl) CreateEvent(ctx context.Context, fields Fields) (Event, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}

	event := fields.toEvent()
	if err := event.Validate(); err != nil {
		return Event{}, err
	}
	if err := s.checkNotInPast(currentUser, event.Date); err != nil {
		return Event{}, err
	}

	stored, err := s.repo.StoreEvent(ctx, currentUser.Id, event)
	if err != nil {
		return Event{}, fmt.Errorf("failed to store event: %w", err)
	}
	log.Debugf("Event %s created for user %d on %s", stored.Id, currentUser.Id, stored.Date)

	s.publish(ctx, event_bus.TopicEventCreated, changedPayload(stored))
	return stored, nil
}

func (s *ServiceImpl) UpdateEvent(ctx context.Context, id string, patch Patch) (Event, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Event{}, fmt.Errorf("failed to get current user: %w", err)
	}

	existing, err := s.repo.GetEvent(ctx, currentUser.Id, id)
	if err != nil {
		return Event{}, err
	}

	updated := patch.Apply(existing)
	if err := updated.Validate(); err != nil {
		return Event{}, err
	}
	if updated.Date != existing.Date {
		if err := s.checkNotInPast(currentUser, updated.Date); err != nil {
			return Event{}, err
		}
	}

	stored, err := s.repo.UpdateEvent(ctx, currentUser.Id, updated)
	if err != nil {
		return Event{}, fmt.Errorf("failed to update event: %w", err)
	}

	s.publish(ctx, event_bus.TopicEventUpdated, changedPayload(stored))
	return stored, nil
}

func (s *ServiceImpl) DeleteEvent(ctx context.Context, id string) error {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}
	if err := s.repo.DeleteEvent(ctx, userId, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	s.publish(ctx, event_bus.TopicEventDeleted, event_bus.EventDeleted{Id: id, OwnerId: userId})
	return nil
}

// ExportCalendar renders all events of the current user as an iCalendar feed.
func (s *ServiceImpl) ExportCalendar(ctx context.Context) (string, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}
	events, err := s.repo.ListEvents(ctx, currentUser.Id)
	if err != nil {
		return "", fmt.Errorf("failed to list events: %w", err)
	}
	return ToICS(events, currentUser.Location(), s.clock.Now()), nil
}

func (s *ServiceImpl) checkNotInPast(u user.User, date civil.Date) error {
	if !s.options.RejectPastDates {
		return nil
	}
	today := clock.Today(s.clock, u.Location())
	if date.Before(today) {
		return fmt.Errorf("%w: %s is before %s", ErrEventInPast, date, today)
	}
	return nil
}

func (s *ServiceImpl) publish(ctx context.Context, topic event_bus.Topic, data any) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(event_bus.NewMessage(ctx, topic, data)); err != nil {
		log.Errorf("failed to publish %s: %v", topic, err)
	}
}

func changedPayload(e Event) event_bus.EventChanged {
	return event_bus.EventChanged{
		Id:      e.Id,
		OwnerId: e.OwnerId,
		Name:    e.Name,
		Date:    e.Date,
		Time:    e.Time,
	}
}
