package event

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"cloud.google.com/go/civil"
)

type RepositoryStub struct {
	mu     sync.RWMutex
	nextId int
	events map[string]Event
	// order keeps insertion order for ties on date and time.
	order []string
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		events: make(map[string]Event),
	}
}

func (s *RepositoryStub) ListEvents(ctx context.Context, ownerId int) ([]Event, error) {
	return s.filter(func(e Event) bool {
		return e.OwnerId == ownerId
	}), nil
}

func (s *RepositoryStub) ListEventsBetween(ctx context.Context, ownerId int, from, to civil.Date) ([]Event, error) {
	return s.filter(func(e Event) bool {
		return e.OwnerId == ownerId && !e.Date.Before(from) && !to.Before(e.Date)
	}), nil
}

func (s *RepositoryStub) GetEvent(ctx context.Context, ownerId int, id string) (Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok || e.OwnerId != ownerId {
		return Event{}, ErrEventNotFound
	}
	return e, nil
}

func (s *RepositoryStub) StoreEvent(ctx context.Context, ownerId int, event Event) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextId++
	now := time.Now()
	event.Id = strconv.Itoa(s.nextId)
	event.OwnerId = ownerId
	event.CreatedAt = now
	event.UpdatedAt = now
	s.events[event.Id] = event
	s.order = append(s.order, event.Id)
	return event, nil
}

func (s *RepositoryStub) UpdateEvent(ctx context.Context, ownerId int, event Event) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.events[event.Id]
	if !ok || existing.OwnerId != ownerId {
		return Event{}, ErrEventNotFound
	}
	event.OwnerId = ownerId
	event.CreatedAt = existing.CreatedAt
	event.UpdatedAt = time.Now()
	s.events[event.Id] = event
	return event, nil
}

func (s *RepositoryStub) DeleteEvent(ctx context.Context, ownerId int, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok || e.OwnerId != ownerId {
		return ErrEventNotFound
	}
	delete(s.events, id)
	for i, orderedId := range s.order {
		if orderedId == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *RepositoryStub) filter(keep func(Event) bool) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Event, 0, len(s.order))
	for _, id := range s.order {
		if e := s.events[id]; keep(e) {
			result = append(result, e)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Time < result[j].Time
	})
	return result
}
