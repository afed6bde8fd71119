package event_bus

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Topic names a kind of message, e.g. "event.created".
type Topic string

// Message is the envelope delivered to subscribers. Data is untyped so that
// different payloads can share one bus.
type Message struct {
	ctx       context.Context
	Topic     Topic
	Timestamp time.Time
	Data      any
}

func NewMessage(ctx context.Context, topic Topic, data any) Message {
	return Message{
		ctx:       ctx,
		Topic:     topic,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// Context carries the publisher's request values (current user, deadlines).
func (m Message) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

// MessageT is the typed envelope handed to SubscribeTyped handlers.
type MessageT[T any] struct {
	ctx       context.Context
	Topic     Topic
	Timestamp time.Time
	Data      T
}

func (m MessageT[T]) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

type handler func(Message) error

// EventBus dispatches messages synchronously, in subscription order.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[Topic]map[uint64]handler
	nextID      uint64
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[Topic]map[uint64]handler),
	}
}

// Subscribe registers h for topic and returns a function that removes it.
func (eb *EventBus) Subscribe(topic Topic, h func(Message) error) (unsubscribe func()) {
	eb.mu.Lock()
	eb.nextID++
	id := eb.nextID

	if eb.subscribers[topic] == nil {
		eb.subscribers[topic] = make(map[uint64]handler)
	}
	eb.subscribers[topic][id] = h
	eb.mu.Unlock()

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()

		if handlers := eb.subscribers[topic]; handlers != nil {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(eb.subscribers, topic)
			}
		}
	}
}

// SubscribeTyped registers a handler for payloads of type T. Messages on the topic
// carrying another payload type are skipped.
func SubscribeTyped[T any](eb *EventBus, topic Topic, h func(MessageT[T]) error) (unsubscribe func()) {
	wrapper := func(m Message) error {
		payload, ok := m.Data.(T)
		if !ok {
			log.Debugf("EventBus: skipping %s, expected %T payload, got %T", topic, *new(T), m.Data)
			return nil
		}
		return h(MessageT[T]{
			ctx:       m.ctx,
			Topic:     m.Topic,
			Timestamp: m.Timestamp,
			Data:      payload,
		})
	}
	return eb.Subscribe(topic, wrapper)
}

type subscription struct {
	id uint64
	h  handler
}

// Publish runs every handler subscribed to m.Topic. Handler errors and panics are
// collected and returned together; a cancelled context stops delivery.
func (eb *EventBus) Publish(m Message) error {
	if err := m.Context().Err(); err != nil {
		return fmt.Errorf("message %s: context cancelled before publish: %w", m.Topic, err)
	}

	eb.mu.RLock()
	subs := make([]subscription, 0, len(eb.subscribers[m.Topic]))
	for id, h := range eb.subscribers[m.Topic] {
		subs = append(subs, subscription{id, h})
	}
	eb.mu.RUnlock()
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })

	var errs []error
	for _, sub := range subs {
		if err := m.Context().Err(); err != nil {
			errs = append(errs, fmt.Errorf("context cancelled during delivery: %w", err))
			break
		}

		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("handler panic (ID %d) for %s: %v", sub.id, m.Topic, r)
					log.Error(err)
				}
			}()
			return sub.h(m)
		}()

		if err != nil {
			log.Errorf("EventBus: handler error (ID %d) for %s: %v", sub.id, m.Topic, err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("message %s: %d handler(s) failed: %v", m.Topic, len(errs), errs)
	}
	return nil
}
