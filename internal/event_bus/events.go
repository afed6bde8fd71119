package event_bus

import "cloud.google.com/go/civil"

const (
	TopicEventCreated Topic = "event.created"
	TopicEventUpdated Topic = "event.updated"
	TopicEventDeleted Topic = "event.deleted"
)

// EventChanged is published after a scheduled event was stored or modified.
type EventChanged struct {
	Id      string
	OwnerId int
	Name    string
	Date    civil.Date
	Time    string
}

// EventDeleted is published after a scheduled event was removed.
type EventDeleted struct {
	Id      string
	OwnerId int
}
