package room

import (
	"context"
	"time"
)

type EventType string

const (
	EventCreated EventType = "room.created"
	EventUpdated EventType = "room.updated"
	EventDeleted EventType = "room.deleted"
)

// Event is emitted after a room change has been committed to the store.
type Event struct {
	Type EventType `json:"type"`
	Room *Room     `json:"room"`
	At   time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }
