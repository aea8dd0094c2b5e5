// Package events carries the bus the pipeline modules announce their board
// mutations on. Lead moves, stage changes, and pipeline deletions are
// published here so cross-cutting consumers, the audit trail being the first,
// stay off the mutation path. Event definitions live with the modules; this
// package is infrastructure only.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event published on the bus.
type Event interface {
	// EventName identifies the event type, e.g. "pipelines.lead.moved".
	EventName() string
	// OccurredAt returns when the mutation happened.
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp every event shares; concrete events embed
// it and add their own payload fields.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the mutation happened.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a fresh event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events it has been subscribed to.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes domain events to subscribed handlers.
type Bus interface {
	// Publish dispatches the event to all handlers registered for its name.
	// Handlers run asynchronously; the publisher never waits.
	Publish(ctx context.Context, event Event)

	// PublishSync dispatches the event and waits for every handler,
	// returning their joined errors.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under an event name as returned by
	// Event.EventName().
	Subscribe(eventName string, handler Handler)
}
