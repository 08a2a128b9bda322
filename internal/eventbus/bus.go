// Package eventbus provides the in-process typed publish/subscribe bus
// described in spec.md §4.1: emit delivers to every current subscriber, in
// subscription order, before returning; across topics no ordering is implied.
package eventbus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is a single message published on a topic.
type Event struct {
	ID        string                 `json:"id"`
	Topic     string                 `json:"topic"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent stamps a new event with a unique id and the current time.
func NewEvent(topic, source string, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Topic:     topic,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Handler reacts to an Event. A returned error is logged, never propagated to
// other handlers or to the publisher.
type Handler func(ctx context.Context, event *Event) error

// Subscription is returned by Subscribe; Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe() error
	IsValid() bool
}

// Bus is the event bus contract. The in-memory implementation is the only one
// this repository ships — see DESIGN.md for why a network broker (NATS) was
// dropped instead of wired.
type Bus interface {
	// Publish delivers event to every subscriber whose pattern matches topic,
	// synchronously, in subscription order, before returning.
	Publish(ctx context.Context, topic string, event *Event) error

	// Subscribe registers handler for topic, which may contain NATS-style
	// wildcards (`*` for one token, `>` for the remainder).
	Subscribe(topic string, handler Handler) (Subscription, error)

	Close()
	IsConnected() bool
}
