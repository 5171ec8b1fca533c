// Package eventbus provides event-driven communication between the API, the
// worker and external listeners.
package eventbus

import (
	"context"

	"github.com/pubflow/pubflow/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventHandler func(ctx context.Context, event any) error

// EventPublisher is the narrow interface the engine needs to notify listeners.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventBus interface {
	EventPublisher

	Subscribe(ctx context.Context) error
	Handle(eventType events.EventType, handler EventHandler) error
	GenerateID() string
	Close() error
}
