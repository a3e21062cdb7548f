// Package eventbus provides publish/subscribe for execution lifecycle events.
package eventbus

import (
	"context"

	"github.com/claimflow/claimflow/pkg/events"
)

// Event is any payload with a declared event type.
type Event interface {
	GetType() events.EventType
}

// EventHandler processes a single decoded event.
type EventHandler func(ctx context.Context, event any) error

// EventBus publishes and subscribes to execution lifecycle events.
type EventBus interface {
	Publish(ctx context.Context, key string, event Event) error
	Handle(eventType events.EventType, handler EventHandler)
	Subscribe(ctx context.Context) error
	GenerateID() string
	Close() error
}
