package usecase

import (
	"context"
	"time"
)

// EventPublisher delivers realtime events to a room. Delivery is best
// effort: callers log failures and carry on.
type EventPublisher interface {
	Publish(ctx context.Context, room, event string, payload interface{}) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }

// Clock returns the current time.
type Clock func() time.Time
