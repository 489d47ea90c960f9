package repository

import (
	"context"

	"github.com/hszk-dev/hlsladder/internal/domain/model"
)

// SourceEvent is one uploaded object delivered by the trigger, together with the
// number of times the surrounding message has already been redelivered.
type SourceEvent struct {
	Source  model.SourceReference
	Attempt int
}

// EventQueue defines the interface for consuming upload notifications.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type EventQueue interface {
	// ConsumeSourceEvents starts consuming upload notifications from the queue.
	// The handler is called once per uploaded object, sequentially.
	// Returns when the context is cancelled or the delivery channel closes.
	ConsumeSourceEvents(ctx context.Context, handler func(ctx context.Context, event SourceEvent) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
