package repository

import (
	"context"

	"github.com/hszk-dev/hlsladder/internal/domain/model"
)

// Notifier publishes completion and failure messages to the downstream channel.
// Implementations should be provided by the infrastructure layer (e.g., Pub/Sub, RabbitMQ).
type Notifier interface {
	// Publish sends the message and blocks until the channel acknowledges it.
	// Returns the channel-assigned message ID.
	Publish(ctx context.Context, msg model.Completion) (string, error)
}
