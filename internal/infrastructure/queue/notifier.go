package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hszk-dev/hlsladder/internal/domain/model"
	"github.com/hszk-dev/hlsladder/internal/domain/repository"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/metrics"
)

const backendAMQP = "amqp"

// NotifierConfig selects where completion messages are published.
type NotifierConfig struct {
	Exchange   string // empty = default exchange
	RoutingKey string
	// Queue, if set, is declared durable so messages published through the default
	// exchange have somewhere to land.
	Queue string
}

// Notifier implements repository.Notifier over a RabbitMQ channel.
type Notifier struct {
	channel amqpChannel
	config  NotifierConfig
}

// Compile-time verification that Notifier implements repository.Notifier.
var _ repository.Notifier = (*Notifier)(nil)

// NewNotifier publishes on the client's channel.
func NewNotifier(c *Client, cfg NotifierConfig) (*Notifier, error) {
	return newNotifierWithChannel(c.channel, cfg)
}

func newNotifierWithChannel(ch amqpChannel, cfg NotifierConfig) (*Notifier, error) {
	if cfg.Queue != "" {
		if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("failed to declare completion queue: %w", err)
		}
	}
	return &Notifier{channel: ch, config: cfg}, nil
}

// Publish sends msg as JSON and returns the generated message ID.
func (n *Notifier) Publish(ctx context.Context, msg model.Completion) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion: %w", err)
	}

	id := uuid.NewString()
	err = n.channel.PublishWithContext(
		ctx,
		n.config.Exchange,
		n.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    id,
			Body:         body,
		},
	)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(backendAMQP, metrics.NotifyStatusError).Inc()
		return "", fmt.Errorf("failed to publish completion: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues(backendAMQP, metrics.NotifyStatusSuccess).Inc()
	return id, nil
}
