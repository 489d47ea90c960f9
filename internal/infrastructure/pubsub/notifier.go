// Package pubsub publishes completion messages to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/hszk-dev/hlsladder/internal/domain/model"
	"github.com/hszk-dev/hlsladder/internal/domain/repository"
	"github.com/hszk-dev/hlsladder/internal/infrastructure/metrics"
)

const backendPubSub = "pubsub"

// Config holds configuration for the Pub/Sub notifier.
type Config struct {
	ProjectID string
	TopicID   string
	// CredentialsFile is a service-account JSON file. Empty means application
	// default credentials.
	CredentialsFile string
}

// Notifier implements repository.Notifier using Pub/Sub.
type Notifier struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// Compile-time verification that Notifier implements repository.Notifier.
var _ repository.Notifier = (*Notifier)(nil)

// NewNotifier creates a Pub/Sub client bound to the configured topic.
func NewNotifier(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Notifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("pubsub project id is required")
	}
	if cfg.TopicID == "" {
		return nil, errors.New("pubsub topic id is required")
	}

	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Notifier{
		client: client,
		topic:  client.Topic(cfg.TopicID),
	}, nil
}

// Publish sends msg as JSON and waits for the server-assigned message ID.
func (n *Notifier) Publish(ctx context.Context, msg model.Completion) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion: %w", err)
	}

	result := n.topic.Publish(ctx, &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"statusCode": strconv.Itoa(msg.StatusCode),
			"ownerKey":   msg.OwnerKey,
		},
	})

	id, err := result.Get(ctx)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(backendPubSub, metrics.NotifyStatusError).Inc()
		return "", fmt.Errorf("failed to publish completion: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues(backendPubSub, metrics.NotifyStatusSuccess).Inc()
	return id, nil
}

// Close flushes pending messages and releases the client.
func (n *Notifier) Close() error {
	n.topic.Stop()
	if err := n.client.Close(); err != nil {
		return fmt.Errorf("failed to close pubsub client: %w", err)
	}
	return nil
}
