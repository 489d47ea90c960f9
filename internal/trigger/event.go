// Package trigger turns object-store bucket notifications into source references.
//
// It accepts both the MinIO envelope ({"EventName", "Key", "Records"}) and a bare
// S3 event document ({"Records"}). Only object-created records are returned;
// keys are kept exactly as delivered, percent-encoding included.
package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7/pkg/notification"

	"github.com/hszk-dev/hlsladder/internal/domain/model"
)

// createdEvent is the event name emitted for uploads that get re-published for retry.
const createdEvent = "s3:ObjectCreated:Put"

// ErrMalformedEvent is returned when a notification body cannot be interpreted.
var ErrMalformedEvent = errors.New("malformed bucket notification")

// envelope is the body MinIO publishes to AMQP targets.
type envelope struct {
	EventName string               `json:"EventName,omitempty"`
	Key       string               `json:"Key,omitempty"`
	Records   []notification.Event `json:"Records"`
}

// Parse decodes a notification body and returns one SourceReference per
// object-created record, in record order. A body with no created records yields
// an empty slice and no error.
func Parse(body []byte) ([]model.SourceReference, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.Records == nil {
		return nil, fmt.Errorf("%w: no Records field", ErrMalformedEvent)
	}

	refs := make([]model.SourceReference, 0, len(env.Records))
	for i, ev := range env.Records {
		if !IsObjectCreated(ev.EventName) {
			continue
		}
		if ev.S3.Bucket.Name == "" || ev.S3.Object.Key == "" {
			return nil, fmt.Errorf("%w: record %d has no bucket or key", ErrMalformedEvent, i)
		}
		refs = append(refs, model.SourceReference{
			Bucket: ev.S3.Bucket.Name,
			RawKey: ev.S3.Object.Key,
		})
	}

	return refs, nil
}

// IsObjectCreated reports whether an event name denotes a new object.
// MinIO prefixes names with "s3:"; AWS does not.
func IsObjectCreated(eventName string) bool {
	return strings.HasPrefix(strings.TrimPrefix(eventName, "s3:"), "ObjectCreated:")
}

// Encode builds a single-record envelope for ref. Parse(Encode(ref)) returns ref.
func Encode(ref model.SourceReference) ([]byte, error) {
	if ref.Bucket == "" {
		return nil, model.ErrEmptyBucket
	}
	if ref.RawKey == "" {
		return nil, model.ErrEmptySourceKey
	}

	var ev notification.Event
	ev.EventVersion = "2.0"
	ev.EventSource = "minio:s3"
	ev.EventName = createdEvent
	ev.S3.Bucket.Name = ref.Bucket
	ev.S3.Bucket.ARN = "arn:aws:s3:::" + ref.Bucket
	ev.S3.Object.Key = ref.RawKey

	env := envelope{
		EventName: createdEvent,
		Key:       ref.Bucket + "/" + ref.RawKey,
		Records:   []notification.Event{ev},
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return body, nil
}

// EncodeKey percent-encodes an object key the way bucket notifications do,
// keeping path separators.
func EncodeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.QueryEscape(p)
	}
	return strings.Join(parts, "/")
}
