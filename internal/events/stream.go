package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	// StreamKey is the Redis stream receiving ledger events.
	StreamKey = "stream:ledger_events"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000
)

// StreamPublisher appends events to a capped Redis stream.
type StreamPublisher struct {
	client *redis.Client
}

// NewStreamPublisher creates a publisher on an existing Redis client.
// The client is owned by the caller and is not closed by Close.
func NewStreamPublisher(client *redis.Client) *StreamPublisher {
	return &StreamPublisher{client: client}
}

// Publish adds event to the stream.
func (p *StreamPublisher) Publish(ctx context.Context, event Event) error {
	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"kind":    string(event.Kind),
			"payload": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}

// Close is a no-op.
func (p *StreamPublisher) Close() error { return nil }
