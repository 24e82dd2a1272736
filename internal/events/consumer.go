package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DeadLetterStreamKey receives stream entries that cannot be decoded.
	DeadLetterStreamKey = StreamKey + ":dead"

	// DefaultConsumerGroup is the consumer group used by ledgerctl.
	DefaultConsumerGroup = "ledger_consumers"

	defaultBatchSize    = 100
	defaultBlockTimeout = 5 * time.Second
	defaultClaimIdle    = 30 * time.Second
)

// HandlerFunc processes one event. A returned error leaves the entry
// pending so it is claimed again later.
type HandlerFunc func(ctx context.Context, event Event) error

// StreamConsumer reads ledger events from the Redis stream through a
// consumer group and acknowledges each entry once handled.
type StreamConsumer struct {
	client       *redis.Client
	group        string
	consumer     string
	handle       HandlerFunc
	logger       *slog.Logger
	batchSize    int64
	blockTimeout time.Duration
	claimIdle    time.Duration
	claimStart   string

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewStreamConsumer creates a consumer named consumer in group.
func NewStreamConsumer(client *redis.Client, group, consumer string, handle HandlerFunc, logger *slog.Logger) *StreamConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	if group == "" {
		group = DefaultConsumerGroup
	}
	return &StreamConsumer{
		client:       client,
		group:        group,
		consumer:     consumer,
		handle:       handle,
		logger:       logger.With("component", "events.consumer", "group", group, "consumer", consumer),
		batchSize:    defaultBatchSize,
		blockTimeout: defaultBlockTimeout,
		claimIdle:    defaultClaimIdle,
		claimStart:   "0-0",
	}
}

// SetBlockTimeout overrides how long a read waits for new entries.
func (c *StreamConsumer) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.blockTimeout = timeout
	}
}

// Run consumes until ctx is cancelled or Shutdown is called.
func (c *StreamConsumer) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return errors.New("consumer already started")
	}
	c.started = true
	c.done = make(chan struct{})
	ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	defer close(c.done)

	err := c.client.XGroupCreateMkStream(ctx, StreamKey, c.group, "0").Err()
	if err != nil && !isGroupExists(err) {
		return fmt.Errorf("create consumer group: %w", err)
	}

	c.logger.Info("event consumer started")

	for {
		if err := c.processOnce(ctx); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("event consumer stopping")
				return nil
			}
			c.logger.Error("event consumer error", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			c.logger.Info("event consumer stopping")
			return nil
		}
	}
}

// Shutdown stops Run and waits for the current batch to finish.
func (c *StreamConsumer) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *StreamConsumer) processOnce(ctx context.Context) error {
	messages, err := c.claimPending(ctx)
	if err != nil {
		c.logger.Warn("failed to claim pending entries", "error", err)
	}
	if len(messages) == 0 {
		messages, err = c.readBatch(ctx)
		if err != nil {
			return err
		}
	}

	for _, msg := range messages {
		event, err := decodeMessage(msg)
		if err != nil {
			c.deadLetter(ctx, msg, err)
			if err := c.ack(ctx, msg.ID); err != nil {
				return err
			}
			continue
		}

		if err := c.handle(ctx, event); err != nil {
			c.logger.Warn("event handler failed",
				"message_id", msg.ID,
				"event_id", event.ID,
				"error", err,
			)
			continue
		}
		if err := c.ack(ctx, msg.ID); err != nil {
			return err
		}
	}
	return nil
}

// claimPending takes over entries another consumer left idle too long.
func (c *StreamConsumer) claimPending(ctx context.Context) ([]redis.XMessage, error) {
	messages, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  c.claimIdle,
		Start:    c.claimStart,
		Count:    c.batchSize,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if next != "" {
		c.claimStart = next
	}
	return messages, nil
}

func (c *StreamConsumer) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{StreamKey, ">"},
		Count:    c.batchSize,
		Block:    c.blockTimeout,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return streams[0].Messages, nil
}

func (c *StreamConsumer) ack(ctx context.Context, id string) error {
	if err := c.client.XAck(ctx, StreamKey, c.group, id).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (c *StreamConsumer) deadLetter(ctx context.Context, msg redis.XMessage, cause error) {
	c.logger.Warn("dead-lettering malformed event", "message_id", msg.ID, "error", cause)

	err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id":      msg.ID,
			"reason":           cause.Error(),
			"payload":          msg.Values["payload"],
			"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
	if err != nil {
		c.logger.Error("failed to write dead-letter entry", "message_id", msg.ID, "error", err)
	}
}

// decodeMessage parses the payload written by StreamPublisher.
func decodeMessage(msg redis.XMessage) (Event, error) {
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		return Event{}, errors.New("payload field missing or not a string")
	}

	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	switch event.Kind {
	case KindTransactionCreated, KindTransactionUpdated, KindTransactionDeleted:
	default:
		return Event{}, fmt.Errorf("unknown event kind %q", event.Kind)
	}
	if event.ID == "" || event.TransactionID == "" {
		return Event{}, errors.New("event id and transaction id are required")
	}
	return event, nil
}

func isGroupExists(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}
