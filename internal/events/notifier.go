package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/finledger/finledger/internal/metrics"
)

// PublishTimeout bounds a single background publish.
const PublishTimeout = 2 * time.Second

// Notifier publishes events in the background. Failures are logged and
// counted, never returned.
type Notifier struct {
	publisher Publisher
	logger    *slog.Logger
	metrics   metrics.Recorder

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewNotifier wraps publisher. A nil publisher discards events.
func NewNotifier(publisher Publisher, logger *slog.Logger, recorder metrics.Recorder) *Notifier {
	if publisher == nil {
		publisher = Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Notifier{
		publisher: publisher,
		logger:    logger.With("component", "events.notifier"),
		metrics:   recorder,
	}
}

// Notify publishes event without blocking the caller.
func (n *Notifier) Notify(event Event) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		if err := n.publisher.Publish(ctx, event); err != nil {
			n.logger.Warn("failed to publish event",
				"kind", event.Kind,
				"transaction_id", event.TransactionID,
				"error", err,
			)
			n.metrics.IncEventPublished("failed")
			return
		}

		n.logger.Debug("event published",
			"kind", event.Kind,
			"event_id", event.ID,
		)
		n.metrics.IncEventPublished("success")
	}()
}

// Close stops accepting events, waits for in-flight publishes until ctx is
// done, then closes the publisher.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		n.logger.Warn("shutdown timeout waiting for event publishes")
	}

	return n.publisher.Close()
}
