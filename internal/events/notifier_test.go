package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/finledger/finledger/internal/metrics"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
	closed bool
}

func (p *recordingPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestNotifier_PublishesAndCloses(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	rec := metrics.NewInMemory()
	n := NewNotifier(pub, nil, rec)

	n.Notify(New(KindTransactionCreated, "u-1", "tx-1"))
	n.Notify(New(KindTransactionDeleted, "u-1", "tx-1"))

	if err := n.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.events))
	}
	if !pub.closed {
		t.Error("expected publisher to be closed")
	}
	if got := rec.Snapshot().EventsPublished; got != 2 {
		t.Errorf("expected 2 successful publishes, got %d", got)
	}

	// Events after Close are dropped.
	n.Notify(New(KindTransactionUpdated, "u-1", "tx-1"))
	if len(pub.events) != 2 {
		t.Errorf("expected no publish after close, got %d events", len(pub.events))
	}
}

func TestNotifier_FailuresAreCounted(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{err: errors.New("broker down")}
	rec := metrics.NewInMemory()
	n := NewNotifier(pub, nil, rec)

	n.Notify(New(KindTransactionCreated, "u-1", "tx-1"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := n.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := rec.Snapshot().EventsFailed; got != 1 {
		t.Errorf("expected 1 failed publish, got %d", got)
	}
}

func TestNotifier_NilPublisher(t *testing.T) {
	t.Parallel()

	n := NewNotifier(nil, nil, nil)
	n.Notify(New(KindTransactionCreated, "u-1", "tx-1"))
	if err := n.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestEvent_Marshal(t *testing.T) {
	t.Parallel()

	ev := New(KindTransactionUpdated, "u-1", "tx-9")
	if ev.ID == "" {
		t.Fatal("expected generated id")
	}

	data, err := ev.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["kind"] != "transaction.updated" {
		t.Errorf("kind = %v", decoded["kind"])
	}
	if decoded["transaction_id"] != "tx-9" || decoded["user_id"] != "u-1" {
		t.Errorf("unexpected payload %s", data)
	}
}
