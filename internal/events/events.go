// Package events publishes ledger mutation events to an external broker.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind identifies a ledger mutation.
type Kind string

const (
	KindTransactionCreated Kind = "transaction.created"
	KindTransactionUpdated Kind = "transaction.updated"
	KindTransactionDeleted Kind = "transaction.deleted"
)

// Event is the wire message for a ledger mutation.
// It carries identifiers only; consumers read the record from the API.
type Event struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// New creates an event stamped with a fresh ULID and the current time.
func New(kind Kind, userID, transactionID string) Event {
	return Event{
		ID:            ulid.Make().String(),
		Kind:          kind,
		TransactionID: transactionID,
		UserID:        userID,
		OccurredAt:    time.Now().UTC(),
	}
}

// Marshal encodes the event as JSON.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

// Publish is a no-op.
func (Noop) Publish(context.Context, Event) error { return nil }

// Close is a no-op.
func (Noop) Close() error { return nil }
