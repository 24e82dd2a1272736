package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the direction of a transaction.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// IsValid checks if the kind is one of the two known variants.
func (k Kind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

// Transaction is a single ledger entry. Amount is always positive;
// the sign is implied by Kind.
type Transaction struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"type"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Date        Date            `json:"date"`
	Description *string         `json:"description,omitempty"`
	OwnerID     string          `json:"user_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OwnedBy reports whether the transaction belongs to the given user ID.
func (t *Transaction) OwnedBy(userID string) bool {
	return t.OwnerID == userID
}
