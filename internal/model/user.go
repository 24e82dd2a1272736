// Package model defines domain entities for the application.
package model

import "time"

// User is the owner of a ledger. Users are immutable once registered.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CredentialHash string    `json:"-"` // Never serialize
	CreatedAt      time.Time `json:"created_at"`
}
