// Package service implements the ledger, aggregation and registration logic.
package service

import (
	"errors"
	"fmt"
)

// Service errors.
var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound means the record does not exist or belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrStore wraps every failure of the record store.
	ErrStore = errors.New("store failure")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) hold for any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStore, op, err)
}
