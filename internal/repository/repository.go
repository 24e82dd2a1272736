// Package repository provides the record store for users, transactions and categories.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/finledger/finledger/internal/model"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Common errors for store operations.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExists          = errors.New("user already exists")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTransactionExists   = errors.New("transaction already exists")
	ErrOwnerNotFound       = errors.New("transaction owner does not exist")
	ErrUnknownDriver       = errors.New("unknown database driver")
)

// Store is the durable record store. Every transaction operation is scoped
// by owner ID; a row owned by someone else behaves exactly like a missing row.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)

	ListCategories(ctx context.Context) ([]*model.Category, error)

	CreateTransaction(ctx context.Context, tx *model.Transaction) error
	GetTransaction(ctx context.Context, ownerID, id string) (*model.Transaction, error)
	// ListTransactions returns the owner's rows in insertion order.
	ListTransactions(ctx context.Context, ownerID string, offset, limit int) ([]*model.Transaction, error)
	// UpdateTransaction replaces the mutable fields of the row matching tx.ID and tx.OwnerID.
	UpdateTransaction(ctx context.Context, tx *model.Transaction) (int64, error)
	DeleteTransaction(ctx context.Context, ownerID, id string) (int64, error)

	// SumByKind sums amounts per kind, restricted to dr when it is non-nil.
	SumByKind(ctx context.Context, ownerID string, dr *model.DateRange) ([]model.KindTotal, error)
	// SumByCategory sums amounts per category within dr, ordered by category.
	SumByCategory(ctx context.Context, ownerID string, dr model.DateRange) ([]model.CategoryTotal, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the store selected by driver.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgres(ctx, databaseURL)
	case DriverSQLite:
		return NewSQLite(ctx, databaseURL)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
