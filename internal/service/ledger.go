package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/events"
	"github.com/finledger/finledger/internal/metrics"
	"github.com/finledger/finledger/internal/model"
	"github.com/finledger/finledger/internal/repository"
)

const (
	maxCategoryLength    = 100
	maxDescriptionLength = 500
	amountScale          = 2

	// maxIntegerDigits is the number of digits left of the point that
	// NUMERIC(14,2) holds.
	maxIntegerDigits = 12
	// maxFractionDigits is the most fractional digits, trailing zeros
	// included, accepted before rounding.
	maxFractionDigits = 18

	// DefaultPageSize applies when the caller passes 0.
	DefaultPageSize = 10
)

// maxAmount is the first value that no longer fits NUMERIC(14,2).
var maxAmount = decimal.New(1, 12)

// TransactionInput is the caller-supplied part of a transaction.
type TransactionInput struct {
	Kind        model.Kind
	Category    string
	Amount      decimal.Decimal
	Date        model.Date
	Description *string
}

// LedgerService manages a user's transactions. Every operation is scoped
// to the owner passed in; other users' records are invisible.
type LedgerService struct {
	store    repository.Store
	metrics  metrics.Recorder
	notifier *events.Notifier
	logger   *slog.Logger
}

// NewLedgerService creates a new LedgerService. recorder and notifier may be nil.
func NewLedgerService(store repository.Store, recorder metrics.Recorder, notifier *events.Notifier, logger *slog.Logger) *LedgerService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = events.NewNotifier(nil, logger, recorder)
	}
	return &LedgerService{
		store:    store,
		metrics:  recorder,
		notifier: notifier,
		logger:   logger,
	}
}

// Create records a new transaction for owner and returns its ID.
func (s *LedgerService) Create(ctx context.Context, owner *model.User, input TransactionInput) (string, error) {
	if err := validateInput(&input); err != nil {
		return "", err
	}

	tx := &model.Transaction{
		ID:          ulid.Make().String(),
		Kind:        input.Kind,
		Category:    input.Category,
		Amount:      input.Amount,
		Date:        input.Date,
		Description: input.Description,
		OwnerID:     owner.ID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return "", storeError("create transaction", err)
	}

	s.metrics.IncTransactionCreated()
	s.notifier.Notify(events.New(events.KindTransactionCreated, owner.ID, tx.ID))
	s.logger.InfoContext(ctx, "transaction_created",
		"transaction_id", tx.ID,
		"user_id", owner.ID,
		"type", tx.Kind,
	)

	return tx.ID, nil
}

// List returns one page of the owner's transactions in insertion order.
// page 0 means 1 and pageSize 0 means DefaultPageSize.
func (s *LedgerService) List(ctx context.Context, owner *model.User, page, pageSize int) ([]*model.Transaction, error) {
	page, pageSize, err := NormalizePage(page, pageSize)
	if err != nil {
		return nil, err
	}

	if page-1 > math.MaxInt/pageSize {
		return []*model.Transaction{}, nil
	}
	offset := (page - 1) * pageSize

	txs, err := s.store.ListTransactions(ctx, owner.ID, offset, pageSize)
	if err != nil {
		return nil, storeError("list transactions", err)
	}
	if txs == nil {
		txs = []*model.Transaction{}
	}
	return txs, nil
}

// NormalizePage applies pagination defaults and rejects negative values.
func NormalizePage(page, pageSize int) (int, int, error) {
	if page < 0 {
		return 0, 0, invalid("page", "must not be negative")
	}
	if pageSize < 0 {
		return 0, 0, invalid("pageSize", "must not be negative")
	}
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return page, pageSize, nil
}

// Get returns the owner's transaction with the given ID.
func (s *LedgerService) Get(ctx context.Context, owner *model.User, id string) (*model.Transaction, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	tx, err := s.store.GetTransaction(ctx, owner.ID, id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeError("get transaction", err)
	}
	return tx, nil
}

// Update replaces every mutable field of the owner's transaction.
func (s *LedgerService) Update(ctx context.Context, owner *model.User, id string, input TransactionInput) error {
	if err := validateInput(&input); err != nil {
		return err
	}
	if id == "" {
		return ErrNotFound
	}

	rows, err := s.store.UpdateTransaction(ctx, &model.Transaction{
		ID:          id,
		Kind:        input.Kind,
		Category:    input.Category,
		Amount:      input.Amount,
		Date:        input.Date,
		Description: input.Description,
		OwnerID:     owner.ID,
	})
	if err != nil {
		return storeError("update transaction", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.metrics.IncTransactionUpdated()
	s.notifier.Notify(events.New(events.KindTransactionUpdated, owner.ID, id))
	s.logger.InfoContext(ctx, "transaction_updated", "transaction_id", id, "user_id", owner.ID)

	return nil
}

// Delete removes the owner's transaction.
func (s *LedgerService) Delete(ctx context.Context, owner *model.User, id string) error {
	if id == "" {
		return ErrNotFound
	}

	rows, err := s.store.DeleteTransaction(ctx, owner.ID, id)
	if err != nil {
		return storeError("delete transaction", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.metrics.IncTransactionDeleted()
	s.notifier.Notify(events.New(events.KindTransactionDeleted, owner.ID, id))
	s.logger.InfoContext(ctx, "transaction_deleted", "transaction_id", id, "user_id", owner.ID)

	return nil
}

// validateInput checks and normalizes input in place.
func validateInput(input *TransactionInput) error {
	if input.Kind == "" {
		return invalid("type", "is required")
	}
	if !input.Kind.IsValid() {
		return invalid("type", "must be income or expense")
	}

	input.Category = strings.TrimSpace(input.Category)
	if input.Category == "" {
		return invalid("category", "is required")
	}
	if utf8.RuneCountInString(input.Category) > maxCategoryLength {
		return invalid("category", "must be at most 100 characters")
	}

	if input.Amount.IsZero() {
		return invalid("amount", "is required")
	}
	if input.Amount.IsNegative() {
		return invalid("amount", "must be positive")
	}
	// Round and Cmp rescale to 10^|exponent|; bound the exponent first.
	if input.Amount.NumDigits()+int(input.Amount.Exponent()) > maxIntegerDigits {
		return invalid("amount", "is too large")
	}
	if input.Amount.Exponent() < -maxFractionDigits {
		return invalid("amount", "must have at most 2 decimal places")
	}
	if !input.Amount.Equal(input.Amount.Round(amountScale)) {
		return invalid("amount", "must have at most 2 decimal places")
	}
	if input.Amount.GreaterThanOrEqual(maxAmount) {
		return invalid("amount", "is too large")
	}

	if input.Date.IsZero() {
		return invalid("date", "is required")
	}

	if input.Description != nil && utf8.RuneCountInString(*input.Description) > maxDescriptionLength {
		return invalid("description", "must be at most 500 characters")
	}

	return nil
}
