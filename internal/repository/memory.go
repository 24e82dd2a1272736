package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/model"
)

// DefaultCategories mirrors the rows seeded by the SQL migrations.
var DefaultCategories = []model.Category{
	{ID: "cat-entertainment", Name: "Entertainment", Kind: model.KindExpense},
	{ID: "cat-food", Name: "Food", Kind: model.KindExpense},
	{ID: "cat-health", Name: "Health", Kind: model.KindExpense},
	{ID: "cat-rent", Name: "Rent", Kind: model.KindExpense},
	{ID: "cat-transport", Name: "Transport", Kind: model.KindExpense},
	{ID: "cat-utilities", Name: "Utilities", Kind: model.KindExpense},
	{ID: "cat-freelance", Name: "Freelance", Kind: model.KindIncome},
	{ID: "cat-gifts", Name: "Gifts", Kind: model.KindIncome},
	{ID: "cat-salary", Name: "Salary", Kind: model.KindIncome},
}

// Memory is an in-process Store. It enforces the same owner scoping and
// referential integrity as the SQL stores and preserves insertion order.
type Memory struct {
	mu    sync.RWMutex
	users map[string]model.User
	txs   []model.Transaction // insertion order
	index map[string]int      // transaction ID -> position in txs
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]model.User),
		index: make(map[string]int),
	}
}

// Ping always succeeds.
func (m *Memory) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// CreateUser stores a copy of user.
func (m *Memory) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; ok {
		return ErrUserExists
	}
	m.users[user.ID] = *user
	return nil
}

// GetUser retrieves a user by ID.
func (m *Memory) GetUser(ctx context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

// ListCategories returns the default categories.
func (m *Memory) ListCategories(ctx context.Context) ([]*model.Category, error) {
	categories := make([]*model.Category, len(DefaultCategories))
	for i := range DefaultCategories {
		c := DefaultCategories[i]
		categories[i] = &c
	}
	return categories, nil
}

// CreateTransaction appends a copy of tx.
func (m *Memory) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[tx.OwnerID]; !ok {
		return ErrOwnerNotFound
	}
	if _, ok := m.index[tx.ID]; ok {
		return ErrTransactionExists
	}

	m.index[tx.ID] = len(m.txs)
	m.txs = append(m.txs, cloneTransaction(tx))
	return nil
}

// GetTransaction retrieves a transaction by ID within the owner's scope.
func (m *Memory) GetTransaction(ctx context.Context, ownerID, id string) (*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[id]
	if !ok || !m.txs[i].OwnedBy(ownerID) {
		return nil, ErrTransactionNotFound
	}
	tx := cloneTransaction(&m.txs[i])
	return &tx, nil
}

// ListTransactions retrieves a page of the owner's transactions in insertion order.
func (m *Memory) ListTransactions(ctx context.Context, ownerID string, offset, limit int) ([]*model.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	page := make([]*model.Transaction, 0)
	seen := 0
	for i := range m.txs {
		if len(page) >= limit {
			break
		}
		if !m.txs[i].OwnedBy(ownerID) {
			continue
		}
		if seen < offset {
			seen++
			continue
		}
		tx := cloneTransaction(&m.txs[i])
		page = append(page, &tx)
	}
	return page, nil
}

// UpdateTransaction replaces the mutable fields of an owned transaction.
func (m *Memory) UpdateTransaction(ctx context.Context, tx *model.Transaction) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[tx.ID]
	if !ok || !m.txs[i].OwnedBy(tx.OwnerID) {
		return 0, nil
	}

	updated := cloneTransaction(tx)
	stored := &m.txs[i]
	stored.Kind = updated.Kind
	stored.Category = updated.Category
	stored.Amount = updated.Amount
	stored.Date = updated.Date
	stored.Description = updated.Description
	return 1, nil
}

// DeleteTransaction removes an owned transaction.
func (m *Memory) DeleteTransaction(ctx context.Context, ownerID, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.index[id]
	if !ok || !m.txs[i].OwnedBy(ownerID) {
		return 0, nil
	}

	m.txs = append(m.txs[:i], m.txs[i+1:]...)
	delete(m.index, id)
	for j := i; j < len(m.txs); j++ {
		m.index[m.txs[j].ID] = j
	}
	return 1, nil
}

// SumByKind aggregates the owner's amounts per kind.
func (m *Memory) SumByKind(ctx context.Context, ownerID string, dr *model.DateRange) ([]model.KindTotal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sums := make(map[model.Kind]decimal.Decimal)
	for i := range m.txs {
		tx := &m.txs[i]
		if !tx.OwnedBy(ownerID) || (dr != nil && !dr.Contains(tx.Date)) {
			continue
		}
		sums[tx.Kind] = sums[tx.Kind].Add(tx.Amount)
	}

	totals := make([]model.KindTotal, 0, len(sums))
	for kind, total := range sums {
		totals = append(totals, model.KindTotal{Kind: kind, Total: total})
	}
	return totals, nil
}

// SumByCategory aggregates the owner's amounts per category within dr.
func (m *Memory) SumByCategory(ctx context.Context, ownerID string, dr model.DateRange) ([]model.CategoryTotal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sums := make(map[string]decimal.Decimal)
	for i := range m.txs {
		tx := &m.txs[i]
		if !tx.OwnedBy(ownerID) || !dr.Contains(tx.Date) {
			continue
		}
		sums[tx.Category] = sums[tx.Category].Add(tx.Amount)
	}

	totals := make([]model.CategoryTotal, 0, len(sums))
	for category, total := range sums {
		totals = append(totals, model.CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Category < totals[j].Category })
	return totals, nil
}

// cloneTransaction copies tx so callers never alias stored state.
func cloneTransaction(tx *model.Transaction) model.Transaction {
	c := *tx
	if tx.Description != nil {
		d := *tx.Description
		c.Description = &d
	}
	return c
}
