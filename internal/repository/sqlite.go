package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/finledger/finledger/internal/model"
)

// SQLite is a Store backed by a single SQLite database file.
// Amounts are stored as integer cents.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the SQLite database at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	path = strings.TrimPrefix(path, "sqlite://")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLite{db: db}, nil
}

// sqliteDSN enables foreign keys and a busy timeout on every pooled connection.
func sqliteDSN(path string) string {
	path = strings.TrimPrefix(path, "sqlite://")
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Ping checks database connectivity.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new user.
func (s *SQLite) CreateUser(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, name, password_hash, created_at) VALUES (?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.CredentialHash,
		user.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if sqliteErrorCode(err) == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID.
func (s *SQLite) GetUser(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT id, name, password_hash, created_at FROM users WHERE id = ?`

	var (
		user      model.User
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Name, &user.CredentialHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	user.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user created_at: %w", err)
	}

	return &user, nil
}

// ListCategories returns every category ordered by kind and name.
func (s *SQLite) ListCategories(ctx context.Context) ([]*model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, type FROM categories ORDER BY type, name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*model.Category, 0)
	for rows.Next() {
		var (
			c    model.Category
			kind string
		)
		if err := rows.Scan(&c.ID, &c.Name, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.Kind = model.Kind(kind)
		categories = append(categories, &c)
	}

	return categories, rows.Err()
}

// CreateTransaction inserts a new transaction.
func (s *SQLite) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	query := `
		INSERT INTO transactions (id, type, category, amount_cents, date, description, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		tx.ID,
		string(tx.Kind),
		tx.Category,
		toCents(tx.Amount),
		tx.Date.String(),
		tx.Description,
		tx.OwnerID,
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		switch sqliteErrorCode(err) {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return ErrOwnerNotFound
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return ErrTransactionExists
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

const sqliteTransactionColumns = `id, type, category, amount_cents, date, description, user_id, created_at`

// GetTransaction retrieves a transaction by ID within the owner's scope.
func (s *SQLite) GetTransaction(ctx context.Context, ownerID, id string) (*model.Transaction, error) {
	query := `SELECT ` + sqliteTransactionColumns + ` FROM transactions WHERE id = ? AND user_id = ?`

	tx, err := scanSQLiteTransaction(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// ListTransactions retrieves a page of the owner's transactions in insertion order.
func (s *SQLite) ListTransactions(ctx context.Context, ownerID string, offset, limit int) ([]*model.Transaction, error) {
	query := `SELECT ` + sqliteTransactionColumns + ` FROM transactions WHERE user_id = ? ORDER BY seq LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*model.Transaction, 0)
	for rows.Next() {
		tx, err := scanSQLiteTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

// UpdateTransaction replaces the mutable fields of an owned transaction.
func (s *SQLite) UpdateTransaction(ctx context.Context, tx *model.Transaction) (int64, error) {
	query := `
		UPDATE transactions
		SET type = ?, category = ?, amount_cents = ?, date = ?, description = ?
		WHERE id = ? AND user_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		string(tx.Kind),
		tx.Category,
		toCents(tx.Amount),
		tx.Date.String(),
		tx.Description,
		tx.ID,
		tx.OwnerID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update transaction: %w", err)
	}

	return result.RowsAffected()
}

// DeleteTransaction removes an owned transaction.
func (s *SQLite) DeleteTransaction(ctx context.Context, ownerID, id string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transaction: %w", err)
	}

	return result.RowsAffected()
}

// SumByKind aggregates the owner's amounts per kind.
func (s *SQLite) SumByKind(ctx context.Context, ownerID string, dr *model.DateRange) ([]model.KindTotal, error) {
	query := `SELECT type, SUM(amount_cents) FROM transactions WHERE user_id = ?`
	args := []any{ownerID}

	if dr != nil {
		query += ` AND date BETWEEN ? AND ?`
		args = append(args, dr.Start.String(), dr.End.String())
	}
	query += ` GROUP BY type`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sum by kind: %w", err)
	}
	defer rows.Close()

	var totals []model.KindTotal
	for rows.Next() {
		var (
			kind  string
			cents int64
		)
		if err := rows.Scan(&kind, &cents); err != nil {
			return nil, fmt.Errorf("failed to scan kind total: %w", err)
		}
		totals = append(totals, model.KindTotal{Kind: model.Kind(kind), Total: fromCents(cents)})
	}

	return totals, rows.Err()
}

// SumByCategory aggregates the owner's amounts per category within dr.
func (s *SQLite) SumByCategory(ctx context.Context, ownerID string, dr model.DateRange) ([]model.CategoryTotal, error) {
	query := `
		SELECT category, SUM(amount_cents)
		FROM transactions
		WHERE user_id = ? AND date BETWEEN ? AND ?
		GROUP BY category
		ORDER BY category
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, dr.Start.String(), dr.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to sum by category: %w", err)
	}
	defer rows.Close()

	totals := make([]model.CategoryTotal, 0)
	for rows.Next() {
		var (
			category string
			cents    int64
		)
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		totals = append(totals, model.CategoryTotal{Category: category, Total: fromCents(cents)})
	}

	return totals, rows.Err()
}

// scanSQLiteTransaction scans a row selected with sqliteTransactionColumns.
func scanSQLiteTransaction(row interface{ Scan(...any) error }) (*model.Transaction, error) {
	var (
		tx          model.Transaction
		kind        string
		cents       int64
		date        string
		description sql.NullString
		createdAt   string
	)

	if err := row.Scan(&tx.ID, &kind, &tx.Category, &cents, &date, &description, &tx.OwnerID, &createdAt); err != nil {
		return nil, err
	}

	var err error
	tx.Date, err = model.ParseDate(date)
	if err != nil {
		return nil, err
	}
	tx.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}

	tx.Kind = model.Kind(kind)
	tx.Amount = fromCents(cents)
	if description.Valid {
		tx.Description = &description.String
	}

	return &tx, nil
}

// sqliteErrorCode returns the extended result code of a SQLite error, or 0.
func sqliteErrorCode(err error) int {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()
	}
	return 0
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
