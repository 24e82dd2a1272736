package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/finledger/finledger/internal/model"
)

const transactionColumns = `id, type, category, amount::text, date, description, user_id, created_at`

// CreateTransaction inserts a new transaction.
// Returns ErrOwnerNotFound if the owner does not reference an existing user.
func (p *Postgres) CreateTransaction(ctx context.Context, tx *model.Transaction) error {
	query := `
		INSERT INTO transactions (id, type, category, amount, date, description, user_id, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)
	`

	_, err := p.pool.Exec(ctx, query,
		tx.ID,
		string(tx.Kind),
		tx.Category,
		tx.Amount.StringFixed(2),
		tx.Date.Time(),
		tx.Description,
		tx.OwnerID,
		tx.CreatedAt,
	)
	if err != nil {
		switch pgErrorCode(err) {
		case pgForeignKeyViolation:
			return ErrOwnerNotFound
		case pgUniqueViolation:
			return ErrTransactionExists
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetTransaction retrieves a transaction by ID within the owner's scope.
func (p *Postgres) GetTransaction(ctx context.Context, ownerID, id string) (*model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1 AND user_id = $2
	`

	tx, err := scanTransaction(p.pool.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// ListTransactions retrieves a page of the owner's transactions in insertion order.
func (p *Postgres) ListTransactions(ctx context.Context, ownerID string, offset, limit int) ([]*model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY seq
		LIMIT $2 OFFSET $3
	`

	rows, err := p.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*model.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
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
func (p *Postgres) UpdateTransaction(ctx context.Context, tx *model.Transaction) (int64, error) {
	query := `
		UPDATE transactions
		SET type = $3, category = $4, amount = $5::numeric, date = $6, description = $7
		WHERE id = $1 AND user_id = $2
	`

	result, err := p.pool.Exec(ctx, query,
		tx.ID,
		tx.OwnerID,
		string(tx.Kind),
		tx.Category,
		tx.Amount.StringFixed(2),
		tx.Date.Time(),
		tx.Description,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update transaction: %w", err)
	}

	return result.RowsAffected(), nil
}

// DeleteTransaction removes an owned transaction.
func (p *Postgres) DeleteTransaction(ctx context.Context, ownerID, id string) (int64, error) {
	query := `DELETE FROM transactions WHERE id = $1 AND user_id = $2`

	result, err := p.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transaction: %w", err)
	}

	return result.RowsAffected(), nil
}

// SumByKind aggregates the owner's amounts per kind.
func (p *Postgres) SumByKind(ctx context.Context, ownerID string, dr *model.DateRange) ([]model.KindTotal, error) {
	var b strings.Builder
	b.WriteString(`SELECT type, SUM(amount)::text FROM transactions WHERE user_id = $1`)
	args := []any{ownerID}

	if dr != nil {
		b.WriteString(` AND date BETWEEN $2 AND $3`)
		args = append(args, dr.Start.Time(), dr.End.Time())
	}
	b.WriteString(` GROUP BY type`)

	rows, err := p.pool.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sum by kind: %w", err)
	}
	defer rows.Close()

	var totals []model.KindTotal
	for rows.Next() {
		var kind, sum string
		if err := rows.Scan(&kind, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan kind total: %w", err)
		}
		total, err := decimal.NewFromString(sum)
		if err != nil {
			return nil, fmt.Errorf("failed to parse kind total %q: %w", sum, err)
		}
		totals = append(totals, model.KindTotal{Kind: model.Kind(kind), Total: total})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating kind totals: %w", err)
	}

	return totals, nil
}

// SumByCategory aggregates the owner's amounts per category within dr.
func (p *Postgres) SumByCategory(ctx context.Context, ownerID string, dr model.DateRange) ([]model.CategoryTotal, error) {
	query := `
		SELECT category, SUM(amount)::text
		FROM transactions
		WHERE user_id = $1 AND date BETWEEN $2 AND $3
		GROUP BY category
		ORDER BY category
	`

	rows, err := p.pool.Query(ctx, query, ownerID, dr.Start.Time(), dr.End.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to sum by category: %w", err)
	}
	defer rows.Close()

	totals := make([]model.CategoryTotal, 0)
	for rows.Next() {
		var category, sum string
		if err := rows.Scan(&category, &sum); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		total, err := decimal.NewFromString(sum)
		if err != nil {
			return nil, fmt.Errorf("failed to parse category total %q: %w", sum, err)
		}
		totals = append(totals, model.CategoryTotal{Category: category, Total: total})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category totals: %w", err)
	}

	return totals, nil
}

// scanTransaction scans a row selected with transactionColumns.
func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		tx     model.Transaction
		kind   string
		amount string
		date   time.Time
	)

	err := row.Scan(
		&tx.ID,
		&kind,
		&tx.Category,
		&amount,
		&date,
		&tx.Description,
		&tx.OwnerID,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Kind = model.Kind(kind)
	tx.Date = model.DateOf(date.UTC())
	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}

	return &tx, nil
}
