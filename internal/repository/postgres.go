package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finledger/finledger/internal/model"
)

// PostgreSQL error codes the store reacts to.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new Postgres store with a connection pool.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Ping checks database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer adding methods to Postgres.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

// CreateUser inserts a new user.
func (p *Postgres) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, name, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := p.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.CredentialHash,
		user.CreatedAt,
	)
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID.
func (p *Postgres) GetUser(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, name, password_hash, created_at
		FROM users
		WHERE id = $1
	`

	var user model.User
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.CredentialHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return &user, nil
}

// ListCategories returns every category ordered by kind and name.
func (p *Postgres) ListCategories(ctx context.Context) ([]*model.Category, error) {
	query := `
		SELECT id, name, type
		FROM categories
		ORDER BY type, name
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*model.Category, 0)
	for rows.Next() {
		var c model.Category
		var kind string
		if err := rows.Scan(&c.ID, &c.Name, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.Kind = model.Kind(kind)
		categories = append(categories, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// pgErrorCode returns the SQLSTATE of a PostgreSQL error, or "" for other errors.
func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
