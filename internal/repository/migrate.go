package repository

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq" // database/sql driver used by the postgres migrator
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrate applies all pending embedded migrations for driver.
// The memory driver has no schema and is a no-op.
func Migrate(driver, databaseURL string) error {
	if driver == DriverMemory {
		return nil
	}

	m, err := newMigrator(driver, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// MigrateDown rolls back every applied migration. Intended for tests and tooling.
func MigrateDown(driver, databaseURL string) error {
	if driver == DriverMemory {
		return nil
	}

	m, err := newMigrator(driver, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}

	return nil
}

// newMigrator opens a dedicated connection so migrations never share the serving pool.
func newMigrator(driver, databaseURL string) (*migrate.Migrate, error) {
	var (
		sqlDriver string
		dsn       = databaseURL
	)
	switch driver {
	case DriverPostgres:
		sqlDriver = "postgres"
	case DriverSQLite:
		sqlDriver = "sqlite"
		dsn = sqliteDSN(databaseURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open migration database: %w", err)
	}

	var instance database.Driver
	switch driver {
	case DriverPostgres:
		instance, err = migratepg.WithInstance(db, &migratepg.Config{})
	case DriverSQLite:
		instance, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create %s migration driver: %w", driver, err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		instance.Close()
		return nil, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driver, instance)
	if err != nil {
		instance.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, nil
}
