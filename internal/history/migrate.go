package history

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// migrateUp runs pending migrations on a dedicated connection. Closing the
// migrate instance also closes that connection.
func migrateUp(d dialect, dsn string) error {
	sourceDriver, err := iofs.New(migrations, "migrations/"+d.name)
	if err != nil {
		return fmt.Errorf("failed to create source driver: %w", err)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		sourceDriver.Close()
		return fmt.Errorf("failed to open database: %w", err)
	}

	var dbDriver database.Driver
	switch d.name {
	case "postgres":
		dbDriver, err = postgres.WithInstance(db, &postgres.Config{MigrationsTable: "schema_migrations"})
	default:
		dbDriver, err = sqlite.WithInstance(db, &sqlite.Config{MigrationsTable: "schema_migrations"})
	}
	if err != nil {
		sourceDriver.Close()
		db.Close()
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, d.name, dbDriver)
	if err != nil {
		sourceDriver.Close()
		dbDriver.Close()
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
