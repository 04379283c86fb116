package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/jmoiron/sqlx"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"
)

// Migration represents a database schema migration. Up and Down are keyed by
// goqu dialect name because column types differ between SQLite and PostgreSQL.
type Migration struct {
	Version string
	Up      map[string]string
	Down    map[string]string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up: map[string]string{
			dialectSQLite:   migrationV1UpSQLite,
			dialectPostgres: migrationV1UpPostgres,
		},
		Down: map[string]string{
			dialectSQLite:   migrationV1Down,
			dialectPostgres: migrationV1Down,
		},
	},
	{
		Version: "1.1.0",
		Up: map[string]string{
			dialectSQLite:   migrationV11Up,
			dialectPostgres: migrationV11Up,
		},
		Down: map[string]string{
			dialectSQLite:   migrationV11Down,
			dialectPostgres: migrationV11Down,
		},
	},
}

const schemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// Money columns are TEXT in SQLite so decimal values round-trip exactly.
const migrationV1UpSQLite = `
-- Books table
CREATE TABLE IF NOT EXISTS books (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    genre TEXT NOT NULL,
    age_group TEXT NOT NULL,
    price TEXT NOT NULL,
    publication_date DATE NOT NULL,
    author TEXT NOT NULL,
    pages INTEGER NOT NULL CHECK (pages >= 1),
    characteristics TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    language TEXT NOT NULL
);

-- Clients table
CREATE TABLE IF NOT EXISTS clients (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name TEXT NOT NULL,
    balance TEXT NOT NULL DEFAULT '0' CHECK (CAST(balance AS REAL) >= 0),
    blocked BOOLEAN NOT NULL DEFAULT 0
);

-- Employees table
CREATE TABLE IF NOT EXISTS employees (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name TEXT NOT NULL,
    birth_date DATE NOT NULL,
    phone TEXT NOT NULL
);

-- Orders table
CREATE TABLE IF NOT EXISTS orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    client_id INTEGER NOT NULL,
    employee_id INTEGER,
    order_date TIMESTAMP NOT NULL,
    price TEXT NOT NULL,
    FOREIGN KEY (client_id) REFERENCES clients(id),
    FOREIGN KEY (employee_id) REFERENCES employees(id)
);

-- Order line items
CREATE TABLE IF NOT EXISTS book_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id INTEGER NOT NULL,
    book_id INTEGER NOT NULL,
    price TEXT NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity >= 1),
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
    FOREIGN KEY (book_id) REFERENCES books(id)
);
`

// Money columns are unconstrained NUMERIC so amounts are neither rounded nor capped.
const migrationV1UpPostgres = `
-- Books table
CREATE TABLE IF NOT EXISTS books (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    genre TEXT NOT NULL,
    age_group TEXT NOT NULL,
    price NUMERIC NOT NULL,
    publication_date DATE NOT NULL,
    author TEXT NOT NULL,
    pages INTEGER NOT NULL CHECK (pages >= 1),
    characteristics TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    language TEXT NOT NULL
);

-- Clients table
CREATE TABLE IF NOT EXISTS clients (
    id BIGSERIAL PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name TEXT NOT NULL,
    balance NUMERIC NOT NULL DEFAULT 0 CHECK (balance >= 0),
    blocked BOOLEAN NOT NULL DEFAULT FALSE
);

-- Employees table
CREATE TABLE IF NOT EXISTS employees (
    id BIGSERIAL PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name TEXT NOT NULL,
    birth_date DATE NOT NULL,
    phone TEXT NOT NULL
);

-- Orders table
CREATE TABLE IF NOT EXISTS orders (
    id BIGSERIAL PRIMARY KEY,
    client_id BIGINT NOT NULL REFERENCES clients(id),
    employee_id BIGINT REFERENCES employees(id),
    order_date TIMESTAMPTZ NOT NULL,
    price NUMERIC NOT NULL
);

-- Order line items
CREATE TABLE IF NOT EXISTS book_items (
    id BIGSERIAL PRIMARY KEY,
    order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    book_id BIGINT NOT NULL REFERENCES books(id),
    price NUMERIC NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity >= 1)
);
`

const migrationV1Down = `
-- Drop all tables in reverse order of dependencies
DROP TABLE IF EXISTS book_items;
DROP TABLE IF EXISTS orders;
DROP TABLE IF EXISTS employees;
DROP TABLE IF EXISTS clients;
DROP TABLE IF EXISTS books;
`

const migrationV11Up = `
CREATE INDEX IF NOT EXISTS idx_orders_client ON orders(client_id);
CREATE INDEX IF NOT EXISTS idx_orders_employee ON orders(employee_id);
CREATE INDEX IF NOT EXISTS idx_orders_date ON orders(order_date);
CREATE INDEX IF NOT EXISTS idx_book_items_order ON book_items(order_id);
CREATE INDEX IF NOT EXISTS idx_book_items_book ON book_items(book_id);
CREATE INDEX IF NOT EXISTS idx_books_author ON books(author);
CREATE INDEX IF NOT EXISTS idx_books_genre ON books(genre);
`

const migrationV11Down = `
DROP INDEX IF EXISTS idx_books_genre;
DROP INDEX IF EXISTS idx_books_author;
DROP INDEX IF EXISTS idx_book_items_book;
DROP INDEX IF EXISTS idx_book_items_order;
DROP INDEX IF EXISTS idx_orders_date;
DROP INDEX IF EXISTS idx_orders_employee;
DROP INDEX IF EXISTS idx_orders_client;
`

// currentVersion returns the highest applied schema version, or 0.0.0
func currentVersion(ctx context.Context, db *sqlx.DB) (*semver.Version, error) {
	var applied []string
	if err := db.SelectContext(ctx, &applied, "SELECT version FROM schema_version"); err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}

	current := semver.MustParse("0.0.0")
	for _, v := range applied {
		version, err := semver.NewVersion(v)
		if err != nil {
			return nil, fmt.Errorf("invalid current schema version %s: %w", v, err)
		}
		if version.GreaterThan(current) {
			current = version
		}
	}
	return current, nil
}

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sqlx.DB, dialect string) error {
	if _, err := db.ExecContext(ctx, schemaVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	// Run migrations in order
	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		// Skip if already applied
		if !current.LessThan(migrationVersion) {
			continue
		}

		up, ok := migration.Up[dialect]
		if !ok {
			return fmt.Errorf("migration %s has no %s variant", migration.Version, dialect)
		}
		if err := execScript(ctx, db, up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		// Record migration
		if _, err := db.ExecContext(ctx, db.Rebind("INSERT INTO schema_version (version) VALUES (?)"), migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		current = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sqlx.DB, dialect string) error {
	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}
	if current.Equal(semver.MustParse("0.0.0")) {
		return fmt.Errorf("no migrations to rollback")
	}

	// Find migration
	var migration *Migration
	for i := range AllMigrations {
		if v, err := semver.NewVersion(AllMigrations[i].Version); err == nil && v.Equal(current) {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", current)
	}

	if err := execScript(ctx, db, migration.Down[dialect]); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}

	// Remove version record
	if _, err := db.ExecContext(ctx, db.Rebind("DELETE FROM schema_version WHERE version = ?"), migration.Version); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", migration.Version, err)
	}

	return nil
}

// execScript runs a migration script one statement at a time, since not every
// driver accepts several statements in one Exec.
func execScript(ctx context.Context, db *sqlx.DB, script string) error {
	for _, stmt := range splitStatements(script) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements splits a script on ';' and drops comment-only fragments.
// Migration scripts never contain ';' inside literals.
func splitStatements(script string) []string {
	var stmts []string
	for _, part := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(part, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			stmts = append(stmts, strings.TrimSpace(strings.Join(lines, "\n")))
		}
	}
	return stmts
}
