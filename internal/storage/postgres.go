package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgreSQL error codes the store reacts to
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// openPostgres opens a pooled PostgreSQL connection through lib/pq ("postgres")
// or pgx's database/sql adapter ("pgx").
func openPostgres(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	const defaultMaxOpenConnections = 20
	const defaultMaxIdleConnections = 5
	const defaultMaxConnLifetime = time.Hour
	const defaultMaxConnIdleTime = time.Minute * 5

	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// Configure connection pool settings
	db.SetMaxOpenConns(defaultMaxOpenConnections)
	db.SetMaxIdleConns(defaultMaxIdleConnections)
	db.SetConnMaxLifetime(defaultMaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)

	// Test the connection
	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}

// postgresErrorCode extracts the SQLSTATE from either PostgreSQL driver
func postgresErrorCode(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	return "", false
}
