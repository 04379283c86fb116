package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"

	"github.com/dshills/bookstore-mcp/pkg/types"
)

// Supported database drivers, as accepted by Open
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

const (
	dialectSQLite   = "sqlite3"
	dialectPostgres = "postgres"
)

// SQLStorage implements the Storage interface on top of database/sql.
// The same queries run against SQLite and PostgreSQL; goqu renders the
// dialect-specific parts.
type SQLStorage struct {
	queries
	db *sqlx.DB
}

var (
	_ Storage = (*SQLStorage)(nil)
	_ Tx      = (*sqlTx)(nil)
)

// querier is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
}

// queries carries every statement of the store. It is embedded both in
// SQLStorage (running on the pool) and in sqlTx (running on the transaction),
// so reads inside a transaction always see the transaction's own writes.
type queries struct {
	q       querier
	dialect string
	builder goqu.DialectWrapper
	inTx    bool
}

func newQueries(q querier, dialect string, inTx bool) queries {
	return queries{q: q, dialect: dialect, builder: goqu.Dialect(dialect), inTx: inTx}
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Open(SQLiteDriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Open connects to the database named by driver and applies pending migrations.
// For DriverSQLite the dsn is a file path or ":memory:".
func Open(ctx context.Context, driver, dsn string) (*SQLStorage, error) {
	var (
		db      *sqlx.DB
		dialect string
		err     error
	)

	switch driver {
	case DriverSQLite, "sqlite3", "":
		db, err = openDatabase(dsn)
		dialect = dialectSQLite
	case DriverPostgres, DriverPgx:
		db, err = openPostgres(ctx, driver, dsn)
		dialect = dialectPostgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLStorage{queries: newQueries(db, dialect, false), db: db}, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLStorage, error) {
	return Open(context.Background(), DriverSQLite, dbPath)
}

// Close closes the database connection
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{queries: newQueries(tx, s.dialect, true), tx: tx}, nil
}

// sqlTx wraps a SQL transaction
type sqlTx struct {
	queries
	tx *sqlx.Tx
}

func (t *sqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqlTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqlTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

// selectOne runs a goqu dataset expected to return a single row
func (q queries) selectOne(ctx context.Context, dest interface{}, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if err := q.q.GetContext(ctx, dest, query, args...); err != nil {
		return translateError(err)
	}
	return nil
}

// selectAll runs a goqu dataset into a slice
func (q queries) selectAll(ctx context.Context, dest interface{}, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	if err := q.q.SelectContext(ctx, dest, query, args...); err != nil {
		return translateError(err)
	}
	return nil
}

// count returns the number of rows the dataset would produce without paging
func (q queries) count(ctx context.Context, ds *goqu.SelectDataset) (int, error) {
	var total int
	if err := q.selectOne(ctx, &total, ds.ClearOrder().Select(goqu.COUNT(goqu.Star()))); err != nil {
		return 0, err
	}
	return total, nil
}

// page applies the normalized request's limit and offset
func page(ds *goqu.SelectDataset, req types.PageRequest) *goqu.SelectDataset {
	return ds.Limit(uint(req.Size)).Offset(uint(req.Offset()))
}

// exec runs a hand-written statement written with '?' placeholders
func (q queries) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	result, err := q.q.ExecContext(ctx, q.q.Rebind(query), args...)
	if err != nil {
		return nil, translateError(err)
	}
	return result, nil
}

// insertReturningID runs an INSERT ... RETURNING id statement
func (q queries) insertReturningID(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := q.q.GetContext(ctx, &id, q.q.Rebind(query+" RETURNING id"), args...); err != nil {
		return 0, translateError(err)
	}
	return id, nil
}

// numeric returns an orderable expression for a money column. SQLite keeps
// decimals as TEXT, so they are cast for ordering.
func (q queries) numeric(col string) exp.Orderable {
	if q.dialect == dialectSQLite {
		return goqu.L("CAST(? AS REAL)", goqu.I(col))
	}
	return goqu.L("?", goqu.I(col))
}

// containsAny matches keyword case-insensitively against any of cols
func containsAny(keyword string, cols ...string) exp.Expression {
	pattern := "%" + strings.ToLower(keyword) + "%"
	ors := make([]exp.Expression, 0, len(cols))
	for _, col := range cols {
		ors = append(ors, goqu.L("LOWER(?)", goqu.I(col)).Like(pattern))
	}
	return goqu.Or(ors...)
}

// ordered wraps expr in the requested direction
func ordered(expr exp.Orderable, direction string) exp.OrderedExpression {
	if direction == types.SortDesc {
		return expr.Desc()
	}
	return expr.Asc()
}

// checkAffected turns a zero-row update or delete into ErrNotFound
func checkAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// translateError maps driver errors onto the store's sentinel errors
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", ErrInUse, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if code, ok := postgresErrorCode(err); ok {
		return code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if code, ok := postgresErrorCode(err); ok {
		return code == pgForeignKeyViolation
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
