package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/bookstore-mcp/pkg/types"
)

func setupTestDB(t *testing.T) *SQLStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, money(want).Equal(got), "expected %s, got %s", want, got)
}

func testBook(name, price string) *types.Book {
	return &types.Book{
		Name:            name,
		Genre:           "Programming",
		AgeGroup:        types.AgeGroupAdult,
		Price:           money(price),
		PublicationDate: time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC),
		Author:          "Author of " + name,
		Pages:           300,
		Language:        types.LanguageEnglish,
	}
}

func testClient(email, balance string) *types.Client {
	return &types.Client{
		Account: types.Account{Email: email, PasswordHash: "hash", Name: "Client " + email},
		Balance: money(balance),
	}
}

func testEmployee(email string) *types.Employee {
	return &types.Employee{
		Account:   types.Account{Email: email, PasswordHash: "hash", Name: "Employee " + email},
		BirthDate: time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC),
		Phone:     "+380501234567",
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)

	assert.NotNil(t, storage.db)
	assert.Equal(t, dialectSQLite, storage.dialect)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestOpen_PostgresRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), DriverPgx, "")
	require.Error(t, err)
}

func TestClose(t *testing.T) {
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	assert.NoError(t, storage.Close())
}

func TestTransaction_Rollback(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.CreateBook(ctx, testBook("Go", "25.00")))

	// Reads inside the transaction see its own writes
	book, err := tx.GetBookByName(ctx, "Go")
	require.NoError(t, err)
	assert.Equal(t, "Go", book.Name)

	require.NoError(t, tx.Rollback())

	_, err = storage.GetBookByName(ctx, "Go")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransaction_Commit(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	err := RunInTx(ctx, storage, func(tx Tx) error {
		return tx.CreateBook(ctx, testBook("Go", "25.00"))
	})
	require.NoError(t, err)

	book, err := storage.GetBookByName(ctx, "Go")
	require.NoError(t, err)
	assertMoney(t, "25.00", book.Price)
}

func TestRunInTx_ErrorRollsBack(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	err := RunInTx(ctx, storage, func(tx Tx) error {
		if err := tx.CreateBook(ctx, testBook("Go", "25.00")); err != nil {
			return err
		}
		return tx.CreateBook(ctx, testBook("Go", "26.00"))
	})
	require.ErrorIs(t, err, ErrAlreadyExists)

	_, err = storage.GetBookByName(ctx, "Go")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransaction_NestedNotSupported(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = tx.BeginTx(ctx)
	assert.Error(t, err)
	assert.NoError(t, tx.Close())
}

func TestMigrations_Idempotent(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, storage.db, dialectSQLite))

	version, err := currentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version.String())
}

func TestMigrations_Rollback(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, storage.db, dialectSQLite))
	version, err := currentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version.String())

	require.NoError(t, RollbackMigration(ctx, storage.db, dialectSQLite))
	version, err = currentVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", version.String())

	err = RollbackMigration(ctx, storage.db, dialectSQLite)
	assert.Error(t, err)

	// Re-applying brings the schema back
	require.NoError(t, ApplyMigrations(ctx, storage.db, dialectSQLite))
	require.NoError(t, storage.CreateBook(ctx, testBook("Go", "25.00")))
}

func TestSplitStatements(t *testing.T) {
	script := `
-- comment only
CREATE TABLE a (id INTEGER);

-- another
CREATE INDEX idx ON a(id);
`
	stmts := splitStatements(script)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (id INTEGER)", stmts[0])
	assert.Equal(t, "CREATE INDEX idx ON a(id)", stmts[1])
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, translateError(nil))
	assert.ErrorIs(t, translateError(assert.AnError), assert.AnError)
}
