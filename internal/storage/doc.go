// Package storage provides relational persistence for the bookstore.
//
// The storage layer manages:
//   - Books (the catalog of record, unique by name)
//   - Clients with their balances and blocked flag
//   - Employees
//   - Orders and their owned book items
//
// The same code runs on SQLite (the default, via modernc.org/sqlite or, with
// the sqlite_cgo build tag, github.com/mattn/go-sqlite3) and on PostgreSQL
// (via lib/pq or pgx). Queries that differ between dialects are rendered by
// goqu; the rest are plain SQL rebound by sqlx.
//
// # Database Schema
//
// Tables:
//   - books: catalog records
//   - clients: client accounts and balances
//   - employees: staff accounts
//   - orders: order headers (owner, optional confirming employee, total)
//   - book_items: order lines referencing books
//   - schema_version: applied migrations
//
// # Basic Usage
//
//	store, err := storage.Open(ctx, storage.DriverSQLite, "bookstore.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	books, err := store.FindBooksByNames(ctx, []string{"Java", "Python"})
//
// # Transactions
//
// Use transactions for atomic operations. Every method of Tx runs on the
// transaction itself:
//
//	err := storage.RunInTx(ctx, store, func(tx storage.Tx) error {
//	    client, err := tx.LockClientByEmail(ctx, email)
//	    if err != nil {
//	        return err
//	    }
//	    client.Balance = client.Balance.Sub(total)
//	    if err := tx.UpdateClient(ctx, client); err != nil {
//	        return err
//	    }
//	    return tx.CreateOrder(ctx, client.ID, order)
//	})
//
// # Money
//
// Prices and balances are decimal.Decimal. SQLite stores them as TEXT so
// they round-trip exactly; PostgreSQL uses unconstrained NUMERIC.
package storage
