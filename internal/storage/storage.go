package storage

import (
	"context"

	"github.com/dshills/bookstore-mcp/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = types.ErrNotFound
	// ErrAlreadyExists is returned when a unique key (book name, email) collides
	ErrAlreadyExists = types.ErrAlreadyExists
	// ErrInUse is returned when a row is still referenced by order data
	ErrInUse = types.ErrInUse
)

// BookStore is the catalog of record
type BookStore interface {
	GetBookByName(ctx context.Context, name string) (*types.Book, error)
	// FindBooksByNames resolves a set of names in a single query.
	// Names without a matching book are simply absent from the result.
	FindBooksByNames(ctx context.Context, names []string) ([]*types.Book, error)
	CreateBook(ctx context.Context, book *types.Book) error
	UpdateBook(ctx context.Context, book *types.Book) error
	DeleteBook(ctx context.Context, name string) error
	ListBooks(ctx context.Context, req types.PageRequest) (*types.Page[*types.Book], error)
}

// ClientStore persists client accounts and their balances
type ClientStore interface {
	GetClientByEmail(ctx context.Context, email string) (*types.Client, error)
	// LockClientByEmail loads a client for a read-modify-write of its balance.
	// Inside a transaction on a server database the row stays locked until commit.
	LockClientByEmail(ctx context.Context, email string) (*types.Client, error)
	CreateClient(ctx context.Context, client *types.Client) error
	UpdateClient(ctx context.Context, client *types.Client) error
	DeleteClient(ctx context.Context, email string) error
	ListClients(ctx context.Context, req types.PageRequest) (*types.Page[*types.Client], error)
	ListBlockedClientEmails(ctx context.Context) ([]string, error)
}

// EmployeeStore persists employee accounts
type EmployeeStore interface {
	GetEmployeeByEmail(ctx context.Context, email string) (*types.Employee, error)
	CreateEmployee(ctx context.Context, employee *types.Employee) error
	UpdateEmployee(ctx context.Context, employee *types.Employee) error
	DeleteEmployee(ctx context.Context, email string) error
	ListEmployees(ctx context.Context, req types.PageRequest) (*types.Page[*types.Employee], error)
}

// OrderStore persists orders together with their owned line items
type OrderStore interface {
	// CreateOrder inserts the order and all of its items. Items must carry BookID.
	CreateOrder(ctx context.Context, clientID int64, order *types.Order) error
	GetOrder(ctx context.Context, id int64) (*types.Order, error)
	ListOrdersByClient(ctx context.Context, email string) ([]*types.Order, error)
	ListOrdersByEmployee(ctx context.Context, email string) ([]*types.Order, error)
	ListOrders(ctx context.Context, req types.PageRequest) (*types.Page[*types.Order], error)
	// AssignEmployee sets the confirming employee only if none is set yet.
	// It reports false when another employee already holds the order.
	AssignEmployee(ctx context.Context, orderID, employeeID int64) (bool, error)
}

// Storage defines the interface for persisting bookstore data
type Storage interface {
	BookStore
	ClientStore
	EmployeeStore
	OrderStore

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// RunInTx runs fn inside a transaction and commits when fn returns nil.
// Any error from fn rolls the transaction back and is returned unchanged.
func RunInTx(ctx context.Context, s Storage, fn func(tx Tx) error) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
