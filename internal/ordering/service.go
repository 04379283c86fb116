package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dshills/bookstore-mcp/internal/cart"
	"github.com/dshills/bookstore-mcp/internal/storage"
	"github.com/dshills/bookstore-mcp/internal/telemetry"
	"github.com/dshills/bookstore-mcp/pkg/types"
)

// Logger is the structured logger used by the service
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// CartSource hands out cart snapshots for checkout and clears them once the
// order is committed. *cart.Service satisfies it.
type CartSource interface {
	Snapshot(ctx context.Context, sessionID string) (*cart.Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

// Service builds orders from cart snapshots and records their confirmation
type Service struct {
	store  storage.Storage
	carts  CartSource
	logger Logger
	now    func() time.Time
}

// Option configures a Service
type Option func(*Service) error

// WithLogger sets the logger
func WithLogger(logger Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			return fmt.Errorf("logger must not be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithClock overrides the clock that stamps order dates
func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		s.now = now
		return nil
	}
}

// WithCarts enables Checkout against the given cart source
func WithCarts(carts CartSource) Option {
	return func(s *Service) error {
		s.carts = carts
		return nil
	}
}

// NewService creates an ordering service
func NewService(store storage.Storage, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	s := &Service{
		store:  store,
		logger: telemetry.DiscardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// CreateOrder turns a cart snapshot into a persisted, unconfirmed order and
// debits declaredTotal from the client's balance. The debit, the order and
// its items commit together or not at all.
//
// The order price is declaredTotal as given; item prices come from the
// catalog at the moment of the order and are kept for display only.
func (s *Service) CreateOrder(ctx context.Context, clientEmail string, lines []types.CartLine, declaredTotal decimal.Decimal) (order *types.Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ordering.CreateOrder",
		attribute.String("client.email", clientEmail),
		attribute.Int("order.lines", len(lines)),
		attribute.String("order.total", declaredTotal.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	if len(lines) == 0 {
		return nil, types.ErrEmptyCart
	}
	if declaredTotal.IsNegative() {
		return nil, types.NewValidationError("price", "cannot be negative")
	}
	names := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, types.NewValidationError("quantity", fmt.Sprintf("must be at least 1 for %q", line.Book.Name))
		}
		if _, ok := seen[line.Book.Name]; !ok {
			seen[line.Book.Name] = struct{}{}
			names = append(names, line.Book.Name)
		}
	}

	s.logger.Info("processing new order", "client", clientEmail)

	err = storage.RunInTx(ctx, s.store, func(tx storage.Tx) error {
		client, err := tx.LockClientByEmail(ctx, clientEmail)
		if err != nil {
			return fmt.Errorf("client %s: %w", clientEmail, err)
		}

		if client.Balance.LessThan(declaredTotal) {
			s.logger.Warn("order failed: insufficient funds",
				"client", clientEmail,
				"balance", client.Balance.StringFixed(2),
				"required", declaredTotal.StringFixed(2))
			return &types.InsufficientFundsError{Balance: client.Balance, Required: declaredTotal}
		}

		client.Balance = client.Balance.Sub(declaredTotal)
		if err := tx.UpdateClient(ctx, client); err != nil {
			return fmt.Errorf("failed to debit client: %w", err)
		}

		// One lookup for every name in the cart
		found, err := tx.FindBooksByNames(ctx, names)
		if err != nil {
			return err
		}
		books := make(map[string]*types.Book, len(found))
		for _, b := range found {
			books[b.Name] = b
		}

		items := make([]types.BookItem, 0, len(lines))
		for _, line := range lines {
			book, ok := books[line.Book.Name]
			if !ok {
				s.logger.Error("order integrity error: book not found in DB during order creation",
					"book", line.Book.Name)
				return fmt.Errorf("book not found in DB: %s: %w", line.Book.Name, types.ErrNotFound)
			}
			items = append(items, types.BookItem{
				BookID:    book.ID,
				BookName:  book.Name,
				BookPrice: book.Price,
				Quantity:  line.Quantity,
			})
		}

		order = &types.Order{
			ClientEmail: client.Email,
			OrderDate:   s.now().UTC(),
			Price:       declaredTotal,
			Items:       items,
		}
		return tx.CreateOrder(ctx, client.ID, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created", "order_id", order.ID, "client", clientEmail)
	return order, nil
}

// ConfirmOrder records employeeEmail as the confirming employee. The first
// confirmation wins; confirming an already confirmed order is a logged
// no-op, including when a concurrent confirmer got there first.
func (s *Service) ConfirmOrder(ctx context.Context, orderID int64, employeeEmail string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "ordering.ConfirmOrder",
		attribute.Int64("order.id", orderID),
		attribute.String("employee.email", employeeEmail))
	defer func() { telemetry.EndSpan(span, err) }()

	s.logger.Info("employee attempting to confirm order", "employee", employeeEmail, "order_id", orderID)

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("order %d: %w", orderID, err)
	}
	if order.EmployeeEmail != "" {
		s.logger.Warn("order already processed", "order_id", orderID, "employee", order.EmployeeEmail)
		return nil
	}

	employee, err := s.store.GetEmployeeByEmail(ctx, employeeEmail)
	if err != nil {
		return fmt.Errorf("employee %s: %w", employeeEmail, err)
	}

	won, err := s.store.AssignEmployee(ctx, orderID, employee.ID)
	if err != nil {
		return err
	}
	if !won {
		s.logger.Warn("order already processed", "order_id", orderID)
		return nil
	}

	s.logger.Info("order confirmed", "order_id", orderID, "employee", employeeEmail)
	return nil
}

// ErrCheckoutUnavailable is returned by Checkout when no cart source is configured
var ErrCheckoutUnavailable = errors.New("checkout requires a cart source")

// Checkout places an order for the session's cart at the cart's total and
// clears the cart once the order is committed. A failed order leaves the
// cart untouched.
func (s *Service) Checkout(ctx context.Context, sessionID, clientEmail string) (order *types.Order, err error) {
	if s.carts == nil {
		return nil, ErrCheckoutUnavailable
	}
	ctx, span := telemetry.StartSpan(ctx, "ordering.Checkout", attribute.String("client.email", clientEmail))
	defer func() { telemetry.EndSpan(span, err) }()

	snapshot, err := s.carts.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if snapshot.IsEmpty() {
		return nil, types.ErrEmptyCart
	}

	order, err = s.CreateOrder(ctx, clientEmail, snapshot.Lines(), snapshot.Total())
	if err != nil {
		return nil, err
	}

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		// The order stands; a stale cart is only an inconvenience
		s.logger.Error("failed to clear cart after checkout", "session", sessionID, "order_id", order.ID, "error", err)
	}
	return order, nil
}

// GetOrder returns one order with its items
func (s *Service) GetOrder(ctx context.Context, id int64) (*types.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", id, err)
	}
	return order, nil
}

// OrdersByClient returns the client's orders, newest first
func (s *Service) OrdersByClient(ctx context.Context, email string) ([]*types.Order, error) {
	s.logger.Debug("fetching orders for client", "client", email)
	return s.store.ListOrdersByClient(ctx, email)
}

// OrdersByEmployee returns the orders an employee confirmed, newest first
func (s *Service) OrdersByEmployee(ctx context.Context, email string) ([]*types.Order, error) {
	s.logger.Debug("fetching orders managed by employee", "employee", email)
	return s.store.ListOrdersByEmployee(ctx, email)
}

// ListOrders returns one page of all orders sorted by order_date, price or employee
func (s *Service) ListOrders(ctx context.Context, req types.PageRequest) (*types.Page[*types.Order], error) {
	s.logger.Debug("fetching orders page", "page", req.Page)
	return s.store.ListOrders(ctx, req)
}
