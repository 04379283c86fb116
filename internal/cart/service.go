package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dshills/bookstore-mcp/internal/telemetry"
	"github.com/dshills/bookstore-mcp/pkg/types"
)

// BookLookup resolves a book name to its current catalog snapshot
type BookLookup interface {
	GetBookByName(ctx context.Context, name string) (*types.Book, error)
}

// Logger is the structured logger used by the service
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Service runs cart operations against the cart of one session at a time.
// Carts of different sessions never share state.
type Service struct {
	store   Store
	catalog BookLookup
	logger  Logger
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

// NewService creates a cart service
func NewService(store Store, catalog BookLookup, opts ...Option) (*Service, error) {
	s := &Service{
		store:   store,
		catalog: catalog,
		logger:  telemetry.DiscardLogger(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewSessionID returns a fresh random session identifier
func NewSessionID() string {
	return uuid.New().String()
}

// AddBook adds one copy of the named book. The catalog is consulted only
// the first time the name enters the cart.
func (s *Service) AddBook(ctx context.Context, sessionID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.NewValidationError("name", "cannot be empty")
	}

	return s.update(ctx, sessionID, func(c *Cart) error {
		if c.Increment(name) {
			return nil
		}
		book, err := s.catalog.GetBookByName(ctx, name)
		if err != nil {
			return fmt.Errorf("book %q: %w", name, err)
		}
		c.Add(*book)
		s.logger.Debug("book added to cart", "session", sessionID, "book", name)
		return nil
	})
}

// DecreaseQuantity removes one copy; the last copy removes the entry
func (s *Service) DecreaseQuantity(ctx context.Context, sessionID, name string) error {
	return s.update(ctx, sessionID, func(c *Cart) error {
		c.Decrease(name)
		return nil
	})
}

// RemoveItem drops the named book regardless of quantity
func (s *Service) RemoveItem(ctx context.Context, sessionID, name string) error {
	return s.update(ctx, sessionID, func(c *Cart) error {
		c.Remove(name)
		s.logger.Debug("book removed from cart", "session", sessionID, "book", name)
		return nil
	})
}

// Clear empties the session's cart
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.logger.Debug("cart cleared", "session", sessionID)
	return nil
}

// Details returns the cart lines in first-add order
func (s *Service) Details(ctx context.Context, sessionID string) ([]types.CartLine, error) {
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return c.Lines(), nil
}

// TotalPrice returns the decimal-exact cart total
func (s *Service) TotalPrice(ctx context.Context, sessionID string) (decimal.Decimal, error) {
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Total(), nil
}

// Snapshot returns a private copy of the session's cart
func (s *Service) Snapshot(ctx context.Context, sessionID string) (*Cart, error) {
	return s.store.Load(ctx, sessionID)
}

func (s *Service) update(ctx context.Context, sessionID string, fn func(c *Cart) error) error {
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := fn(c); err != nil {
		return err
	}
	return s.store.Save(ctx, sessionID, c)
}
