package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/bookstore-mcp/internal/storage"
	"github.com/dshills/bookstore-mcp/internal/telemetry"
	"github.com/dshills/bookstore-mcp/pkg/types"
)

// Logger is the structured logger used by the catalog
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Service is the catalog of record: lookups for the cart and order
// builder, and book administration for employees.
type Service struct {
	store  storage.BookStore
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

// WithClock overrides the clock used to reject future publication dates
func WithClock(now func() time.Time) Option {
	return func(s *Service) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		s.now = now
		return nil
	}
}

// NewService creates a catalog service on top of store
func NewService(store storage.BookStore, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("book store is required")
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

// GetBookByName returns the current catalog record for name
func (s *Service) GetBookByName(ctx context.Context, name string) (*types.Book, error) {
	return s.store.GetBookByName(ctx, strings.TrimSpace(name))
}

// FindBooksByNames resolves all names in a single lookup. Names that do not
// exist are absent from the result; duplicates in names are ignored.
func (s *Service) FindBooksByNames(ctx context.Context, names []string) ([]*types.Book, error) {
	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	return s.store.FindBooksByNames(ctx, unique)
}

// AddBook validates and inserts a new book. A duplicate name fails with
// types.ErrAlreadyExists.
func (s *Service) AddBook(ctx context.Context, book *types.Book) (*types.Book, error) {
	book.Name = strings.TrimSpace(book.Name)
	if err := book.Validate(s.now()); err != nil {
		return nil, err
	}

	if err := s.store.CreateBook(ctx, book); err != nil {
		if errors.Is(err, types.ErrAlreadyExists) {
			return nil, fmt.Errorf("book with name %q: %w", book.Name, types.ErrAlreadyExists)
		}
		return nil, err
	}

	s.logger.Info("book added", "id", book.ID, "name", book.Name)
	return book, nil
}

// UpdateBook applies the descriptive fields of update to the named book.
// The name itself is the identity and never changes.
func (s *Service) UpdateBook(ctx context.Context, name string, update types.BookUpdate) (*types.Book, error) {
	book, err := s.store.GetBookByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("book %q: %w", name, err)
	}

	update.Apply(book)
	if err := book.Validate(s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, err
	}

	s.logger.Info("book updated", "name", book.Name)
	return book, nil
}

// DeleteBook removes the named book. A book that existing orders still
// reference fails with types.ErrInUse.
func (s *Service) DeleteBook(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if err := s.store.DeleteBook(ctx, name); err != nil {
		if errors.Is(err, types.ErrInUse) {
			s.logger.Warn("book is part of existing orders", "name", name)
			return fmt.Errorf("book %q is part of existing orders: %w", name, types.ErrInUse)
		}
		return fmt.Errorf("book %q: %w", name, err)
	}
	s.logger.Info("book deleted", "name", name)
	return nil
}

// ListBooks returns one page of the catalog
func (s *Service) ListBooks(ctx context.Context, req types.PageRequest) (*types.Page[*types.Book], error) {
	return s.store.ListBooks(ctx, req)
}
