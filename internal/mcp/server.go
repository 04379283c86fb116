package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/bookstore-mcp/internal/accounts"
	"github.com/dshills/bookstore-mcp/internal/cart"
	"github.com/dshills/bookstore-mcp/internal/catalog"
	"github.com/dshills/bookstore-mcp/internal/config"
	"github.com/dshills/bookstore-mcp/internal/ordering"
	"github.com/dshills/bookstore-mcp/internal/storage"
	"github.com/dshills/bookstore-mcp/internal/telemetry"
)

const (
	// ServerName is the MCP server name
	ServerName = "bookstore-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Logger is the structured logger used by the server
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Dependencies are the services behind the tools
type Dependencies struct {
	Storage  storage.Storage
	Catalog  *catalog.Service
	Importer *catalog.Importer
	Carts    *cart.Service
	Orders   *ordering.Service
	Accounts *accounts.Service
	Logger   Logger

	// Closed after the storage when the server stops
	Closers []io.Closer
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	catalog  *catalog.Service
	importer *catalog.Importer
	carts    *cart.Service
	orders   *ordering.Service
	accounts *accounts.Service
	logger   Logger
	closers  []io.Closer
}

// NewServer creates an MCP server over already constructed services
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Storage == nil || deps.Catalog == nil || deps.Carts == nil || deps.Orders == nil || deps.Accounts == nil {
		return nil, fmt.Errorf("storage, catalog, carts, orders and accounts are required")
	}
	if deps.Importer == nil {
		deps.Importer = catalog.NewImporter(deps.Catalog, 0)
	}
	if deps.Logger == nil {
		deps.Logger = telemetry.DiscardLogger()
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		storage:  deps.Storage,
		catalog:  deps.Catalog,
		importer: deps.Importer,
		carts:    deps.Carts,
		orders:   deps.Orders,
		accounts: deps.Accounts,
		logger:   deps.Logger,
		closers:  deps.Closers,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return s, nil
}

// NewServerFromConfig opens the store and cart backend named by cfg and wires
// every service. The caller owns the returned server and must Close it.
func NewServerFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = telemetry.DiscardLogger()
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DataSource())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var (
		cartStore cart.Store
		closers   []io.Closer
	)
	switch cfg.Cart.Backend {
	case config.CartBackendRedis:
		redisStore, err := cart.NewRedisStoreFromURL(ctx, cfg.Cart.RedisURL,
			cart.WithTTL(cfg.Cart.TTL), cart.WithPrefix(cfg.Cart.RedisPrefix))
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to initialize cart store: %w", err)
		}
		cartStore = redisStore
		closers = append(closers, redisStore)
	default:
		cartStore = cart.NewMemoryStore(cfg.Cart.MaxSessions, cfg.Cart.TTL)
	}

	fail := func(err error) (*Server, error) {
		_ = store.Close()
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}

	books, err := catalog.NewService(store, catalog.WithLogger(logger.With("component", "catalog")))
	if err != nil {
		return fail(err)
	}
	carts, err := cart.NewService(cartStore, books, cart.WithLogger(logger.With("component", "cart")))
	if err != nil {
		return fail(err)
	}
	orders, err := ordering.NewService(store,
		ordering.WithCarts(carts),
		ordering.WithLogger(logger.With("component", "ordering")))
	if err != nil {
		return fail(err)
	}
	accts, err := accounts.NewService(store,
		accounts.WithBcryptCost(cfg.Accounts.BcryptCost),
		accounts.WithLogger(logger.With("component", "accounts")))
	if err != nil {
		return fail(err)
	}

	s, err := NewServer(Dependencies{
		Storage:  store,
		Catalog:  books,
		Importer: catalog.NewImporter(books, cfg.Catalog.ImportWorkers),
		Carts:    carts,
		Orders:   orders,
		Accounts: accts,
		Logger:   logger.With("component", "mcp"),
		Closers:  closers,
	})
	if err != nil {
		return fail(err)
	}

	if cfg.Catalog.SeedFile != "" {
		stats, err := s.importer.Import(ctx, cfg.Catalog.SeedFile)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
		logger.Info("catalog seeded", "file", cfg.Catalog.SeedFile,
			"imported", stats.Imported, "skipped", stats.Skipped, "failed", stats.Failed)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until the client
// disconnects or the process is signalled
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()
	return server.ServeStdio(s.mcp)
}

// Close releases the storage and cart backends
func (s *Server) Close() error {
	err := s.storage.Close()
	for _, c := range s.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	// Catalog
	s.mcp.AddTool(listBooksTool(), s.handleListBooks)
	s.mcp.AddTool(getBookTool(), s.handleGetBook)
	s.mcp.AddTool(addBookTool(), s.handleAddBook)
	s.mcp.AddTool(updateBookTool(), s.handleUpdateBook)
	s.mcp.AddTool(deleteBookTool(), s.handleDeleteBook)
	s.mcp.AddTool(importCatalogTool(), s.handleImportCatalog)

	// Cart
	s.mcp.AddTool(newSessionTool(), s.handleNewSession)
	s.mcp.AddTool(cartAddTool(), s.handleCartAdd)
	s.mcp.AddTool(cartDecreaseTool(), s.handleCartDecrease)
	s.mcp.AddTool(cartRemoveTool(), s.handleCartRemove)
	s.mcp.AddTool(cartClearTool(), s.handleCartClear)
	s.mcp.AddTool(cartViewTool(), s.handleCartView)

	// Orders
	s.mcp.AddTool(checkoutTool(), s.handleCheckout)
	s.mcp.AddTool(confirmOrderTool(), s.handleConfirmOrder)
	s.mcp.AddTool(listOrdersTool(), s.handleListOrders)
	s.mcp.AddTool(myOrdersTool(), s.handleMyOrders)

	// Accounts
	s.mcp.AddTool(registerClientTool(), s.handleRegisterClient)
	s.mcp.AddTool(registerEmployeeTool(), s.handleRegisterEmployee)
	s.mcp.AddTool(authenticateTool(), s.handleAuthenticate)
	s.mcp.AddTool(topUpTool(), s.handleTopUp)
	s.mcp.AddTool(blockClientTool(), s.handleBlockClient)
	s.mcp.AddTool(unblockClientTool(), s.handleUnblockClient)
	s.mcp.AddTool(getClientTool(), s.handleGetClient)

	return nil
}
