package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dshills/bookstore-mcp/internal/accounts"
	"github.com/dshills/bookstore-mcp/internal/cart"
	"github.com/dshills/bookstore-mcp/internal/catalog"
	"github.com/dshills/bookstore-mcp/internal/config"
	"github.com/dshills/bookstore-mcp/internal/ordering"
	"github.com/dshills/bookstore-mcp/internal/storage"
)

const (
	employeeEmail = "staff@example.com"
	clientEmail   = "ann@example.com"
)

type handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// setupTestServer wires every service over an in-memory database
func setupTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)

	books, err := catalog.NewService(store)
	require.NoError(t, err)
	carts, err := cart.NewService(cart.NewMemoryStore(100, 0), books)
	require.NoError(t, err)
	orders, err := ordering.NewService(store, ordering.WithCarts(carts))
	require.NoError(t, err)
	accts, err := accounts.NewService(store, accounts.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	s, err := NewServer(Dependencies{
		Storage:  store,
		Catalog:  books,
		Carts:    carts,
		Orders:   orders,
		Accounts: accts,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func call(t *testing.T, h handler, args map[string]interface{}) (map[string]interface{}, error) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args

	result, err := h(context.Background(), req)
	if err != nil {
		return nil, err
	}
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out, nil
}

func mustCall(t *testing.T, h handler, args map[string]interface{}) map[string]interface{} {
	t.Helper()
	out, err := call(t, h, args)
	require.NoError(t, err)
	return out
}

func errorCode(t *testing.T, err error) int {
	t.Helper()
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	return mcpErr.Code
}

func bookArgs(name, price string) map[string]interface{} {
	return map[string]interface{}{
		"employee_email":   employeeEmail,
		"name":             name,
		"genre":            "Programming",
		"age_group":        "adult",
		"price":            price,
		"publication_date": "2020-01-01",
		"author":           "Author of " + name,
		"pages":            float64(300),
		"language":         "english",
	}
}

// seedShop registers one employee, one client with the given balance and two books
func seedShop(t *testing.T, s *Server, balance string) {
	t.Helper()
	mustCall(t, s.handleRegisterEmployee, map[string]interface{}{
		"email":      employeeEmail,
		"password":   "secret",
		"name":       "Staff",
		"birth_date": "1990-05-01",
		"phone":      "+380501234567",
	})
	mustCall(t, s.handleRegisterClient, map[string]interface{}{
		"email":    clientEmail,
		"password": "secret",
		"name":     "Ann",
	})
	if balance != "0" {
		mustCall(t, s.handleTopUp, map[string]interface{}{
			"client_email": clientEmail,
			"amount":       balance,
		})
	}
	mustCall(t, s.handleAddBook, bookArgs("Java", "30.00"))
	mustCall(t, s.handleAddBook, bookArgs("Python", "20.00"))
}

func newSession(t *testing.T, s *Server) string {
	t.Helper()
	out := mustCall(t, s.handleNewSession, nil)
	id, ok := out["session_id"].(string)
	require.True(t, ok)
	return id
}

func TestNewServer_RequiresServices(t *testing.T) {
	_, err := NewServer(Dependencies{})
	assert.Error(t, err)
}

func TestShoppingFlow(t *testing.T) {
	s := setupTestServer(t)
	seedShop(t, s, "100.00")
	session := newSession(t, s)

	mustCall(t, s.handleCartAdd, map[string]interface{}{"session_id": session, "book_name": "Java", "client_email": clientEmail})
	mustCall(t, s.handleCartAdd, map[string]interface{}{"session_id": session, "book_name": "Python", "client_email": clientEmail})
	view := mustCall(t, s.handleCartAdd, map[string]interface{}{"session_id": session, "book_name": "Python", "client_email": clientEmail})
	assert.Equal(t, "70.00", view["total"])
	items := view["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "Java", items[0].(map[string]interface{})["book_name"])
	assert.Equal(t, float64(2), items[1].(map[string]interface{})["quantity"])

	view = mustCall(t, s.handleCartDecrease, map[string]interface{}{"session_id": session, "book_name": "Python", "client_email": clientEmail})
	assert.Equal(t, "50.00", view["total"])

	order := mustCall(t, s.handleCheckout, map[string]interface{}{"session_id": session, "client_email": clientEmail})
	assert.Equal(t, "50.00", order["price"])
	assert.Equal(t, "UNCONFIRMED", order["status"])
	assert.Len(t, order["items"], 2)

	client := mustCall(t, s.handleGetClient, map[string]interface{}{"client_email": clientEmail})
	assert.Equal(t, "50.00", client["balance"])

	view = mustCall(t, s.handleCartView, map[string]interface{}{"session_id": session})
	assert.Equal(t, "0.00", view["total"])
	assert.Empty(t, view["items"])

	confirmed := mustCall(t, s.handleConfirmOrder, map[string]interface{}{
		"employee_email": employeeEmail,
		"order_id":       order["id"],
	})
	assert.Equal(t, "CONFIRMED", confirmed["status"])
	assert.Equal(t, employeeEmail, confirmed["employee_email"])

	mine := mustCall(t, s.handleMyOrders, map[string]interface{}{"email": clientEmail})
	assert.Equal(t, "CLIENT", mine["role"])
	assert.Len(t, mine["orders"], 1)

	managed := mustCall(t, s.handleMyOrders, map[string]interface{}{"email": employeeEmail})
	assert.Equal(t, "EMPLOYEE", managed["role"])
	assert.Len(t, managed["orders"], 1)

	all := mustCall(t, s.handleListOrders, map[string]interface{}{"employee_email": employeeEmail})
	assert.Equal(t, float64(1), all["total"])
}

func TestCheckout_InsufficientFundsKeepsCart(t *testing.T) {
	s := setupTestServer(t)
	seedShop(t, s, "10.00")
	session := newSession(t, s)
	mustCall(t, s.handleCartAdd, map[string]interface{}{"session_id": session, "book_name": "Java", "client_email": clientEmail})

	_, err := call(t, s.handleCheckout, map[string]interface{}{"session_id": session, "client_email": clientEmail})
	assert.Equal(t, ErrorCodeInsufficientFunds, errorCode(t, err))

	view := mustCall(t, s.handleCartView, map[string]interface{}{"session_id": session})
	assert.Equal(t, "30.00", view["total"])
	client := mustCall(t, s.handleGetClient, map[string]interface{}{"client_email": clientEmail})
	assert.Equal(t, "10.00", client["balance"])
}

func TestCheckout_EmptyCart(t *testing.T) {
	s := setupTestServer(t)
	seedShop(t, s, "10.00")

	_, err := call(t, s.handleCheckout, map[string]interface{}{"session_id": newSession(t, s), "client_email": clientEmail})
	assert.Equal(t, ErrorCodeEmptyCart, errorCode(t, err))
}

func TestConfirmOrder_SecondConfirmationIsNoOp(t *testing.T) {
	s := setupTestServer(t)
	seedShop(t, s, "100.00")
	mustCall(t, s.handleRegisterEmployee, map[string]interface{}{
		"email":      "late@example.com",
		"password":   "secret",
		"name":       "Late",
		"birth_date": "1985-01-01",
		"phone":      "555-0100",
	})
	session := newSession(t, s)
	mustCall(t, s.handleCartAdd, map[string]interface{}{"session_id": session, "book_name": "Java", "client_email": clientEmail})
	order := mustCall(t, s.handleCheckout, map[string]interface{}{"session_id": session, "client_email": clientEmail})

	mustCall(t, s.handleConfirmOrder, map[string]interface{}{"employee_email": employeeEmail, "order_id": order["id"]})
	again := mustCall(t, s.handleConfirmOrder, map[string]interface{}{"employee_email": "late@example.com", "order_id": order["id"]})
	assert.Equal(t, employeeEmail, again["employee_email"])

	_, err := call(t, s.handleConfirmOrder, map[string]interface{}{"employee_email": employeeEmail, "order_id": float64(999)})
	assert.Equal(t, ErrorCodeNotFound, errorCode(t, err))
}

func TestEmployeeToolsRequireEmployee(t *testing.T) {
	s := setupTestServer(t)
	seedShop(t, s, "0")

	args := bookArgs("Go", "25.00")
	args["employee_email"] = clientEmail
	_, err := call(t, s.handleAddBook, args)
	assert.Equal(t, ErrorCodeForbidden, errorCode(t, err))

	_, err = call(t, s.handleListOrders, map[string]interface{}{"employee_email": "nobody@example.com"})
	assert.Equal(t, ErrorCodeForbidden, errorCode(t, err))

	_, err = call(t, s.handleDeleteBook, map[string]interface{}{"name": "Java"})
	assert.Equal(t, ErrorCodeInvalidParams, errorCode(t, err))
}

func TestBlockedClientCannotShop(t *testing.T) {
	s := setupTestServer(t)
	seedShop(t, s, "100.00")
	session := newSession(t, s)
	mustCall(t, s.handleCartAdd, map[string]interface{}{"session_id": session, "book_name": "Java", "client_email": clientEmail})

	blocked := mustCall(t, s.handleBlockClient, map[string]interface{}{"employee_email": employeeEmail, "client_email": clientEmail})
	assert.Equal(t, true, blocked["blocked"])

	_, err := call(t, s.handleCartAdd, map[string]interface{}{"session_id": session, "book_name": "Java", "client_email": clientEmail})
	assert.Equal(t, ErrorCodeAccountBlocked, errorCode(t, err))
	_, err = call(t, s.handleCartDecrease, map[string]interface{}{"session_id": session, "book_name": "Java", "client_email": clientEmail})
	assert.Equal(t, ErrorCodeAccountBlocked, errorCode(t, err))
	_, err = call(t, s.handleCheckout, map[string]interface{}{"session_id": session, "client_email": clientEmail})
	assert.Equal(t, ErrorCodeAccountBlocked, errorCode(t, err))
	_, err = call(t, s.handleAuthenticate, map[string]interface{}{"email": clientEmail, "password": "secret"})
	assert.Equal(t, ErrorCodeAccountBlocked, errorCode(t, err))

	mustCall(t, s.handleUnblockClient, map[string]interface{}{"employee_email": employeeEmail, "client_email": clientEmail})
	order := mustCall(t, s.handleCheckout, map[string]interface{}{"session_id": session, "client_email": clientEmail})
	assert.Equal(t, "30.00", order["price"])
}

func TestCartTools_RequireClientEmail(t *testing.T) {
	s := setupTestServer(t)
	seedShop(t, s, "0")
	session := newSession(t, s)

	for _, h := range []handler{s.handleCartAdd, s.handleCartDecrease, s.handleCartRemove} {
		_, err := call(t, h, map[string]interface{}{"session_id": session, "book_name": "Java"})
		assert.Equal(t, ErrorCodeInvalidParams, errorCode(t, err))
	}

	_, err := call(t, s.handleCartAdd, map[string]interface{}{"session_id": session, "book_name": "Java", "client_email": "ghost@example.com"})
	assert.Equal(t, ErrorCodeNotFound, errorCode(t, err))

	view := mustCall(t, s.handleCartView, map[string]interface{}{"session_id": session})
	assert.Empty(t, view["items"])
}

func TestAuthenticate(t *testing.T) {
	s := setupTestServer(t)
	seedShop(t, s, "0")

	out := mustCall(t, s.handleAuthenticate, map[string]interface{}{"email": employeeEmail, "password": "secret"})
	assert.Equal(t, "EMPLOYEE", out["role"])

	_, err := call(t, s.handleAuthenticate, map[string]interface{}{"email": clientEmail, "password": "wrong"})
	assert.Equal(t, ErrorCodeForbidden, errorCode(t, err))
}

func TestRegistration_Conflicts(t *testing.T) {
	s := setupTestServer(t)
	seedShop(t, s, "0")

	_, err := call(t, s.handleRegisterClient, map[string]interface{}{
		"email":    employeeEmail,
		"password": "secret",
		"name":     "Dup",
	})
	assert.Equal(t, ErrorCodeConflict, errorCode(t, err))

	_, err = call(t, s.handleRegisterClient, map[string]interface{}{
		"email":    "bad-email",
		"password": "secret",
		"name":     "Bad",
	})
	assert.Equal(t, ErrorCodeInvalidParams, errorCode(t, err))
}

func TestTopUp_InvalidAmount(t *testing.T) {
	s := setupTestServer(t)
	seedShop(t, s, "0")

	for _, amount := range []interface{}{"abc", "0", "-5.00", nil} {
		_, err := call(t, s.handleTopUp, map[string]interface{}{"client_email": clientEmail, "amount": amount})
		assert.Equal(t, ErrorCodeInvalidParams, errorCode(t, err), "amount %v", amount)
	}

	out := mustCall(t, s.handleTopUp, map[string]interface{}{"client_email": clientEmail, "amount": "0.10"})
	assert.Equal(t, "0.10", out["balance"])
}

func TestBookTools(t *testing.T) {
	s := setupTestServer(t)
	seedShop(t, s, "100.00")

	book := mustCall(t, s.handleGetBook, map[string]interface{}{"name": "Java"})
	assert.Equal(t, "30.00", book["price"])
	assert.Equal(t, "ADULT", book["age_group"])

	_, err := call(t, s.handleGetBook, map[string]interface{}{"name": "Missing"})
	assert.Equal(t, ErrorCodeNotFound, errorCode(t, err))
	_, err = call(t, s.handleGetBook, map[string]interface{}{})
	assert.Equal(t, ErrorCodeInvalidParams, errorCode(t, err))

	_, err = call(t, s.handleAddBook, bookArgs("Java", "30.00"))
	assert.Equal(t, ErrorCodeConflict, errorCode(t, err))

	update := bookArgs("Java", "35.50")
	update["description"] = "Second edition"
	updated := mustCall(t, s.handleUpdateBook, update)
	assert.Equal(t, "35.50", updated["price"])
	assert.Equal(t, "Second edition", updated["description"])

	future := bookArgs("Future", "10.00")
	future["publication_date"] = "2999-01-01"
	_, err = call(t, s.handleAddBook, future)
	assert.Equal(t, ErrorCodeInvalidParams, errorCode(t, err))

	// An ordered book cannot be deleted
	session := newSession(t, s)
	mustCall(t, s.handleCartAdd, map[string]interface{}{"session_id": session, "book_name": "Java", "client_email": clientEmail})
	mustCall(t, s.handleCheckout, map[string]interface{}{"session_id": session, "client_email": clientEmail})
	_, err = call(t, s.handleDeleteBook, map[string]interface{}{"employee_email": employeeEmail, "name": "Java"})
	assert.Equal(t, ErrorCodeConflict, errorCode(t, err))

	deleted := mustCall(t, s.handleDeleteBook, map[string]interface{}{"employee_email": employeeEmail, "name": "Python"})
	assert.Equal(t, true, deleted["deleted"])
}

func TestListBooks(t *testing.T) {
	s := setupTestServer(t)
	seedShop(t, s, "0")

	page := mustCall(t, s.handleListBooks, map[string]interface{}{
		"size":      float64(1),
		"sort":      "price",
		"direction": "desc",
	})
	assert.Equal(t, float64(2), page["total"])
	assert.Equal(t, float64(2), page["total_pages"])
	items := page["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Java", items[0].(map[string]interface{})["name"])

	filtered := mustCall(t, s.handleListBooks, map[string]interface{}{"keyword": "pyth"})
	assert.Equal(t, float64(1), filtered["total"])

	_, err := call(t, s.handleListBooks, map[string]interface{}{"size": float64(0)})
	assert.Equal(t, ErrorCodeInvalidParams, errorCode(t, err))
	_, err = call(t, s.handleListBooks, map[string]interface{}{"sort": "isbn"})
	assert.Equal(t, ErrorCodeInvalidParams, errorCode(t, err))
}

const seedCatalog = `
books:
  - name: Kobzar
    genre: Poetry
    price: "12.50"
    publication_date: "1840-04-18"
    author: Taras Shevchenko
    pages: 114
    language: ukrainian
  - name: Java
    genre: Programming
    age_group: adult
    price: "30.00"
    publication_date: "2018-05-10"
    author: James Gosling
    pages: 500
    language: english
`

func TestImportCatalog(t *testing.T) {
	s := setupTestServer(t)
	seedShop(t, s, "0")

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedCatalog), 0o600))

	stats := mustCall(t, s.handleImportCatalog, map[string]interface{}{"employee_email": employeeEmail, "path": path})
	assert.Equal(t, float64(1), stats["imported"])
	assert.Equal(t, float64(1), stats["skipped"])

	_, err := call(t, s.handleImportCatalog, map[string]interface{}{"employee_email": employeeEmail, "path": filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Equal(t, ErrorCodeInternalError, errorCode(t, err))
}

func TestNewServerFromConfig(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(seedCatalog), 0o600))

	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "bookstore.db")
	cfg.Catalog.SeedFile = seed
	cfg.Accounts.BcryptCost = bcrypt.MinCost

	s, err := NewServerFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	page := mustCall(t, s.handleListBooks, nil)
	assert.Equal(t, float64(2), page["total"])
}

func TestNewServerFromConfig_BadSeed(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "bookstore.db")
	cfg.Catalog.SeedFile = filepath.Join(dir, "missing.yaml")

	_, err := NewServerFromConfig(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestToMCPError_Default(t *testing.T) {
	err := toMCPError(assert.AnError, "boom")
	assert.Equal(t, ErrorCodeInternalError, errorCode(t, err))
	assert.Contains(t, err.Error(), "boom")
}
