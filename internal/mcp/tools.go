package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shopspring/decimal"

	"github.com/dshills/bookstore-mcp/internal/accounts"
	"github.com/dshills/bookstore-mcp/internal/cart"
	"github.com/dshills/bookstore-mcp/internal/catalog"
	"github.com/dshills/bookstore-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound          = -32001 // Book, order or account does not exist
	ErrorCodeConflict          = -32002 // Duplicate name or email, or a book still referenced by orders
	ErrorCodeInsufficientFunds = -32003 // Client balance below the order total
	ErrorCodeEmptyCart         = -32004 // Checkout of an empty cart
	ErrorCodeAccountBlocked    = -32005 // Client is blocked
	ErrorCodeImportInProgress  = -32006 // Another catalog import is already running
	ErrorCodeForbidden         = -32007 // Caller lacks the employee role
)

const dateLayout = catalog.DateLayout

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Catalog handlers

// handleListBooks handles the list_books tool invocation
func (s *Server) handleListBooks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	req, err := pageRequest(args, "name")
	if err != nil {
		return nil, err
	}
	req.Keyword = getStringDefault(args, "keyword", "")

	page, err := s.catalog.ListBooks(ctx, req)
	if err != nil {
		return nil, toMCPError(err, "failed to list books")
	}

	books := make([]map[string]interface{}, 0, len(page.Items))
	for _, b := range page.Items {
		books = append(books, bookView(b))
	}
	return mcp.NewToolResultText(formatJSON(pageView(books, page.Page, page.Size, page.Total, page.TotalPages()))), nil
}

// handleGetBook handles the get_book tool invocation
func (s *Server) handleGetBook(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}

	book, err := s.catalog.GetBookByName(ctx, name)
	if err != nil {
		return nil, toMCPError(err, "failed to get book")
	}
	return mcp.NewToolResultText(formatJSON(bookView(book))), nil
}

// handleAddBook handles the add_book tool invocation
func (s *Server) handleAddBook(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	if err := s.requireEmployee(ctx, args); err != nil {
		return nil, err
	}

	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}
	fields, err := bookFields(args)
	if err != nil {
		return nil, err
	}
	book := &types.Book{Name: name}
	fields.Apply(book)

	created, err := s.catalog.AddBook(ctx, book)
	if err != nil {
		return nil, toMCPError(err, "failed to add book")
	}
	return mcp.NewToolResultText(formatJSON(bookView(created))), nil
}

// handleUpdateBook handles the update_book tool invocation
func (s *Server) handleUpdateBook(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	if err := s.requireEmployee(ctx, args); err != nil {
		return nil, err
	}

	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}
	fields, err := bookFields(args)
	if err != nil {
		return nil, err
	}

	updated, err := s.catalog.UpdateBook(ctx, name, fields)
	if err != nil {
		return nil, toMCPError(err, "failed to update book")
	}
	return mcp.NewToolResultText(formatJSON(bookView(updated))), nil
}

// handleDeleteBook handles the delete_book tool invocation
func (s *Server) handleDeleteBook(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	if err := s.requireEmployee(ctx, args); err != nil {
		return nil, err
	}
	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}

	if err := s.catalog.DeleteBook(ctx, name); err != nil {
		return nil, toMCPError(err, "failed to delete book")
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
		"name":    name,
	})), nil
}

// handleImportCatalog handles the import_catalog tool invocation
func (s *Server) handleImportCatalog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	if err := s.requireEmployee(ctx, args); err != nil {
		return nil, err
	}
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}

	stats, err := s.importer.Import(ctx, path)
	if err != nil {
		return nil, toMCPError(err, "catalog import failed")
	}

	response := map[string]interface{}{
		"imported":    stats.Imported,
		"skipped":     stats.Skipped,
		"failed":      stats.Failed,
		"duration_ms": stats.Duration.Milliseconds(),
	}
	if len(stats.Errors) > 0 {
		// Include first few errors
		errorCount := len(stats.Errors)
		if errorCount > 5 {
			response["errors"] = stats.Errors[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.Errors
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Cart handlers

// handleNewSession handles the new_session tool invocation
func (s *Server) handleNewSession(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"session_id": cart.NewSessionID(),
	})), nil
}

// handleCartAdd handles the cart_add tool invocation
func (s *Server) handleCartAdd(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.mutateCart(ctx, request, s.carts.AddBook)
}

// handleCartDecrease handles the cart_decrease tool invocation
func (s *Server) handleCartDecrease(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.mutateCart(ctx, request, s.carts.DecreaseQuantity)
}

// handleCartRemove handles the cart_remove tool invocation
func (s *Server) handleCartRemove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.mutateCart(ctx, request, s.carts.RemoveItem)
}

// mutateCart runs one per-book cart operation and renders the resulting cart
func (s *Server) mutateCart(ctx context.Context, request mcp.CallToolRequest, op func(ctx context.Context, sessionID, name string) error) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return nil, err
	}
	name, err := requireString(args, "book_name")
	if err != nil {
		return nil, err
	}
	email, err := requireString(args, "client_email")
	if err != nil {
		return nil, err
	}
	if err := s.accounts.EnsureActive(ctx, email); err != nil {
		return nil, toMCPError(err, "client cannot shop")
	}

	if err := op(ctx, sessionID, name); err != nil {
		return nil, toMCPError(err, "cart update failed")
	}
	return s.renderCart(ctx, sessionID)
}

// handleCartClear handles the cart_clear tool invocation
func (s *Server) handleCartClear(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return nil, err
	}
	if err := s.carts.Clear(ctx, sessionID); err != nil {
		return nil, toMCPError(err, "failed to clear cart")
	}
	return s.renderCart(ctx, sessionID)
}

// handleCartView handles the cart_view tool invocation
func (s *Server) handleCartView(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return nil, err
	}
	return s.renderCart(ctx, sessionID)
}

func (s *Server) renderCart(ctx context.Context, sessionID string) (*mcp.CallToolResult, error) {
	snapshot, err := s.carts.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, toMCPError(err, "failed to load cart")
	}

	lines := snapshot.Lines()
	items := make([]map[string]interface{}, 0, len(lines))
	for _, line := range lines {
		items = append(items, map[string]interface{}{
			"book_name": line.Book.Name,
			"author":    line.Book.Author,
			"price":     money(line.Book.Price),
			"quantity":  line.Quantity,
			"subtotal":  money(line.Subtotal()),
		})
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"session_id": sessionID,
		"items":      items,
		"total":      money(snapshot.Total()),
	})), nil
}

// Order handlers

// handleCheckout handles the checkout tool invocation
func (s *Server) handleCheckout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	sessionID, err := requireString(args, "session_id")
	if err != nil {
		return nil, err
	}
	email, err := requireString(args, "client_email")
	if err != nil {
		return nil, err
	}
	if err := s.accounts.EnsureActive(ctx, email); err != nil {
		return nil, toMCPError(err, "client cannot order")
	}

	order, err := s.orders.Checkout(ctx, sessionID, email)
	if err != nil {
		return nil, toMCPError(err, "checkout failed")
	}
	return mcp.NewToolResultText(formatJSON(orderView(order))), nil
}

// handleConfirmOrder handles the confirm_order tool invocation
func (s *Server) handleConfirmOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	if err := s.requireEmployee(ctx, args); err != nil {
		return nil, err
	}
	id, err := requireInt64(args, "order_id")
	if err != nil {
		return nil, err
	}
	employeeEmail := strings.TrimSpace(getStringDefault(args, "employee_email", ""))

	if err := s.orders.ConfirmOrder(ctx, id, employeeEmail); err != nil {
		return nil, toMCPError(err, "failed to confirm order")
	}

	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, toMCPError(err, "failed to load order")
	}
	return mcp.NewToolResultText(formatJSON(orderView(order))), nil
}

// handleListOrders handles the list_orders tool invocation
func (s *Server) handleListOrders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	if err := s.requireEmployee(ctx, args); err != nil {
		return nil, err
	}
	req, err := pageRequest(args, "order_date")
	if err != nil {
		return nil, err
	}

	page, err := s.orders.ListOrders(ctx, req)
	if err != nil {
		return nil, toMCPError(err, "failed to list orders")
	}

	orders := make([]map[string]interface{}, 0, len(page.Items))
	for _, o := range page.Items {
		orders = append(orders, orderView(o))
	}
	return mcp.NewToolResultText(formatJSON(pageView(orders, page.Page, page.Size, page.Total, page.TotalPages()))), nil
}

// handleMyOrders handles the my_orders tool invocation
func (s *Server) handleMyOrders(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	email, err := requireString(args, "email")
	if err != nil {
		return nil, err
	}

	principal, err := s.accounts.Lookup(ctx, email)
	if err != nil {
		return nil, toMCPError(err, "failed to resolve account")
	}

	var found []*types.Order
	if principal.Role == types.RoleEmployee {
		found, err = s.orders.OrdersByEmployee(ctx, principal.Email)
	} else {
		found, err = s.orders.OrdersByClient(ctx, principal.Email)
	}
	if err != nil {
		return nil, toMCPError(err, "failed to list orders")
	}

	orders := make([]map[string]interface{}, 0, len(found))
	for _, o := range found {
		orders = append(orders, orderView(o))
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"email":  principal.Email,
		"role":   principal.Role,
		"orders": orders,
	})), nil
}

// Account handlers

// handleRegisterClient handles the register_client tool invocation
func (s *Server) handleRegisterClient(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	client, err := s.accounts.RegisterClient(ctx, types.ClientRegistration{
		Email:    getStringDefault(args, "email", ""),
		Password: getStringDefault(args, "password", ""),
		Name:     getStringDefault(args, "name", ""),
	})
	if err != nil {
		return nil, toMCPError(err, "registration failed")
	}
	return mcp.NewToolResultText(formatJSON(clientView(client))), nil
}

// handleRegisterEmployee handles the register_employee tool invocation
func (s *Server) handleRegisterEmployee(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	birthDate, err := requireDate(args, "birth_date")
	if err != nil {
		return nil, err
	}

	employee, err := s.accounts.RegisterEmployee(ctx, types.EmployeeRegistration{
		Email:     getStringDefault(args, "email", ""),
		Password:  getStringDefault(args, "password", ""),
		Name:      getStringDefault(args, "name", ""),
		BirthDate: birthDate,
		Phone:     getStringDefault(args, "phone", ""),
	})
	if err != nil {
		return nil, toMCPError(err, "registration failed")
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"id":         employee.ID,
		"email":      employee.Email,
		"name":       employee.Name,
		"birth_date": employee.BirthDate.Format(dateLayout),
		"phone":      employee.Phone,
		"role":       types.RoleEmployee,
	})), nil
}

// handleAuthenticate handles the authenticate tool invocation
func (s *Server) handleAuthenticate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	email, err := requireString(args, "email")
	if err != nil {
		return nil, err
	}

	principal, err := s.accounts.Authenticate(ctx, email, getStringDefault(args, "password", ""))
	if err != nil {
		return nil, toMCPError(err, "authentication failed")
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"authenticated": true,
		"email":         principal.Email,
		"name":          principal.Name,
		"role":          principal.Role,
	})), nil
}

// handleTopUp handles the top_up tool invocation
func (s *Server) handleTopUp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	email, err := requireString(args, "client_email")
	if err != nil {
		return nil, err
	}
	amount, err := requireDecimal(args, "amount")
	if err != nil {
		return nil, err
	}

	client, err := s.accounts.TopUp(ctx, email, amount)
	if err != nil {
		return nil, toMCPError(err, "top-up failed")
	}
	return mcp.NewToolResultText(formatJSON(clientView(client))), nil
}

// handleBlockClient handles the block_client tool invocation
func (s *Server) handleBlockClient(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.setClientBlocked(ctx, request, true)
}

// handleUnblockClient handles the unblock_client tool invocation
func (s *Server) handleUnblockClient(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.setClientBlocked(ctx, request, false)
}

func (s *Server) setClientBlocked(ctx context.Context, request mcp.CallToolRequest, blocked bool) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	if err := s.requireEmployee(ctx, args); err != nil {
		return nil, err
	}
	email, err := requireString(args, "client_email")
	if err != nil {
		return nil, err
	}

	if blocked {
		err = s.accounts.BlockClient(ctx, email)
	} else {
		err = s.accounts.UnblockClient(ctx, email)
	}
	if err != nil {
		return nil, toMCPError(err, "failed to change client status")
	}

	client, err := s.accounts.GetClient(ctx, email)
	if err != nil {
		return nil, toMCPError(err, "failed to load client")
	}
	return mcp.NewToolResultText(formatJSON(clientView(client))), nil
}

// handleGetClient handles the get_client tool invocation
func (s *Server) handleGetClient(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	email, err := requireString(args, "client_email")
	if err != nil {
		return nil, err
	}

	client, err := s.accounts.GetClient(ctx, email)
	if err != nil {
		return nil, toMCPError(err, "failed to get client")
	}
	return mcp.NewToolResultText(formatJSON(clientView(client))), nil
}

// requireEmployee checks that employee_email names an existing employee
func (s *Server) requireEmployee(ctx context.Context, args map[string]interface{}) error {
	email, err := requireString(args, "employee_email")
	if err != nil {
		return err
	}
	principal, err := s.accounts.Lookup(ctx, email)
	if errors.Is(err, types.ErrNotFound) {
		return newMCPError(ErrorCodeForbidden, "employee account required", map[string]interface{}{
			"email":  email,
			"reason": "unknown account",
		})
	}
	if err != nil {
		return toMCPError(err, "failed to resolve account")
	}
	if principal.Role != types.RoleEmployee {
		s.logger.Warn("employee tool called by non-employee", "email", email, "role", principal.Role)
		return newMCPError(ErrorCodeForbidden, "employee account required", map[string]interface{}{
			"email": email,
			"role":  principal.Role,
		})
	}
	return nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// toMCPError maps a domain error onto an MCP error code
func toMCPError(err error, message string) error {
	data := map[string]interface{}{"error": err.Error()}

	var validation *types.ValidationError
	var funds *types.InsufficientFundsError
	switch {
	case errors.As(err, &validation):
		data["param"] = validation.Field
		data["reason"] = validation.Reason
		return newMCPError(ErrorCodeInvalidParams, message, data)
	case errors.Is(err, cart.ErrInvalidSession):
		data["param"] = "session_id"
		return newMCPError(ErrorCodeInvalidParams, message, data)
	case errors.As(err, &funds):
		data["balance"] = money(funds.Balance)
		data["required"] = money(funds.Required)
		return newMCPError(ErrorCodeInsufficientFunds, message, data)
	case errors.Is(err, types.ErrNotFound):
		return newMCPError(ErrorCodeNotFound, message, data)
	case errors.Is(err, types.ErrAlreadyExists), errors.Is(err, types.ErrInUse):
		return newMCPError(ErrorCodeConflict, message, data)
	case errors.Is(err, types.ErrEmptyCart):
		return newMCPError(ErrorCodeEmptyCart, message, data)
	case errors.Is(err, types.ErrAccountBlocked):
		return newMCPError(ErrorCodeAccountBlocked, message, data)
	case errors.Is(err, catalog.ErrImportInProgress):
		return newMCPError(ErrorCodeImportInProgress, message, data)
	case errors.Is(err, accounts.ErrInvalidCredentials):
		return newMCPError(ErrorCodeForbidden, message, data)
	default:
		return newMCPError(ErrorCodeInternalError, message, data)
	}
}

func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

func missingParam(key string) error {
	return newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
		"param":  key,
		"reason": "missing or empty",
	})
}

// requireString extracts a non-blank string parameter
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || strings.TrimSpace(val) == "" {
		return "", missingParam(key)
	}
	return strings.TrimSpace(val), nil
}

// requireInt64 extracts an integer parameter; JSON numbers arrive as float64
func requireInt64(args map[string]interface{}, key string) (int64, error) {
	switch val := args[key].(type) {
	case float64:
		if val != float64(int64(val)) {
			return 0, newMCPError(ErrorCodeInvalidParams, key+" must be an integer", map[string]interface{}{
				"param": key,
				"value": val,
			})
		}
		return int64(val), nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	default:
		return 0, missingParam(key)
	}
}

// requireDecimal extracts a money parameter given as a string or a JSON number
func requireDecimal(args map[string]interface{}, key string) (decimal.Decimal, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch val := args[key].(type) {
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(val))
	case float64:
		d = decimal.NewFromFloat(val)
	default:
		return decimal.Zero, missingParam(key)
	}
	if err != nil {
		return decimal.Zero, newMCPError(ErrorCodeInvalidParams, key+" is not a valid amount", map[string]interface{}{
			"param": key,
			"value": args[key],
		})
	}
	return d, nil
}

func requireDate(args map[string]interface{}, key string) (time.Time, error) {
	val, err := requireString(args, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(dateLayout, val)
	if err != nil {
		return time.Time{}, newMCPError(ErrorCodeInvalidParams, key+" must be a YYYY-MM-DD date", map[string]interface{}{
			"param": key,
			"value": val,
		})
	}
	return t, nil
}

// bookFields reads the descriptive book fields shared by add_book and update_book
func bookFields(args map[string]interface{}) (types.BookUpdate, error) {
	price, err := requireDecimal(args, "price")
	if err != nil {
		return types.BookUpdate{}, err
	}
	published, err := requireDate(args, "publication_date")
	if err != nil {
		return types.BookUpdate{}, err
	}
	return types.BookUpdate{
		Genre:           strings.TrimSpace(getStringDefault(args, "genre", "")),
		AgeGroup:        types.AgeGroup(strings.ToUpper(getStringDefault(args, "age_group", ""))),
		Price:           price,
		PublicationDate: published,
		Author:          strings.TrimSpace(getStringDefault(args, "author", "")),
		Pages:           getIntDefault(args, "pages", 0),
		Characteristics: getStringDefault(args, "characteristics", ""),
		Description:     getStringDefault(args, "description", ""),
		Language:        types.Language(strings.ToUpper(getStringDefault(args, "language", ""))),
	}, nil
}

// pageRequest reads the shared paging arguments
func pageRequest(args map[string]interface{}, defaultSort string) (types.PageRequest, error) {
	size := getIntDefault(args, "size", types.DefaultPageSize)
	if size < 1 || size > types.MaxPageSize {
		return types.PageRequest{}, newMCPError(ErrorCodeInvalidParams, "size must be between 1 and 100", map[string]interface{}{
			"param": "size",
			"value": size,
		})
	}
	page := getIntDefault(args, "page", 0)
	if page < 0 {
		return types.PageRequest{}, newMCPError(ErrorCodeInvalidParams, "page cannot be negative", map[string]interface{}{
			"param": "page",
			"value": page,
		})
	}
	direction := getStringDefault(args, "direction", types.SortAsc)
	if direction != types.SortAsc && direction != types.SortDesc {
		return types.PageRequest{}, newMCPError(ErrorCodeInvalidParams, "invalid direction", map[string]interface{}{
			"param":   "direction",
			"value":   direction,
			"allowed": []string{types.SortAsc, types.SortDesc},
		})
	}
	return types.PageRequest{
		Page:      page,
		Size:      size,
		Sort:      getStringDefault(args, "sort", defaultSort),
		Direction: direction,
	}, nil
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Views

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func pageView(items interface{}, page, size, total, pages int) map[string]interface{} {
	return map[string]interface{}{
		"items":       items,
		"page":        page,
		"size":        size,
		"total":       total,
		"total_pages": pages,
	}
}

func bookView(b *types.Book) map[string]interface{} {
	view := map[string]interface{}{
		"id":               b.ID,
		"name":             b.Name,
		"genre":            b.Genre,
		"age_group":        b.AgeGroup,
		"price":            money(b.Price),
		"publication_date": b.PublicationDate.Format(dateLayout),
		"author":           b.Author,
		"pages":            b.Pages,
		"language":         b.Language,
	}
	if b.Characteristics != "" {
		view["characteristics"] = b.Characteristics
	}
	if b.Description != "" {
		view["description"] = b.Description
	}
	return view
}

func orderView(o *types.Order) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, map[string]interface{}{
			"book_name":  item.BookName,
			"book_price": money(item.BookPrice),
			"quantity":   item.Quantity,
		})
	}
	view := map[string]interface{}{
		"id":           o.ID,
		"client_email": o.ClientEmail,
		"order_date":   o.OrderDate.Format(time.RFC3339),
		"price":        money(o.Price),
		"status":       o.Status(),
		"items":        items,
	}
	if o.EmployeeEmail != "" {
		view["employee_email"] = o.EmployeeEmail
	}
	return view
}

func clientView(c *types.Client) map[string]interface{} {
	return map[string]interface{}{
		"id":      c.ID,
		"email":   c.Email,
		"name":    c.Name,
		"balance": money(c.Balance),
		"blocked": c.Blocked,
		"role":    types.RoleClient,
	}
}
