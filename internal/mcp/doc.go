// Package mcp implements the Model Context Protocol (MCP) server for the bookstore.
//
// The server exposes the catalog, per-session shopping carts, orders and
// accounts as MCP tools:
//   - Catalog: list_books, get_book, add_book, update_book, delete_book, import_catalog
//   - Cart: new_session, cart_add, cart_decrease, cart_remove, cart_clear, cart_view
//   - Orders: checkout, confirm_order, list_orders, my_orders
//   - Accounts: register_client, register_employee, authenticate, top_up,
//     block_client, unblock_client, get_client
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Logs go to stderr; stdout is reserved for protocol messages.
//
// # Sessions
//
// Carts are keyed by a session id. A client calls new_session once and
// passes the returned id to every cart tool and to checkout. The per-book
// cart tools and checkout name the shopping client, and blocked clients are refused:
//
//	{"name": "new_session", "arguments": {}}
//	→ {"session_id": "5b0c..."}
//
//	{"name": "cart_add", "arguments": {"session_id": "5b0c...", "book_name": "Java", "client_email": "ann@example.com"}}
//	→ {"items": [{"book_name": "Java", "price": "30.00", "quantity": 1, ...}], "total": "30.00"}
//
//	{"name": "checkout", "arguments": {"session_id": "5b0c...", "client_email": "ann@example.com"}}
//	→ {"id": 7, "price": "30.00", "status": "UNCONFIRMED", ...}
//
// Money is exchanged as decimal strings with two fractional digits.
//
// # Roles
//
// Tools that change the catalog, list every order, confirm orders or block
// clients take an employee_email argument that must name a registered
// employee. There is no session-level authentication.
//
// # Error Handling
//
// Failures are returned as JSON-RPC errors whose data carries the
// underlying error and, where relevant, the offending parameter:
//   - -32602: Invalid params (missing or invalid arguments, validation failures)
//   - -32603: Internal error (database, cart backend)
//   - -32001: Book, order or account not found
//   - -32002: Conflict (duplicate name or email, book referenced by orders)
//   - -32003: Insufficient funds
//   - -32004: Empty cart
//   - -32005: Account blocked
//   - -32006: Catalog import already in progress
//   - -32007: Employee role required, or invalid credentials
package mcp
