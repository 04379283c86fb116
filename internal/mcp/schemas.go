package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func integerProp(description string, minimum int) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
		"minimum":     minimum,
	}
}

// moneyProp accepts a decimal string ("19.99") to avoid float rounding
func moneyProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description + " (decimal string, e.g. \"19.99\")",
		"pattern":     `^-?\d+(\.\d{1,2})?$`,
	}
}

func enumProp(description string, values []string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
}

// pageProperties adds the paging arguments shared by list tools
func pageProperties(props map[string]interface{}, sortFields []string, defaultSort string) map[string]interface{} {
	props["page"] = map[string]interface{}{
		"type":        "integer",
		"description": "Zero-based page index",
		"default":     0,
		"minimum":     0,
	}
	props["size"] = map[string]interface{}{
		"type":        "integer",
		"description": "Items per page (1-100)",
		"default":     10,
		"minimum":     1,
		"maximum":     100,
	}
	props["sort"] = map[string]interface{}{
		"type":        "string",
		"description": "Sort field",
		"enum":        sortFields,
		"default":     defaultSort,
	}
	props["direction"] = map[string]interface{}{
		"type":    "string",
		"enum":    []string{"asc", "desc"},
		"default": "asc",
	}
	return props
}

var (
	ageGroups = []string{"CHILD", "TEEN", "ADULT", "OTHER"}
	languages = []string{"ENGLISH", "UKRAINIAN", "SPANISH", "FRENCH", "GERMAN", "OTHER"}
)

// bookProperties are the descriptive book fields used by add_book and update_book
func bookProperties() map[string]interface{} {
	return map[string]interface{}{
		"employee_email":   stringProp("Email of the employee performing the change"),
		"name":             stringProp("Unique book name"),
		"genre":            stringProp("Genre"),
		"age_group":        enumProp("Target audience", ageGroups),
		"price":            moneyProp("Catalog price, greater than 0"),
		"publication_date": stringProp("Publication date (YYYY-MM-DD), not in the future"),
		"author":           stringProp("Author"),
		"pages":            integerProp("Number of pages", 1),
		"characteristics":  stringProp("Free-form characteristics"),
		"description":      stringProp("Description, at most 2000 characters"),
		"language":         enumProp("Language of the book", languages),
	}
}

var bookRequired = []string{
	"employee_email", "name", "genre", "age_group", "price", "publication_date", "author", "pages", "language",
}

// Catalog tools

func listBooksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_books",
		Description: "List catalog books with paging, sorting and an optional keyword filter over name, author and genre",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: pageProperties(map[string]interface{}{
				"keyword": stringProp("Case-insensitive filter"),
			}, []string{"name", "price", "author", "genre", "publication_date", "pages"}, "name"),
		},
	}
}

func getBookTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_book",
		Description: "Get one book by its unique name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": stringProp("Book name"),
			},
			Required: []string{"name"},
		},
	}
}

func addBookTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_book",
		Description: "Add a new book to the catalog (employees only)",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: bookProperties(),
			Required:   bookRequired,
		},
	}
}

func updateBookTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_book",
		Description: "Replace the descriptive fields of a book; the name identifies the book and cannot change (employees only)",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: bookProperties(),
			Required:   bookRequired,
		},
	}
}

func deleteBookTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_book",
		Description: "Delete a book that no order references (employees only)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"employee_email": stringProp("Email of the employee performing the change"),
				"name":           stringProp("Book name"),
			},
			Required: []string{"employee_email", "name"},
		},
	}
}

func importCatalogTool() mcp.Tool {
	return mcp.Tool{
		Name:        "import_catalog",
		Description: "Import books from a YAML catalog file on the server; existing names are skipped (employees only)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"employee_email": stringProp("Email of the employee performing the import"),
				"path":           stringProp("Absolute path to the YAML catalog file"),
			},
			Required: []string{"employee_email", "path"},
		},
	}
}

// Cart tools

func newSessionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "new_session",
		Description: "Create a new shopping session id; every cart tool is scoped to one session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

func cartBookTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":   stringProp("Session id from new_session"),
				"book_name":    stringProp("Book name"),
				"client_email": stringProp("Email of the shopping client; blocked clients are refused"),
			},
			Required: []string{"session_id", "book_name", "client_email"},
		},
	}
}

func cartAddTool() mcp.Tool {
	return cartBookTool("cart_add", "Add one copy of a book to the session's cart")
}

func cartDecreaseTool() mcp.Tool {
	return cartBookTool("cart_decrease", "Remove one copy of a book; the last copy removes the line")
}

func cartRemoveTool() mcp.Tool {
	return cartBookTool("cart_remove", "Remove a book from the cart regardless of quantity")
}

func sessionTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": stringProp("Session id from new_session"),
			},
			Required: []string{"session_id"},
		},
	}
}

func cartClearTool() mcp.Tool {
	return sessionTool("cart_clear", "Empty the session's cart")
}

func cartViewTool() mcp.Tool {
	return sessionTool("cart_view", "Show the cart lines in the order books were first added, with the total price")
}

// Order tools

func checkoutTool() mcp.Tool {
	return mcp.Tool{
		Name:        "checkout",
		Description: "Place an order for the session's cart; the total is debited from the client's balance and the cart is cleared",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":   stringProp("Session id from new_session"),
				"client_email": stringProp("Email of the ordering client"),
			},
			Required: []string{"session_id", "client_email"},
		},
	}
}

func confirmOrderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "confirm_order",
		Description: "Confirm an order as an employee; the first confirmation wins and later ones are no-ops",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"employee_email": stringProp("Email of the confirming employee"),
				"order_id":       integerProp("Order id", 1),
			},
			Required: []string{"employee_email", "order_id"},
		},
	}
}

func listOrdersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_orders",
		Description: "List all orders with paging (employees only); sorting by employee puts unconfirmed orders first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: pageProperties(map[string]interface{}{
				"employee_email": stringProp("Email of the requesting employee"),
			}, []string{"order_date", "price", "employee"}, "order_date"),
			Required: []string{"employee_email"},
		},
	}
}

func myOrdersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "my_orders",
		Description: "List a client's orders, or the orders an employee confirmed, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"email": stringProp("Client or employee email"),
			},
			Required: []string{"email"},
		},
	}
}

// Account tools

func registerClientTool() mcp.Tool {
	return mcp.Tool{
		Name:        "register_client",
		Description: "Register a new client with a zero balance; the email must be unused by clients and employees",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"email":    stringProp("Email address"),
				"password": stringProp("Password, at least 4 characters"),
				"name":     stringProp("Display name"),
			},
			Required: []string{"email", "password", "name"},
		},
	}
}

func registerEmployeeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "register_employee",
		Description: "Register a new employee; the email must be unused by clients and employees",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"email":      stringProp("Email address"),
				"password":   stringProp("Password, at least 4 characters"),
				"name":       stringProp("Display name"),
				"birth_date": stringProp("Birth date (YYYY-MM-DD)"),
				"phone":      stringProp("Phone number"),
			},
			Required: []string{"email", "password", "name", "birth_date", "phone"},
		},
	}
}

func topUpTool() mcp.Tool {
	return mcp.Tool{
		Name:        "top_up",
		Description: "Add funds to a client's balance",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client_email": stringProp("Email of the client"),
				"amount":       moneyProp("Amount to add, greater than 0"),
			},
			Required: []string{"client_email", "amount"},
		},
	}
}

func clientAdminTool(name, description string) mcp.Tool {
	return mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"employee_email": stringProp("Email of the employee performing the change"),
				"client_email":   stringProp("Email of the client"),
			},
			Required: []string{"employee_email", "client_email"},
		},
	}
}

func blockClientTool() mcp.Tool {
	return clientAdminTool("block_client", "Block a client from starting new actions (employees only)")
}

func unblockClientTool() mcp.Tool {
	return clientAdminTool("unblock_client", "Lift a client's block (employees only)")
}

func getClientTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_client",
		Description: "Show a client's profile and balance",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"client_email": stringProp("Email of the client"),
			},
			Required: []string{"client_email"},
		},
	}
}

func authenticateTool() mcp.Tool {
	return mcp.Tool{
		Name:        "authenticate",
		Description: "Verify an email and password and report the account's role; blocked clients are refused",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"email":    stringProp("Email address"),
				"password": stringProp("Password"),
			},
			Required: []string{"email", "password"},
		},
	}
}
