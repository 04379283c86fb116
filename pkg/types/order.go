package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is derived from whether an employee has confirmed the order
type OrderStatus string

const (
	OrderUnconfirmed OrderStatus = "UNCONFIRMED"
	OrderConfirmed   OrderStatus = "CONFIRMED"
)

// Order is the aggregate root of a placed order. Price is captured once at
// creation and never recalculated from catalog prices.
type Order struct {
	ID            int64           `json:"id"`
	ClientEmail   string          `json:"client_email"`
	EmployeeEmail string          `json:"employee_email,omitempty"` // Empty until confirmed
	OrderDate     time.Time       `json:"order_date"`
	Price         decimal.Decimal `json:"price"`
	Items         []BookItem      `json:"items"`
}

// Status reports the confirmation state of the order
func (o *Order) Status() OrderStatus {
	if o.EmployeeEmail == "" {
		return OrderUnconfirmed
	}
	return OrderConfirmed
}

// ItemsTotal sums catalog price times quantity over the line items
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// BookItem is one line of an order. It cannot exist without its order.
type BookItem struct {
	ID        int64           `json:"id"`
	BookID    int64           `json:"-"`
	BookName  string          `json:"book_name"`
	BookPrice decimal.Decimal `json:"book_price"` // Catalog price of the resolved book at order time
	Quantity  int             `json:"quantity"`
}

// Subtotal returns BookPrice times Quantity
func (i BookItem) Subtotal() decimal.Decimal {
	return i.BookPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartLine is one (book snapshot, quantity) pair of a cart snapshot
type CartLine struct {
	Book     Book `json:"book"`
	Quantity int  `json:"quantity"`
}

// Subtotal returns the snapshot price times Quantity
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Book.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
