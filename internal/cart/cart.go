package cart

import (
	"github.com/shopspring/decimal"

	"github.com/dshills/bookstore-mcp/pkg/types"
)

// Cart holds one session's selections. quantities and books are co-indexed
// by book name: every mutation touches both, so their key sets stay equal.
// order records first-add order for display.
type Cart struct {
	quantities map[string]int
	books      map[string]types.Book
	order      []string
}

// New returns an empty cart
func New() *Cart {
	return &Cart{
		quantities: make(map[string]int),
		books:      make(map[string]types.Book),
	}
}

// Has reports whether name is in the cart
func (c *Cart) Has(name string) bool {
	_, ok := c.quantities[name]
	return ok
}

// Quantity returns the quantity held for name, 0 if absent
func (c *Cart) Quantity(name string) int {
	return c.quantities[name]
}

// Add increments the quantity of book by one. The snapshot is cached only on
// first add; later adds keep the originally cached snapshot.
func (c *Cart) Add(book types.Book) {
	if !c.Has(book.Name) {
		c.books[book.Name] = book
		c.order = append(c.order, book.Name)
	}
	c.quantities[book.Name]++
}

// Increment adds one to a name already in the cart. It reports false when
// the name is absent, in which case the caller must Add a snapshot instead.
func (c *Cart) Increment(name string) bool {
	if !c.Has(name) {
		return false
	}
	c.quantities[name]++
	return true
}

// Decrease lowers the quantity by one and drops the entry when it reaches zero.
// Absent names are ignored.
func (c *Cart) Decrease(name string) {
	qty, ok := c.quantities[name]
	if !ok {
		return
	}
	if qty > 1 {
		c.quantities[name] = qty - 1
		return
	}
	c.Remove(name)
}

// Remove erases name from the cart
func (c *Cart) Remove(name string) {
	if !c.Has(name) {
		return
	}
	delete(c.quantities, name)
	delete(c.books, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.quantities = make(map[string]int)
	c.books = make(map[string]types.Book)
	c.order = nil
}

// Len returns the number of distinct books
func (c *Cart) Len() int {
	return len(c.quantities)
}

// IsEmpty reports whether the cart holds nothing
func (c *Cart) IsEmpty() bool {
	return len(c.quantities) == 0
}

// Lines returns the cached snapshots with their quantities in first-add order
func (c *Cart) Lines() []types.CartLine {
	lines := make([]types.CartLine, 0, len(c.order))
	for _, name := range c.order {
		lines = append(lines, types.CartLine{Book: c.books[name], Quantity: c.quantities[name]})
	}
	return lines
}

// Total sums snapshot price times quantity. An empty cart totals zero.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for name, qty := range c.quantities {
		total = total.Add(c.books[name].Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return total
}

// Clone returns a deep copy of the cart
func (c *Cart) Clone() *Cart {
	clone := &Cart{
		quantities: make(map[string]int, len(c.quantities)),
		books:      make(map[string]types.Book, len(c.books)),
		order:      append([]string(nil), c.order...),
	}
	for k, v := range c.quantities {
		clone.quantities[k] = v
	}
	for k, v := range c.books {
		clone.books[k] = v
	}
	return clone
}

// FromLines rebuilds a cart from a snapshot, keeping line order.
// Lines with a non-positive quantity are skipped; a repeated name keeps its
// first snapshot and sums the quantities.
func FromLines(lines []types.CartLine) *Cart {
	c := New()
	for _, line := range lines {
		if line.Quantity < 1 {
			continue
		}
		c.Add(line.Book)
		c.quantities[line.Book.Name] += line.Quantity - 1
	}
	return c
}
