package cart

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/bookstore-mcp/pkg/types"
)

func book(name, price string) types.Book {
	return types.Book{
		Name:            name,
		Genre:           "Programming",
		AgeGroup:        types.AgeGroupAdult,
		Price:           decimal.RequireFromString(price),
		PublicationDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Author:          "Someone",
		Pages:           100,
		Language:        types.LanguageEnglish,
	}
}

// keysConsistent checks the co-indexing invariant of the two maps and the order slice
func keysConsistent(t *testing.T, c *Cart) {
	t.Helper()
	qtyKeys := make([]string, 0, len(c.quantities))
	for k, q := range c.quantities {
		assert.GreaterOrEqual(t, q, 1, "quantity of %s", k)
		qtyKeys = append(qtyKeys, k)
	}
	bookKeys := make([]string, 0, len(c.books))
	for k := range c.books {
		bookKeys = append(bookKeys, k)
	}
	orderKeys := make([]string, 0, len(c.order))
	orderKeys = append(orderKeys, c.order...)
	sort.Strings(qtyKeys)
	sort.Strings(bookKeys)
	sort.Strings(orderKeys)
	require.Equal(t, qtyKeys, bookKeys)
	require.Equal(t, qtyKeys, orderKeys)
}

func expectedTotal(c *Cart) decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines() {
		total = total.Add(line.Book.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

func TestCart_AddAndLines(t *testing.T) {
	c := New()
	c.Add(book("Python", "20.00"))
	c.Add(book("Java", "30.00"))
	c.Add(book("Python", "99.00")) // snapshot from first add is kept

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "Python", lines[0].Book.Name)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("20.00").Equal(lines[0].Book.Price))
	assert.Equal(t, "Java", lines[1].Book.Name)
	assert.Equal(t, 1, lines[1].Quantity)

	assert.True(t, decimal.RequireFromString("70.00").Equal(c.Total()))
	keysConsistent(t, c)
}

func TestCart_Increment(t *testing.T) {
	c := New()
	assert.False(t, c.Increment("Java"))
	assert.True(t, c.IsEmpty())

	c.Add(book("Java", "30.00"))
	assert.True(t, c.Increment("Java"))
	assert.Equal(t, 2, c.Quantity("Java"))
}

func TestCart_DecreaseToZeroRemoves(t *testing.T) {
	c := New()
	c.Add(book("Java", "30.00"))
	c.Decrease("Java")

	assert.True(t, c.IsEmpty())
	assert.False(t, c.Has("Java"))
	assert.Empty(t, c.books)
	assert.Empty(t, c.Lines())
	keysConsistent(t, c)
}

func TestCart_DecreaseKeepsEntryAboveOne(t *testing.T) {
	c := New()
	c.Add(book("Java", "30.00"))
	c.Add(book("Java", "30.00"))
	c.Decrease("Java")

	assert.Equal(t, 1, c.Quantity("Java"))
	c.Decrease("missing") // no-op
	assert.Equal(t, 1, c.Len())
}

func TestCart_RemoveAndClear(t *testing.T) {
	c := New()
	c.Add(book("Java", "30.00"))
	c.Add(book("Java", "30.00"))
	c.Add(book("Go", "25.00"))

	c.Remove("Java")
	assert.False(t, c.Has("Java"))
	assert.Equal(t, []string{"Go"}, c.order)
	keysConsistent(t, c)

	c.Clear()
	assert.True(t, c.IsEmpty())
	keysConsistent(t, c)
}

func TestCart_EmptyTotalIsZero(t *testing.T) {
	assert.True(t, New().Total().IsZero())
}

func TestCart_TotalIsDecimalExact(t *testing.T) {
	c := New()
	for i := 0; i < 10; i++ {
		c.Add(book("Penny", "0.10"))
	}
	assert.Equal(t, "1.00", c.Total().StringFixed(2))
	assert.True(t, decimal.NewFromInt(1).Equal(c.Total()))
}

func TestCart_Clone(t *testing.T) {
	c := New()
	c.Add(book("Java", "30.00"))

	clone := c.Clone()
	clone.Add(book("Go", "25.00"))
	clone.Increment("Java")

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 1, c.Quantity("Java"))
	assert.Equal(t, 2, clone.Quantity("Java"))
}

func TestFromLines(t *testing.T) {
	c := FromLines([]types.CartLine{
		{Book: book("Java", "30.00"), Quantity: 1},
		{Book: book("Python", "20.00"), Quantity: 2},
		{Book: book("Broken", "1.00"), Quantity: 0},
	})

	require.Equal(t, 2, c.Len())
	assert.Equal(t, 2, c.Quantity("Python"))
	assert.Equal(t, "70.00", c.Total().StringFixed(2))
	keysConsistent(t, c)
}

// TestCart_RandomOperations drives random add/decrease/remove/clear sequences
// and checks the key-set and total invariants after every step.
func TestCart_RandomOperations(t *testing.T) {
	catalog := []types.Book{
		book("A", "1.10"), book("B", "2.25"), book("C", "19.99"),
		book("D", "0.01"), book("E", "100.00"),
	}

	for seed := int64(1); seed <= 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		c := New()
		for step := 0; step < 200; step++ {
			b := catalog[rng.Intn(len(catalog))]
			switch op := rng.Intn(10); {
			case op < 5:
				if !c.Increment(b.Name) {
					c.Add(b)
				}
			case op < 8:
				c.Decrease(b.Name)
			case op < 9:
				c.Remove(b.Name)
			default:
				if rng.Intn(5) == 0 {
					c.Clear()
				}
			}
			keysConsistent(t, c)
			require.True(t, expectedTotal(c).Equal(c.Total()), "seed %d step %d", seed, step)
		}
	}
}
