package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/bookstore-mcp/internal/storage"
	"github.com/dshills/bookstore-mcp/pkg/types"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func setupTestService(t *testing.T) (*Service, *storage.SQLStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc, err := NewService(store, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return svc, store
}

func newBook(name, price string) *types.Book {
	return &types.Book{
		Name:            name,
		Genre:           "Programming",
		AgeGroup:        types.AgeGroupAdult,
		Price:           decimal.RequireFromString(price),
		PublicationDate: time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC),
		Author:          "Author of " + name,
		Pages:           300,
		Language:        types.LanguageEnglish,
	}
}

func TestService_AddAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	added, err := svc.AddBook(ctx, newBook("  Java  ", "30.00"))
	require.NoError(t, err)
	assert.NotZero(t, added.ID)
	assert.Equal(t, "Java", added.Name)

	got, err := svc.GetBookByName(ctx, "Java")
	require.NoError(t, err)
	assert.Equal(t, added.ID, got.ID)
	assert.True(t, decimal.RequireFromString("30.00").Equal(got.Price))
}

func TestService_AddDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	_, err := svc.AddBook(ctx, newBook("Java", "30.00"))
	require.NoError(t, err)

	_, err = svc.AddBook(ctx, newBook("Java", "31.00"))
	assert.ErrorIs(t, err, types.ErrAlreadyExists)
}

func TestService_AddValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	tests := []struct {
		name   string
		mutate func(b *types.Book)
		field  string
	}{
		{"blank name", func(b *types.Book) { b.Name = " " }, "name"},
		{"zero price", func(b *types.Book) { b.Price = decimal.Zero }, "price"},
		{"sub-cent price", func(b *types.Book) { b.Price = decimal.RequireFromString("9.999") }, "price"},
		{"no pages", func(b *types.Book) { b.Pages = 0 }, "pages"},
		{"future date", func(b *types.Book) { b.PublicationDate = fixedNow.AddDate(0, 0, 1) }, "publication_date"},
		{"blank author", func(b *types.Book) { b.Author = "" }, "author"},
		{"bad language", func(b *types.Book) { b.Language = "KLINGON" }, "language"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBook("Book", "10.00")
			tt.mutate(b)
			_, err := svc.AddBook(ctx, b)
			require.ErrorIs(t, err, types.ErrValidation)

			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestService_FindBooksByNames(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	for _, b := range []*types.Book{newBook("Java", "30.00"), newBook("Python", "20.00")} {
		_, err := svc.AddBook(ctx, b)
		require.NoError(t, err)
	}

	books, err := svc.FindBooksByNames(ctx, []string{"Java", "Missing", "Python", "Java"})
	require.NoError(t, err)
	require.Len(t, books, 2)

	names := []string{books[0].Name, books[1].Name}
	assert.ElementsMatch(t, []string{"Java", "Python"}, names)
}

func TestService_UpdateBook(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	_, err := svc.AddBook(ctx, newBook("Java", "30.00"))
	require.NoError(t, err)

	updated, err := svc.UpdateBook(ctx, "Java", types.BookUpdate{
		Genre:           "Classics",
		AgeGroup:        types.AgeGroupTeen,
		Price:           decimal.RequireFromString("35.50"),
		PublicationDate: time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC),
		Author:          "New Author",
		Pages:           420,
		Description:     "Second edition",
		Language:        types.LanguageUkrainian,
	})
	require.NoError(t, err)
	assert.Equal(t, "Java", updated.Name)

	got, err := svc.GetBookByName(ctx, "Java")
	require.NoError(t, err)
	assert.Equal(t, "Classics", got.Genre)
	assert.Equal(t, 420, got.Pages)
	assert.Equal(t, types.LanguageUkrainian, got.Language)
	assert.True(t, decimal.RequireFromString("35.50").Equal(got.Price))

	_, err = svc.UpdateBook(ctx, "Missing", types.BookUpdate{})
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = svc.UpdateBook(ctx, "Java", types.BookUpdate{Genre: "x"})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestService_DeleteBook(t *testing.T) {
	ctx := context.Background()
	svc, store := setupTestService(t)

	_, err := svc.AddBook(ctx, newBook("Java", "30.00"))
	require.NoError(t, err)
	ordered, err := svc.AddBook(ctx, newBook("Python", "20.00"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBook(ctx, "Java"))
	_, err = svc.GetBookByName(ctx, "Java")
	assert.ErrorIs(t, err, types.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteBook(ctx, "Java"), types.ErrNotFound)

	// A book referenced by an order stays
	client := &types.Client{
		Account: types.Account{Email: "a@b.c", PasswordHash: "hash", Name: "A"},
		Balance: decimal.RequireFromString("100"),
	}
	require.NoError(t, store.CreateClient(ctx, client))
	require.NoError(t, store.CreateOrder(ctx, client.ID, &types.Order{
		OrderDate: fixedNow,
		Price:     decimal.RequireFromString("20.00"),
		Items:     []types.BookItem{{BookID: ordered.ID, BookName: "Python", BookPrice: ordered.Price, Quantity: 1}},
	}))

	assert.ErrorIs(t, svc.DeleteBook(ctx, "Python"), types.ErrInUse)
}

func TestService_ListBooks(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	for _, b := range []*types.Book{
		newBook("Go in Action", "45.00"),
		newBook("Java", "30.00"),
		newBook("Python", "20.00"),
	} {
		_, err := svc.AddBook(ctx, b)
		require.NoError(t, err)
	}

	page, err := svc.ListBooks(ctx, types.PageRequest{Sort: "price", Direction: "desc", Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages())
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Go in Action", page.Items[0].Name)
	assert.Equal(t, "Java", page.Items[1].Name)

	page, err = svc.ListBooks(ctx, types.PageRequest{Keyword: "PYTH"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Python", page.Items[0].Name)

	_, err = svc.ListBooks(ctx, types.PageRequest{Sort: "password"})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
