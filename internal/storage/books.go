package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/shopspring/decimal"

	"github.com/dshills/bookstore-mcp/pkg/types"
)

var bookColumns = []interface{}{
	"id", "name", "genre", "age_group", "price", "publication_date",
	"author", "pages", "characteristics", "description", "language",
}

// bookSortColumns whitelists the sortable catalog fields
var bookSortColumns = map[string]string{
	"name":             "name",
	"price":            "price",
	"author":           "author",
	"genre":            "genre",
	"publication_date": "publication_date",
	"pages":            "pages",
}

type bookRow struct {
	ID              int64           `db:"id"`
	Name            string          `db:"name"`
	Genre           string          `db:"genre"`
	AgeGroup        string          `db:"age_group"`
	Price           decimal.Decimal `db:"price"`
	PublicationDate time.Time       `db:"publication_date"`
	Author          string          `db:"author"`
	Pages           int             `db:"pages"`
	Characteristics string          `db:"characteristics"`
	Description     string          `db:"description"`
	Language        string          `db:"language"`
}

func (r *bookRow) toBook() *types.Book {
	return &types.Book{
		ID:              r.ID,
		Name:            r.Name,
		Genre:           r.Genre,
		AgeGroup:        types.AgeGroup(r.AgeGroup),
		Price:           r.Price,
		PublicationDate: r.PublicationDate,
		Author:          r.Author,
		Pages:           r.Pages,
		Characteristics: r.Characteristics,
		Description:     r.Description,
		Language:        types.Language(r.Language),
	}
}

// GetBookByName returns the catalog record for name
func (q queries) GetBookByName(ctx context.Context, name string) (*types.Book, error) {
	var row bookRow
	ds := q.builder.From("books").Select(bookColumns...).Where(goqu.C("name").Eq(name))
	if err := q.selectOne(ctx, &row, ds); err != nil {
		return nil, err
	}
	return row.toBook(), nil
}

// FindBooksByNames resolves every name in one IN query
func (q queries) FindBooksByNames(ctx context.Context, names []string) ([]*types.Book, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var rows []bookRow
	ds := q.builder.From("books").Select(bookColumns...).Where(goqu.C("name").In(names))
	if err := q.selectAll(ctx, &rows, ds); err != nil {
		return nil, fmt.Errorf("failed to find books: %w", err)
	}

	books := make([]*types.Book, len(rows))
	for i := range rows {
		books[i] = rows[i].toBook()
	}
	return books, nil
}

// CreateBook inserts a new book and sets its ID
func (q queries) CreateBook(ctx context.Context, book *types.Book) error {
	query := `
		INSERT INTO books (name, genre, age_group, price, publication_date, author,
		                   pages, characteristics, description, language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := q.insertReturningID(ctx, query,
		book.Name, book.Genre, string(book.AgeGroup), book.Price, book.PublicationDate,
		book.Author, book.Pages, book.Characteristics, book.Description, string(book.Language))
	if err != nil {
		return fmt.Errorf("failed to create book %q: %w", book.Name, err)
	}
	book.ID = id
	return nil
}

// UpdateBook rewrites the descriptive fields of the book with book.Name
func (q queries) UpdateBook(ctx context.Context, book *types.Book) error {
	query := `
		UPDATE books
		SET genre = ?, age_group = ?, price = ?, publication_date = ?, author = ?,
		    pages = ?, characteristics = ?, description = ?, language = ?
		WHERE name = ?`
	result, err := q.exec(ctx, query,
		book.Genre, string(book.AgeGroup), book.Price, book.PublicationDate, book.Author,
		book.Pages, book.Characteristics, book.Description, string(book.Language), book.Name)
	if err != nil {
		return fmt.Errorf("failed to update book %q: %w", book.Name, err)
	}
	return checkAffected(result)
}

// DeleteBook removes a book that no order references
func (q queries) DeleteBook(ctx context.Context, name string) error {
	ds := q.builder.From(goqu.T("book_items").As("bi")).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("bi.book_id")))).
		Where(goqu.I("b.name").Eq(name))
	refs, err := q.count(ctx, ds)
	if err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("book %q: %w", name, ErrInUse)
	}

	result, err := q.exec(ctx, `DELETE FROM books WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete book %q: %w", name, err)
	}
	return checkAffected(result)
}

// ListBooks returns one page of the catalog, optionally filtered by keyword
func (q queries) ListBooks(ctx context.Context, req types.PageRequest) (*types.Page[*types.Book], error) {
	req = req.Normalize()

	ds := q.builder.From("books")
	if req.Keyword != "" {
		ds = ds.Where(containsAny(req.Keyword, "name", "author", "genre"))
	}

	total, err := q.count(ctx, ds)
	if err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}

	orderBy, err := q.bookOrder(req)
	if err != nil {
		return nil, err
	}

	var rows []bookRow
	if err := q.selectAll(ctx, &rows, page(ds.Select(bookColumns...).Order(orderBy, goqu.C("id").Asc()), req)); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	result := &types.Page[*types.Book]{Items: make([]*types.Book, len(rows)), Page: req.Page, Size: req.Size, Total: total}
	for i := range rows {
		result.Items[i] = rows[i].toBook()
	}
	return result, nil
}

func (q queries) bookOrder(req types.PageRequest) (exp.OrderedExpression, error) {
	sort := req.Sort
	if sort == "" {
		sort = "name"
	}
	col, ok := bookSortColumns[sort]
	if !ok {
		return nil, types.NewValidationError("sort", fmt.Sprintf("unsupported book sort field %q", sort))
	}
	if col == "price" {
		return ordered(q.numeric(col), req.Direction), nil
	}
	return ordered(goqu.C(col), req.Direction), nil
}
