package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/bookstore-mcp/pkg/types"
)

const testCatalog = `
books:
  - name: Java
    genre: Programming
    age_group: adult
    price: "30.00"
    publication_date: "2018-05-10"
    author: James Gosling
    pages: 500
    language: english
  - name: Python
    genre: Programming
    age_group: ADULT
    price: "20.00"
    publication_date: "2019-01-01"
    author: Guido
    pages: 350
    language: ENGLISH
  - name: Kobzar
    genre: Poetry
    price: "12.50"
    publication_date: "1840-04-18"
    author: Taras Shevchenko
    pages: 114
    language: ukrainian
  - name: Broken Price
    genre: Poetry
    price: "cheap"
    publication_date: "2000-01-01"
    author: Nobody
    pages: 10
  - name: No Pages
    genre: Poetry
    price: "1.00"
    publication_date: "2000-01-01"
    author: Nobody
    pages: 0
`

func TestImporter_ImportFile(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o600))

	importer := NewImporter(svc, 4)
	stats, err := importer.Import(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Imported)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 2, stats.Failed)
	assert.Len(t, stats.Errors, 2)
	require.True(t, importer.lock.TryAcquire(), "lock is released after an import")
	importer.lock.Release()

	kobzar, err := svc.GetBookByName(ctx, "Kobzar")
	require.NoError(t, err)
	assert.Equal(t, types.LanguageUkrainian, kobzar.Language)
	assert.Equal(t, types.AgeGroupOther, kobzar.AgeGroup)
	assert.Equal(t, "12.50", kobzar.Price.StringFixed(2))
}

func TestImporter_SkipsExistingNames(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupTestService(t)

	_, err := svc.AddBook(ctx, newBook("Java", "99.00"))
	require.NoError(t, err)

	stats, err := NewImporter(svc, 2).ImportReader(ctx, strings.NewReader(testCatalog))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Imported)
	assert.Equal(t, 1, stats.Skipped)

	// The existing record is untouched
	java, err := svc.GetBookByName(ctx, "Java")
	require.NoError(t, err)
	assert.Equal(t, "99.00", java.Price.StringFixed(2))
}

func TestImporter_EmptyDocument(t *testing.T) {
	svc, _ := setupTestService(t)

	stats, err := NewImporter(svc, 0).ImportReader(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, stats.Imported)
}

func TestImporter_InvalidYAML(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := NewImporter(svc, 1).ImportReader(context.Background(), strings.NewReader("books: [unclosed"))
	assert.Error(t, err)
}

func TestImporter_MissingFile(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := NewImporter(svc, 1).Import(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestImporter_RejectsConcurrentImport(t *testing.T) {
	svc, _ := setupTestService(t)
	importer := NewImporter(svc, 1)

	require.True(t, importer.lock.TryAcquire())
	defer importer.lock.Release()

	_, err := importer.ImportReader(context.Background(), strings.NewReader(testCatalog))
	assert.ErrorIs(t, err, ErrImportInProgress)
}

func TestImporter_CanceledContext(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewImporter(svc, 1).ImportReader(ctx, strings.NewReader(testCatalog))
	assert.ErrorIs(t, err, context.Canceled)
}
