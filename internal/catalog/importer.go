package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/dshills/bookstore-mcp/pkg/types"
)

// DateLayout is the publication date format in catalog files
const DateLayout = "2006-01-02"

// ErrImportInProgress is returned when another import holds the lock
var ErrImportInProgress = errors.New("catalog import already in progress")

// catalogFile is the YAML document shape:
//
//	books:
//	  - name: Java
//	    genre: Programming
//	    price: "30.00"
//	    publication_date: 2020-01-01
//	    ...
type catalogFile struct {
	Books []bookRecord `yaml:"books"`
}

type bookRecord struct {
	Name            string `yaml:"name"`
	Genre           string `yaml:"genre"`
	AgeGroup        string `yaml:"age_group"`
	Price           string `yaml:"price"`
	PublicationDate string `yaml:"publication_date"`
	Author          string `yaml:"author"`
	Pages           int    `yaml:"pages"`
	Characteristics string `yaml:"characteristics"`
	Description     string `yaml:"description"`
	Language        string `yaml:"language"`
}

func (r bookRecord) toBook() (*types.Book, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
	if err != nil {
		return nil, types.NewValidationError("price", fmt.Sprintf("%q is not a decimal", r.Price))
	}
	published, err := time.Parse(DateLayout, strings.TrimSpace(r.PublicationDate))
	if err != nil {
		return nil, types.NewValidationError("publication_date", fmt.Sprintf("%q is not a date", r.PublicationDate))
	}

	ageGroup := types.AgeGroup(strings.ToUpper(strings.TrimSpace(r.AgeGroup)))
	if ageGroup == "" {
		ageGroup = types.AgeGroupOther
	}
	language := types.Language(strings.ToUpper(strings.TrimSpace(r.Language)))
	if language == "" {
		language = types.LanguageOther
	}

	return &types.Book{
		Name:            strings.TrimSpace(r.Name),
		Genre:           strings.TrimSpace(r.Genre),
		AgeGroup:        ageGroup,
		Price:           price,
		PublicationDate: published,
		Author:          strings.TrimSpace(r.Author),
		Pages:           r.Pages,
		Characteristics: r.Characteristics,
		Description:     r.Description,
		Language:        language,
	}, nil
}

// ImportStats summarizes one catalog import
type ImportStats struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"` // Names already in the catalog
	Failed   int           `json:"failed"`
	Errors   []string      `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Importer seeds the catalog from YAML files
type Importer struct {
	service *Service
	workers int
	lock    ImportLock
}

// NewImporter creates an importer that inserts with at most workers
// concurrent writes. workers <= 0 means runtime.NumCPU().
func NewImporter(service *Service, workers int) *Importer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Importer{service: service, workers: workers}
}

// Import loads the catalog file at path
func (im *Importer) Import(ctx context.Context, path string) (*ImportStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	return im.ImportReader(ctx, f)
}

// ImportReader loads a catalog document from r. Records that fail validation
// are counted and reported in the stats; they never abort the import.
func (im *Importer) ImportReader(ctx context.Context, r io.Reader) (*ImportStats, error) {
	if !im.lock.TryAcquire() {
		return nil, ErrImportInProgress
	}
	defer im.lock.Release()

	startTime := time.Now()

	var doc catalogFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	var (
		imported int32
		skipped  int32
		failed   int32
		mu       sync.Mutex // Protects stats.Errors
	)
	stats := &ImportStats{Errors: make([]string, 0)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers)

	for i, record := range doc.Books {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			err := im.importRecord(gctx, record)
			switch {
			case err == nil:
				atomic.AddInt32(&imported, 1)
			case errors.Is(err, types.ErrAlreadyExists):
				atomic.AddInt32(&skipped, 1)
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			default:
				atomic.AddInt32(&failed, 1)
				mu.Lock()
				stats.Errors = append(stats.Errors, fmt.Sprintf("record %d (%s): %v", i+1, record.Name, err))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.Imported = int(imported)
	stats.Skipped = int(skipped)
	stats.Failed = int(failed)
	stats.Duration = time.Since(startTime)

	im.service.logger.Info("catalog imported",
		"imported", stats.Imported, "skipped", stats.Skipped, "failed", stats.Failed,
		"duration", stats.Duration)
	return stats, nil
}

func (im *Importer) importRecord(ctx context.Context, record bookRecord) error {
	book, err := record.toBook()
	if err != nil {
		return err
	}
	_, err = im.service.AddBook(ctx, book)
	return err
}
