package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AgeGroup is the target audience of a book
type AgeGroup string

const (
	AgeGroupChild AgeGroup = "CHILD"
	AgeGroupTeen  AgeGroup = "TEEN"
	AgeGroupAdult AgeGroup = "ADULT"
	AgeGroupOther AgeGroup = "OTHER"
)

// Valid reports whether a is a known age group
func (a AgeGroup) Valid() bool {
	switch a {
	case AgeGroupChild, AgeGroupTeen, AgeGroupAdult, AgeGroupOther:
		return true
	}
	return false
}

// Language is the language a book is written in
type Language string

const (
	LanguageEnglish   Language = "ENGLISH"
	LanguageUkrainian Language = "UKRAINIAN"
	LanguageSpanish   Language = "SPANISH"
	LanguageFrench    Language = "FRENCH"
	LanguageGerman    Language = "GERMAN"
	LanguageOther     Language = "OTHER"
)

// Valid reports whether l is a known language
func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageUkrainian, LanguageSpanish, LanguageFrench, LanguageGerman, LanguageOther:
		return true
	}
	return false
}

// Book is a catalog record. Name is the unique, human-readable identity.
type Book struct {
	// Identification
	ID   int64  `json:"id"`
	Name string `json:"name"`

	// Catalog data
	Genre           string          `json:"genre"`
	AgeGroup        AgeGroup        `json:"age_group"`
	Price           decimal.Decimal `json:"price"`
	PublicationDate time.Time       `json:"publication_date"`
	Author          string          `json:"author"`
	Pages           int             `json:"pages"`
	Characteristics string          `json:"characteristics,omitempty"`
	Description     string          `json:"description,omitempty"`
	Language        Language        `json:"language"`
}

// Validate checks the catalog invariants of a book. now bounds the publication date.
func (b *Book) Validate(now time.Time) error {
	if strings.TrimSpace(b.Name) == "" {
		return NewValidationError("name", "cannot be empty")
	}
	if len(b.Name) > 100 {
		return NewValidationError("name", "is too long")
	}
	if strings.TrimSpace(b.Genre) == "" {
		return NewValidationError("genre", "cannot be empty")
	}
	if strings.TrimSpace(b.Author) == "" {
		return NewValidationError("author", "cannot be empty")
	}
	if !b.Price.IsPositive() {
		return NewValidationError("price", "must be greater than 0")
	}
	if err := ValidateMoneyScale("price", b.Price); err != nil {
		return err
	}
	if b.Pages < 1 {
		return NewValidationError("pages", "must be at least 1")
	}
	if b.PublicationDate.IsZero() {
		return NewValidationError("publication_date", "is required")
	}
	if b.PublicationDate.After(now) {
		return NewValidationError("publication_date", "cannot be in the future")
	}
	if !b.AgeGroup.Valid() {
		return NewValidationError("age_group", "is not supported")
	}
	if !b.Language.Valid() {
		return NewValidationError("language", "is not supported")
	}
	if len(b.Description) > 2000 {
		return NewValidationError("description", "is too long")
	}
	return nil
}

// BookUpdate carries the descriptive fields an employee may edit.
// The name is the identity and is never changed by an update.
type BookUpdate struct {
	Genre           string
	AgeGroup        AgeGroup
	Price           decimal.Decimal
	PublicationDate time.Time
	Author          string
	Pages           int
	Characteristics string
	Description     string
	Language        Language
}

// Apply copies every field of the update onto b
func (u BookUpdate) Apply(b *Book) {
	b.Genre = u.Genre
	b.AgeGroup = u.AgeGroup
	b.Price = u.Price
	b.PublicationDate = u.PublicationDate
	b.Author = u.Author
	b.Pages = u.Pages
	b.Characteristics = u.Characteristics
	b.Description = u.Description
	b.Language = u.Language
}
