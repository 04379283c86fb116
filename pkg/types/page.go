package types

import "strings"

const (
	// DefaultPageSize is used when a request does not specify a size
	DefaultPageSize = 10
	// MaxPageSize caps the size of a single page
	MaxPageSize = 100
)

// Sort directions
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// PageRequest describes a page of a sorted list view
type PageRequest struct {
	Page      int    // Zero-based page index
	Size      int    // Items per page
	Sort      string // Sort field, validated by each list operation
	Direction string // "asc" or "desc"
	Keyword   string // Optional free-text filter
}

// Normalize clamps the request to sane values and returns the result
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Size <= 0 {
		r.Size = DefaultPageSize
	}
	if r.Size > MaxPageSize {
		r.Size = MaxPageSize
	}
	if strings.EqualFold(r.Direction, SortDesc) {
		r.Direction = SortDesc
	} else {
		r.Direction = SortAsc
	}
	r.Keyword = strings.TrimSpace(r.Keyword)
	return r
}

// Offset returns the number of rows to skip
func (r PageRequest) Offset() int {
	return r.Page * r.Size
}

// Page is one page of results plus the total row count
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
}

// TotalPages returns the number of pages needed for Total rows
func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return (p.Total + p.Size - 1) / p.Size
}
