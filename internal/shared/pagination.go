package shared

import (
	"math"
	"net/url"
	"strconv"
)

// DefaultPageSize is used when a list read names no limit.
const DefaultPageSize = 20

// ListFilter narrows a list read forwarded to the business API.
type ListFilter struct {
	Page   int
	Limit  int
	Status string
	Search string
}

// FirstPage is the unfiltered first page every list view opens on.
func FirstPage() ListFilter {
	return ListFilter{Page: 1, Limit: DefaultPageSize}
}

// Query encodes the filter as API query parameters, omitting zero values.
func (f ListFilter) Query() url.Values {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

// CacheParts identifies the read inside its tag.
func (f ListFilter) CacheParts() []string {
	return []string{"list", strconv.Itoa(f.Page), strconv.Itoa(f.Limit), f.Status, f.Search}
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage int, total int64) Pagination {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Page is one page of a list read.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}
