package models

import "math"

const (
	// DefaultPageLimit applies when a listing request omits the limit.
	DefaultPageLimit = 10
	// MaxPageLimit caps the limit a caller may ask for.
	MaxPageLimit = 100
)

// PageRequest is a 1-based page selection.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize fills defaults and clamps the limit to max.
func (p PageRequest) Normalize(defaultLimit, max int) PageRequest {
	if defaultLimit <= 0 {
		defaultLimit = DefaultPageLimit
	}
	if max <= 0 {
		max = MaxPageLimit
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > max {
		p.Limit = max
	}
	return p
}

// MaxPage is the largest page whose skip still fits an int64 at the given limit.
func MaxPage(limit int) int {
	if limit < 1 {
		limit = 1
	}
	q := math.MaxInt64 / int64(limit)
	if q >= math.MaxInt {
		return math.MaxInt
	}
	return int(q) + 1
}

// Skip returns the number of documents preceding the page, saturating rather
// than overflowing.
func (p PageRequest) Skip() int64 {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	if p.Page > MaxPage(p.Limit) {
		return math.MaxInt64
	}
	return int64(p.Page-1) * int64(p.Limit)
}

// Page is a slice of a listing plus the bookkeeping a client needs to walk it.
type Page[T any] struct {
	Docs        []T   `json:"docs"`
	TotalDocs   int64 `json:"totalDocs"`
	Limit       int   `json:"limit"`
	Page        int   `json:"page"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NewPage assembles a Page from one slice of documents and the total match count.
func NewPage[T any](docs []T, total int64, req PageRequest) Page[T] {
	if docs == nil {
		docs = []T{}
	}
	totalPages := 0
	if req.Limit > 0 {
		totalPages = int((total + int64(req.Limit) - 1) / int64(req.Limit))
	}
	return Page[T]{
		Docs:        docs,
		TotalDocs:   total,
		Limit:       req.Limit,
		Page:        req.Page,
		TotalPages:  totalPages,
		HasNextPage: req.Page < totalPages,
		HasPrevPage: req.Page > 1,
	}
}
