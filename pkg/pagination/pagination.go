package pagination

import (
	"net/url"
	"strconv"
)

type Request struct {
	Page  int
	Limit int
}

func (r Request) Offset() int {
	return (r.Page - 1) * r.Limit
}

// Parse reads page and limit from q. Missing or malformed values take the
// defaults; limit is clamped to [1, maxLimit].
func Parse(q url.Values, defaultLimit, maxLimit int) Request {
	page := atoi(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	limit := atoi(q.Get("limit"), defaultLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return Request{Page: page, Limit: limit}
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

type Meta struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
	HasNextPage  bool  `json:"hasNextPage"`
	HasPrevPage  bool  `json:"hasPrevPage"`
}

func NewMeta(r Request, total int64) Meta {
	pages := int((total + int64(r.Limit) - 1) / int64(r.Limit))
	return Meta{
		CurrentPage:  r.Page,
		TotalPages:   pages,
		TotalItems:   total,
		ItemsPerPage: r.Limit,
		HasNextPage:  r.Page < pages,
		HasPrevPage:  r.Page > 1,
	}
}
