// Package pagination provides page/limit pagination helpers for list endpoints.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// DefaultLimit is the page size when the client does not specify one.
const DefaultLimit = 50

// MaxLimit caps the page size a client may request.
const MaxLimit = 200

// Params holds parsed pagination parameters.
type Params struct {
	Page  int
	Limit int
}

// Offset returns the row offset for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Parse reads page and limit query parameters from the request,
// clamping them to sane bounds. Malformed values fall back to defaults.
func Parse(c *gin.Context) Params {
	return ParseWith(c, DefaultLimit, MaxLimit)
}

// ParseWith is Parse with caller-supplied default and maximum page sizes.
func ParseWith(c *gin.Context, defaultLimit, maxLimit int) Params {
	p := Params{Page: 1, Limit: defaultLimit}

	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Page = n
		}
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}

	return p
}

// Meta describes a page of results in list responses.
type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// NewMeta builds response metadata for a page over total items.
func NewMeta(p Params, total int) Meta {
	pages := 0
	if total > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Meta{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: pages,
	}
}

// Slice returns the [start, end) bounds of the current page over n items.
// Useful for in-memory stores; bounds are clamped to the slice length.
func (p Params) Slice(n int) (int, int) {
	start := p.Offset()
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}
