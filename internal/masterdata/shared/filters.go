// Package shared holds helpers common to the masterdata modules.
package shared

import (
	"net/http"
	"strconv"
)

const (
	// DefaultPage is the first page.
	DefaultPage = 1
	// DefaultLimit bounds list pages when the caller does not choose one.
	DefaultLimit = 20
	// MaxLimit caps list pages.
	MaxLimit = 200
)

// ListFilters represents standard list page filters.
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	IsActive *bool
}

// Offset translates page and limit into a row offset.
func (f ListFilters) Offset() int {
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		return 0
	}
	return offset
}

// FiltersFromRequest extracts list filters from query parameters.
func FiltersFromRequest(r *http.Request) ListFilters {
	q := r.URL.Query()
	filters := ListFilters{Page: DefaultPage, Limit: DefaultLimit, Search: q.Get("search")}
	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		filters.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= MaxLimit {
		filters.Limit = limit
	}
	if s := q.Get("is_active"); s != "" {
		if active, err := strconv.ParseBool(s); err == nil {
			filters.IsActive = &active
		}
	}
	return filters
}
