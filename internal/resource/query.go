package resource

import (
	"net/url"
	"strconv"
)

// ServerFilter carries the query parameters a list endpoint understands.
// Zero values are omitted from the query string entirely, never serialized
// as empty or literal "undefined" values.
type ServerFilter struct {
	Limit      int
	Page       int
	Keyword    string
	Status     string
	Search     string
	Sort       string
	DateRefund string
}

// Values serializes the filter as URL query parameters.
func (f ServerFilter) Values() url.Values {
	q := url.Values{}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Keyword != "" {
		q.Set("keyword", f.Keyword)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Sort != "" {
		q.Set("sort", f.Sort)
	}
	if f.DateRefund != "" {
		q.Set("dateRefund", f.DateRefund)
	}
	return q
}

// IsZero reports whether no parameter is set.
func (f ServerFilter) IsZero() bool {
	return f == ServerFilter{}
}
