// Package paging turns page, size and sort query parameters into a PageRequest.
//
// Parsing is lenient for page and size (bad values fall back to defaults) and
// strict for sort, because an unknown sort field cannot be mapped to a column.
package paging

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage = 0
	DefaultSize = 20
	MaxSize     = 2000

	// MaxPage keeps Page*Size within int for any accepted size.
	MaxPage = math.MaxInt / MaxSize
)

// ErrInvalidSort is returned for sort parameters naming an unknown field or direction.
var ErrInvalidSort = errors.New("invalid sort parameter")

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Order is one sort key.
type Order struct {
	Field     string
	Direction Direction
}

// PageRequest is an offset-indexed page with its sort order.
type PageRequest struct {
	Page int
	Size int
	Sort []Order
}

// Offset returns the number of rows preceding the page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Sorted reports whether field already appears in the sort order.
func (p PageRequest) Sorted(field string) bool {
	for _, o := range p.Sort {
		if o.Field == field {
			return true
		}
	}
	return false
}

// Parse reads page, size and sort from q. Sort fields must be in allowed;
// when q has no sort, def is used.
func Parse(q url.Values, allowed []string, def ...Order) (PageRequest, error) {
	req := PageRequest{
		Page: DefaultPage,
		Size: DefaultSize,
	}

	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			req.Page = min(n, MaxPage)
		}
	}
	if v := q.Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			req.Size = min(n, MaxSize)
		}
	}

	for _, raw := range q["sort"] {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		o, err := parseOrder(raw, allowed)
		if err != nil {
			return PageRequest{}, err
		}
		req.Sort = append(req.Sort, o)
	}
	if len(req.Sort) == 0 {
		req.Sort = append(req.Sort, def...)
	}
	return req, nil
}

// parseOrder accepts "field" or "field,asc|desc".
func parseOrder(raw string, allowed []string) (Order, error) {
	field, dir, _ := strings.Cut(raw, ",")
	field = strings.TrimSpace(field)

	known := false
	for _, a := range allowed {
		if a == field {
			known = true
			break
		}
	}
	if !known {
		return Order{}, fmt.Errorf("%w: unknown field %q", ErrInvalidSort, field)
	}

	o := Order{Field: field, Direction: Asc}
	switch strings.ToUpper(strings.TrimSpace(dir)) {
	case "", "ASC":
	case "DESC":
		o.Direction = Desc
	default:
		return Order{}, fmt.Errorf("%w: unknown direction %q", ErrInvalidSort, dir)
	}
	return o, nil
}
