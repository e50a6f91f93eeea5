// Package query lists snapshots one page at a time. Pages are always derived
// from the live collection; nothing is cached between requests.
package query

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hyperengineering/invrestore/internal/event"
	"github.com/hyperengineering/invrestore/internal/snapshot"
)

// ErrInvalidPage is returned for page arguments that are not positive integers
// and for non-positive page sizes.
var ErrInvalidPage = errors.New("invalid page")

// Source is the read side of the store used for listing.
type Source interface {
	FindByOwnerAndType(name string, typ event.Type) []snapshot.Snapshot
}

// Request selects one page of an owner's snapshots. An empty Type matches
// every event type.
type Request struct {
	Owner    string
	Type     event.Type
	Page     int
	PageSize int
}

// Page is one slice of a newest-first result set.
type Page struct {
	Request
	Items   []snapshot.Snapshot
	Total   int
	MaxPage int
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool {
	return p.Page < p.MaxPage
}

// List runs the request against src. A page outside 1..MaxPage yields no
// items and no error.
func List(src Source, req Request) (Page, error) {
	if req.PageSize < 1 {
		return Page{}, fmt.Errorf("%w: page size %d", ErrInvalidPage, req.PageSize)
	}
	all := src.FindByOwnerAndType(req.Owner, req.Type)
	return Page{
		Request: req,
		Items:   Paginate(all, req.Page, req.PageSize),
		Total:   len(all),
		MaxPage: MaxPage(len(all), req.PageSize),
	}, nil
}

// Paginate returns items[(page-1)*size : min(page*size, len(items))], or nil
// when that range is empty or starts before zero.
func Paginate[T any](items []T, page, size int) []T {
	if size < 1 {
		return nil
	}
	start := (page - 1) * size
	if start < 0 || start >= len(items) {
		return nil
	}
	end := min(start+size, len(items))
	return items[start:end:end]
}

// MaxPage is the number of pages needed for total items.
func MaxPage(total, size int) int {
	if size < 1 || total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// ParsePage parses a 1-indexed page argument.
func ParsePage(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPage, s)
	}
	return n, nil
}

// ParseType resolves an optional event type argument. The empty string
// means every type.
func ParseType(s string) (event.Type, error) {
	if s == "" {
		return "", nil
	}
	return event.Lookup(s)
}
