package model

import (
    "strings"
    "time"
)

// ReportFilter is the immutable filter configuration of a dashboard query.
// It is passed by value from the handler down to the store and the
// aggregator; nothing mutates it after parsing.
type ReportFilter struct {
    From     *time.Time
    To       *time.Time
    Status   string
    Lot      string
    Coupon   string
    Brand    string
    Currency string
    Search   string
    Limit    int
    Offset   int
}

const (
    DefaultPageLimit = 50
    MaxPageLimit     = 500
)

// WithPage returns a copy of f with a clamped limit/offset.
func (f ReportFilter) WithPage(limit, offset int) ReportFilter {
    if limit <= 0 {
        limit = DefaultPageLimit
    }
    if limit > MaxPageLimit {
        limit = MaxPageLimit
    }
    if offset < 0 {
        offset = 0
    }
    f.Limit = limit
    f.Offset = offset
    return f
}

// Matches applies the filter to a single charge in memory.  Date bounds are
// inclusive, string comparisons are case-insensitive.
func (f ReportFilter) Matches(c Charge) bool {
    if f.From != nil && c.Created.Before(*f.From) {
        return false
    }
    if f.To != nil && c.Created.After(*f.To) {
        return false
    }
    if f.Status != "" && !strings.EqualFold(c.Status, f.Status) {
        return false
    }
    if f.Lot != "" && !strings.EqualFold(c.Lot, f.Lot) {
        return false
    }
    if f.Coupon != "" && !strings.EqualFold(c.Coupon, f.Coupon) {
        return false
    }
    if f.Brand != "" && !strings.EqualFold(c.Brand, f.Brand) {
        return false
    }
    if f.Currency != "" && c.Currency != "" && !strings.EqualFold(c.Currency, f.Currency) {
        return false
    }
    if f.Search != "" {
        s := strings.ToLower(f.Search)
        if !strings.Contains(strings.ToLower(c.CustomerEmail), s) && !strings.Contains(strings.ToLower(c.CustomerName), s) {
            return false
        }
    }
    return true
}

// Page is one slice of a larger result set.
type Page[T any] struct {
    Items   []T  `json:"items"`
    Total   int  `json:"total"`
    Limit   int  `json:"limit"`
    Offset  int  `json:"offset"`
    HasMore bool `json:"has_more"`
}

// NewPage builds a Page and computes HasMore.
func NewPage[T any](items []T, total, limit, offset int) Page[T] {
    if items == nil {
        items = []T{}
    }
    return Page[T]{Items: items, Total: total, Limit: limit, Offset: offset, HasMore: offset+limit < total}
}

// Paginate slices an in-memory result with the filter's limit/offset.
func Paginate[T any](all []T, limit, offset int) Page[T] {
    total := len(all)
    if offset > total {
        offset = total
    }
    end := offset + limit
    if end > total {
        end = total
    }
    return NewPage(all[offset:end], total, limit, offset)
}
