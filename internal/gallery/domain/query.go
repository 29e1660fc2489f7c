package domain

import (
	"fmt"
	"net/url"
	"strings"
)

type MatchMode string

const (
	MatchExact     MatchMode = "exact"
	MatchSubstring MatchMode = "substring" // case-insensitive
)

// AttributeFilter selects objects by one attribute value.
type AttributeFilter struct {
	Field string
	Value string
	Mode  MatchMode
}

// Matches applies the filter to a set of attributes. A nil filter matches everything.
func (f *AttributeFilter) Matches(a Attributes) bool {
	if f == nil {
		return true
	}
	v, ok := a.Get(f.Field)
	if !ok {
		return false
	}
	if f.Mode == MatchSubstring {
		return strings.Contains(strings.ToLower(v), strings.ToLower(f.Value))
	}
	return v == f.Value
}

func (f *AttributeFilter) validate() error {
	if f == nil {
		return nil
	}
	if _, ok := (Attributes{}).Get(f.Field); !ok {
		return fmt.Errorf("%w: unknown attribute %q", ErrInvalidQuery, f.Field)
	}
	if f.Mode != MatchExact && f.Mode != MatchSubstring {
		return fmt.Errorf("%w: unknown match mode %q", ErrInvalidQuery, f.Mode)
	}
	return nil
}

// ObjectFilter is what a BlobStore is asked to select. Both parts are optional.
type ObjectFilter struct {
	GroupID   string
	Attribute *AttributeFilter
}

// Matches reports whether an object satisfies the filter.
func (f ObjectFilter) Matches(obj StoredObject) bool {
	if f.GroupID != "" && obj.Metadata.GroupID != f.GroupID {
		return false
	}
	return f.Attribute.Matches(obj.Metadata.Attributes)
}

// Query parameterizes one listing reconstruction.
type Query struct {
	Filter           *AttributeFilter
	AllowedBodyTypes []string
	Limit            int
	Page             int
	PageSize         int
}

// Paginated reports whether the query asks for a window of the grouped result.
func (q Query) Paginated() bool {
	return q.PageSize > 0
}

func (q Query) Validate() error {
	if err := q.Filter.validate(); err != nil {
		return err
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	if q.PageSize < 0 {
		return fmt.Errorf("%w: negative page size", ErrInvalidQuery)
	}
	if q.Paginated() && q.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1", ErrInvalidQuery)
	}
	return nil
}

// Key is a stable textual form of the query, used for caching.
func (q Query) Key() string {
	var b strings.Builder
	// user values are escaped so they cannot forge separators
	if q.Filter != nil {
		fmt.Fprintf(&b, "f=%s:%s:%s;", q.Filter.Field, q.Filter.Mode, url.QueryEscape(q.Filter.Value))
	}
	if len(q.AllowedBodyTypes) > 0 {
		allowed := make([]string, len(q.AllowedBodyTypes))
		for i, bt := range q.AllowedBodyTypes {
			allowed[i] = url.QueryEscape(bt)
		}
		fmt.Fprintf(&b, "allow=%s;", strings.Join(allowed, ","))
	}
	fmt.Fprintf(&b, "limit=%d;page=%d;size=%d", q.Limit, q.Page, q.PageSize)
	return b.String()
}
