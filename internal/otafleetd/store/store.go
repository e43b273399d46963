package store

import (
	"encoding/json"
	"errors"
)

// Sentinel errors shared by all stores. Handlers map these onto HTTP
// error codes.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrBadRequest = errors.New("invalid request")
)

// ListOptions carries the common list-endpoint query parameters.
// Page is 1-based. Search shorter than 2 characters is ignored to
// avoid overly broad scans.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
	Status string
	Sort   string
	Order  string
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Normalize clamps pagination and drops degenerate search input.
func (o *ListOptions) Normalize() {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if len(o.Search) < 2 {
		o.Search = ""
	}
	if o.Order != "asc" && o.Order != "desc" {
		o.Order = "desc"
	}
}

// Offset returns the SQL offset for the normalized options.
func (o *ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// orderClause builds an ORDER BY fragment from a whitelist of sortable
// columns. Unknown sort keys fall back to the default column.
func orderClause(sort, order, def string, allowed map[string]string) string {
	col, ok := allowed[sort]
	if !ok {
		col = def
	}
	if order == "asc" {
		return col + " ASC"
	}
	return col + " DESC"
}

// marshalJSON encodes a details map for storage; empty maps persist as
// NULL.
func marshalJSON(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalJSON(s *string) map[string]any {
	if s == nil || *s == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(*s), &m); err != nil {
		return nil
	}
	return m
}

func marshalStrings(ss []string) (any, error) {
	if len(ss) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(ss)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalStrings(s *string) []string {
	if s == nil || *s == "" {
		return nil
	}
	var ss []string
	if err := json.Unmarshal([]byte(*s), &ss); err != nil {
		return nil
	}
	return ss
}
