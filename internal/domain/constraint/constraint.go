// Package constraint models the caller-supplied search criteria.
//
// A Set maps field names to values. A value is either a scalar or an
// ordered list; a list means "any of". Shape is resolved once, at the
// boundary, so the rest of the pipeline never branches on it.
package constraint

import (
	"net/url"
	"slices"
	"strings"
)

// NegationSuffix marks a field whose clause must be excluded.
const NegationSuffix = "_not_"

// Reserved keys configure the query itself and never become filter clauses.
const (
	KeyQuery      = "q"
	KeyFieldList  = "fl"
	KeyFilter     = "fq"
	KeyFacetLimit = "facet.limit"
	KeySort       = "sort"
)

// Keys with special handling on the indexed path.
const (
	KeyText    = "text"
	KeyStart   = "start"
	KeyVersion = "version"
)

var reserved = map[string]struct{}{
	KeyQuery:      {},
	KeyFieldList:  {},
	KeyFilter:     {},
	KeyFacetLimit: {},
	KeySort:       {},
}

// IsReserved reports whether key is passed through verbatim as a query parameter.
func IsReserved(key string) bool {
	_, ok := reserved[key]
	return ok
}

// SplitNegation strips the negation suffix from key.
func SplitNegation(key string) (field string, negated bool) {
	if f, ok := strings.CutSuffix(key, NegationSuffix); ok && f != "" {
		return f, true
	}
	return key, false
}

// Value is either a scalar or an ordered list of alternatives.
type Value struct {
	values []string
	list   bool
}

// Scalar creates a single-valued constraint value.
func Scalar(v string) Value {
	return Value{values: []string{v}}
}

// List creates an OR-list constraint value.
func List(vs ...string) Value {
	return Value{values: slices.Clone(vs), list: true}
}

// IsList reports whether the value is an OR-list.
func (v Value) IsList() bool { return v.list }

// Values returns the alternatives (one element for a scalar).
func (v Value) Values() []string { return slices.Clone(v.values) }

// First returns the scalar value, or the first alternative of a list.
func (v Value) First() string {
	if len(v.values) == 0 {
		return ""
	}
	return v.values[0]
}

// String joins the alternatives with a comma.
func (v Value) String() string { return strings.Join(v.values, ",") }

// Set is a constraint set keyed by field name.
type Set map[string]Value

// FromValues builds a Set from URL query values. Repeated keys become lists.
func FromValues(vals url.Values) Set {
	s := make(Set, len(vals))
	for k, vs := range vals {
		switch len(vs) {
		case 0:
		case 1:
			s[k] = Scalar(vs[0])
		default:
			s[k] = List(vs...)
		}
	}
	return s
}

// FromMap builds a Set from a string map of scalars.
func FromMap(m map[string]string) Set {
	s := make(Set, len(m))
	for k, v := range m {
		s[k] = Scalar(v)
	}
	return s
}

// Keys returns the field names in lexical order.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone returns a shallow copy; values are immutable so this is a full copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Has reports whether key is constrained.
func (s Set) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Pop removes key and returns its value.
func (s Set) Pop(key string) (Value, bool) {
	v, ok := s[key]
	if ok {
		delete(s, key)
	}
	return v, ok
}

// WithDefaults returns a copy of s where keys missing from s are taken from defaults.
func (s Set) WithDefaults(defaults map[string]string) Set {
	out := FromMap(defaults)
	for k, v := range s {
		out[k] = v
	}
	return out
}

// WithTextAsQuery returns a copy where the "text" alias replaces the free-text query.
func (s Set) WithTextAsQuery() Set {
	out := s.Clone()
	if v, ok := out.Pop(KeyText); ok {
		out[KeyQuery] = v
	}
	return out
}

// FieldList is the canonical ordered list of field names (e.g. facet fields).
type FieldList []string

// ParseFieldList normalises field names given as separate items and/or
// comma separated strings. Blank entries are dropped.
func ParseFieldList(raw ...string) FieldList {
	var out FieldList
	for _, r := range raw {
		for _, f := range strings.Split(r, ",") {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
	}
	return out
}

// IsEmpty reports whether no field was given.
func (l FieldList) IsEmpty() bool { return len(l) == 0 }
