package db

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/freva-org/databrowser/internal/domain/constraint"
)

// Select parameter names.
const (
	ParamQuery          = "q"
	ParamFilter         = "fq"
	ParamFields         = "fl"
	ParamSort           = "sort"
	ParamStart          = "start"
	ParamRows           = "rows"
	ParamFacet          = "facet"
	ParamFacetField     = "facet.field"
	ParamFacetSort      = "facet.sort"
	ParamFacetMinCount  = "facet.mincount"
	ParamFacetLimit     = "facet.limit"
	ParamResponseWriter = "wt"
)

const orOperator = " OR "

// Query is a translated select request: filter clauses plus scalar parameters.
// Query values are immutable; the With* methods return modified copies.
type Query struct {
	clauses []string
	params  url.Values
}

// Translate converts a constraint set into a Query. Reserved keys become
// parameters verbatim; every other key becomes one filter clause, in
// lexical key order. Field names are not validated here: the index decides.
func Translate(set constraint.Set) Query {
	q := Query{params: url.Values{}}
	for _, key := range set.Keys() {
		v := set[key]
		if constraint.IsReserved(key) {
			q.params[key] = append(q.params[key], v.Values()...)
			continue
		}
		q.clauses = append(q.clauses, Clause(key, v))
	}
	return q
}

// Clause builds the filter clause for one constraint. A negated key
// (field_not_) excludes its values; a list matches any of its values.
func Clause(key string, v constraint.Value) string {
	field, negated := constraint.SplitNegation(key)
	values := v.Values()
	terms := make([]string, len(values))
	for i, val := range values {
		terms[i] = field + ":" + val
	}
	clause := strings.Join(terms, orOperator)
	if !negated {
		return clause
	}
	if len(terms) == 1 {
		return "-" + clause
	}
	return "-(" + clause + ")"
}

// Clauses returns the filter clauses in order.
func (q Query) Clauses() []string { return slices.Clone(q.clauses) }

// Param returns the first value of a scalar parameter.
func (q Query) Param(name string) string { return q.params.Get(name) }

// Params returns all values of a parameter.
func (q Query) Params(name string) []string { return slices.Clone(q.params[name]) }

// With returns a copy with name set to values, replacing previous values.
func (q Query) With(name string, values ...string) Query {
	out := q.clone()
	out.params[name] = slices.Clone(values)
	return out
}

// WithDefault returns a copy with name set only if it is not set yet.
func (q Query) WithDefault(name, value string) Query {
	if q.params.Has(name) {
		return q
	}
	return q.With(name, value)
}

// Without returns a copy with name removed.
func (q Query) Without(name string) Query {
	out := q.clone()
	out.params.Del(name)
	return out
}

// Page returns a copy requesting rows documents starting at start.
func (q Query) Page(start, rows int) Query {
	return q.With(ParamStart, strconv.Itoa(start)).With(ParamRows, strconv.Itoa(rows))
}

// Facet returns a copy requesting index-sorted facet counts (min count 1)
// for fields. No documents are requested.
func (q Query) Facet(fields []string) Query {
	out := q.With(ParamRows, "0")
	if len(fields) == 0 {
		return out
	}
	return out.
		With(ParamFacet, "true").
		With(ParamFacetSort, "index").
		With(ParamFacetMinCount, "1").
		With(ParamFacetField, fields...)
}

// Encode renders the query as a percent-encoded query string. Parameters
// are sorted by name; filter clauses follow any verbatim fq values.
func (q Query) Encode() string {
	vals := make(url.Values, len(q.params)+1)
	for k, vs := range q.params {
		vals[k] = slices.Clone(vs)
	}
	vals[ParamFilter] = append(vals[ParamFilter], q.clauses...)
	if len(vals[ParamFilter]) == 0 {
		delete(vals, ParamFilter)
	}
	return vals.Encode()
}

// String returns the encoded query.
func (q Query) String() string { return q.Encode() }

func (q Query) clone() Query {
	out := Query{clauses: slices.Clone(q.clauses), params: make(url.Values, len(q.params)+1)}
	for k, vs := range q.params {
		out.params[k] = slices.Clone(vs)
	}
	return out
}
