package search

import (
	"context"
	"fmt"
	"slices"

	"github.com/freva-org/databrowser/internal/db"
	"github.com/freva-org/databrowser/internal/domain"
	"github.com/freva-org/databrowser/internal/domain/constraint"
	"github.com/freva-org/databrowser/internal/domain/search/result"
)

// Fields never offered as facets when the caller does not name any.
var excludedFacets = map[string]struct{}{
	"":                {},
	"_version_":       {},
	"file_no_version": {},
	"level":           {},
	"timestamp":       {},
	"time":            {},
	"creation_time":   {},
	"source":          {},
	"version":         {},
	"file":            {},
	"file_name":       {},
}

const (
	paramGroup      = "group"
	paramGroupField = "group.field"
	paramGroupFacet = "group.facet"
)

// languageFacet is added by the index itself and is always dropped.
const languageFacet = "language"

// Facets counts the distinct values of fields among the documents matching set.
// An empty field list means every schema field that is not excluded. A
// non-empty groupBy counts each group of documents sharing that field once.
func (r *Repo) Facets(
	ctx context.Context, core string,
	set constraint.Set, fields constraint.FieldList, groupBy string,
) (result.Facets, error) {
	if fields.IsEmpty() {
		// Shared by coalesced callers, so it ignores cancellation of any one of them.
		shared := context.WithoutCancel(ctx)
		all, err, _ := r.schema.Do(core, func() (any, error) {
			return r.store.Fields(shared, core)
		})
		if err != nil {
			return nil, fmt.Errorf("facet fields %s: %w", core, err)
		}
		fields = FacetableFields(all.([]string))
	}

	q := db.Translate(set.WithTextAsQuery()).
		WithDefault(db.ParamQuery, defaultQuery).
		WithDefault(db.ParamFacetLimit, "-1").
		Facet(fields)
	if groupBy != "" {
		q = q.With(paramGroup, "true").With(paramGroupField, groupBy).With(paramGroupFacet, "true")
	}

	resp, err := r.store.Select(ctx, core, q)
	if err != nil {
		return nil, fmt.Errorf("facets %s: %w", core, err)
	}

	out := make(result.Facets)
	if resp.FacetCounts == nil || resp.FacetCounts.FacetFields == nil {
		if fields.IsEmpty() {
			return out, nil
		}
		return nil, fmt.Errorf("facets %s: %w: %w: no facet counts", core, domain.ErrBackendCommunication, db.ErrMalformedResponse)
	}
	for field := range resp.FacetCounts.FacetFields {
		if field == languageFacet {
			continue
		}
		pairs, err := resp.FacetCounts.Pairs(field)
		if err != nil {
			return nil, fmt.Errorf("facets %s: %w: %w", core, domain.ErrBackendCommunication, err)
		}
		values := make([]result.FacetValue, len(pairs))
		for i, p := range pairs {
			values[i] = result.FacetValue{Value: p.Value, Count: p.Count}
		}
		out[field] = values
	}
	return out, nil
}

// FacetableFields drops the excluded fields from a schema field list, keeping order.
func FacetableFields(all []string) constraint.FieldList {
	out := make(constraint.FieldList, 0, len(all))
	for _, f := range all {
		if _, skip := excludedFacets[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return slices.Clip(out)
}
