package db

import (
	"encoding/json"
	"fmt"

	"github.com/freva-org/databrowser/internal/domain"
)

// SelectResponse is the decoded answer of a select request.
type SelectResponse struct {
	Response    *ResponseBody `json:"response"`
	FacetCounts *FacetCounts  `json:"facet_counts,omitempty"`
}

// Body returns the response object. An answer without one is malformed.
func (r *SelectResponse) Body() (*ResponseBody, error) {
	if r == nil || r.Response == nil {
		return nil, fmt.Errorf("%w: %w: no response object", domain.ErrBackendCommunication, ErrMalformedResponse)
	}
	return r.Response, nil
}

// ResponseBody carries the match count and one page of documents.
type ResponseBody struct {
	NumFound int              `json:"numFound"`
	Start    int              `json:"start"`
	Docs     []map[string]any `json:"docs"`
}

// FacetCounts holds per-field facet counts as alternating value/count lists.
type FacetCounts struct {
	FacetFields map[string][]any `json:"facet_fields"`
}

// FacetPair is one decoded value/count entry.
type FacetPair struct {
	Value string
	Count int
}

// Pairs decodes the alternating value/count list of field.
func (f *FacetCounts) Pairs(field string) ([]FacetPair, error) {
	raw := f.FacetFields[field]
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("facet %s: odd number of entries (%d)", field, len(raw))
	}
	out := make([]FacetPair, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		value := fmt.Sprint(raw[i])
		count, err := toInt(raw[i+1])
		if err != nil {
			return nil, fmt.Errorf("facet %s value %q: %w", field, value, err)
		}
		out = append(out, FacetPair{Value: value, Count: count})
	}
	return out, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("parse count: %w", err)
		}
		return int(i), nil
	case float64:
		return int(n), nil
	case int:
		return n, nil
	default:
		return 0, fmt.Errorf("count has type %T", v)
	}
}

// Metadata is a response summary without documents.
type Metadata struct {
	NumFound int `json:"numFound"`
	Start    int `json:"start"`
}

// Metadata returns the response summary.
func (r *SelectResponse) Metadata() Metadata {
	body, err := r.Body()
	if err != nil {
		return Metadata{}
	}
	return Metadata{NumFound: body.NumFound, Start: body.Start}
}
