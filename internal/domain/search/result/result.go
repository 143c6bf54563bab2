// Package result holds the values produced by a search.
package result

import (
	"encoding/json"
	"maps"
)

// PathField is the index field carrying the file path.
const PathField = "file"

// Document is one indexed file.
type Document struct {
	path   string
	fields map[string]any
}

// NewDocument builds a document from a raw index record.
// The path is read from the "file" field; all fields are kept.
func NewDocument(raw map[string]any) Document {
	var p string
	if v, ok := raw[PathField].(string); ok {
		p = v
	}
	return Document{path: p, fields: raw}
}

// Path returns the file path.
func (d Document) Path() string { return d.path }

// Field returns a raw field value.
func (d Document) Field(name string) (any, bool) {
	v, ok := d.fields[name]
	return v, ok
}

// StringField returns a field as a string, or "" when absent or not a string.
func (d Document) StringField(name string) string {
	s, _ := d.fields[name].(string)
	return s
}

// Fields returns a copy of all raw fields.
func (d Document) Fields() map[string]any { return maps.Clone(d.fields) }

// MarshalJSON emits the raw fields, or just the path when none were fetched.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d.fields) == 0 {
		return json.Marshal(map[string]string{PathField: d.path})
	}
	return json.Marshal(d.fields)
}

// Metadata summarises a search before any document is returned.
type Metadata struct {
	NumFound int    `json:"numFound"`
	Start    int    `json:"start"`
	SearchID string `json:"search_id,omitempty"`
}

// Item is one element of a search stream: either the metadata record or a document.
type Item struct {
	Meta *Metadata
	Doc  Document
}

// IsMetadata reports whether the item is the leading metadata record.
func (i Item) IsMetadata() bool { return i.Meta != nil }

// MarshalJSON emits whichever half of the item is set.
func (i Item) MarshalJSON() ([]byte, error) {
	if i.Meta != nil {
		return json.Marshal(i.Meta)
	}
	return json.Marshal(i.Doc)
}

// FacetValue is a distinct field value and the number of matching files.
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Facets maps field names to their values in index order.
type Facets map[string][]FacetValue

// Fields returns the faceted field names.
func (f Facets) Fields() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	return out
}
