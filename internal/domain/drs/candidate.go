package drs

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/freva-org/databrowser/internal/domain"
)

// Candidate is one path decoded under a Template. It is immutable.
type Candidate struct {
	tmpl  *Template
	parts map[string]string
}

// Template returns the template the candidate was decoded with.
func (c Candidate) Template() *Template { return c.tmpl }

// Get returns a single attribute.
func (c Candidate) Get(name string) (string, bool) {
	v, ok := c.parts[name]
	return v, ok
}

// Parts returns a copy of all attributes.
func (c Candidate) Parts() map[string]string { return maps.Clone(c.parts) }

// Path encodes the candidate back into an archive path.
func (c Candidate) Path() (string, error) {
	if c.tmpl == nil {
		return "", fmt.Errorf("candidate has no template")
	}
	return c.tmpl.Encode(c.parts)
}

// String returns the archive path, or an empty string if it cannot be encoded.
func (c Candidate) String() string {
	p, err := c.Path()
	if err != nil {
		return ""
	}
	return p
}

// DatasetKey joins the dataset attributes with dots. The versioned key
// additionally includes the version and requires a versioned template.
func (c Candidate) DatasetKey(versioned bool) (string, error) {
	if c.tmpl == nil {
		return "", fmt.Errorf("candidate has no template")
	}
	names := c.tmpl.def.DatasetParts
	if versioned {
		if !c.tmpl.IsVersioned() {
			return "", fmt.Errorf("%w: template %s is not versioned", domain.ErrUnsupportedOperation, c.tmpl.ID())
		}
		names = c.tmpl.def.VersionedDatasetParts
	}
	values := make([]string, len(names))
	for i, name := range names {
		v, ok := c.parts[name]
		if !ok {
			return "", &TemplateMismatchError{
				Template: c.tmpl.ID(),
				Path:     c.String(),
				Reason:   "missing dataset part " + name,
			}
		}
		values[i] = v
	}
	return strings.Join(values, "."), nil
}

// Version returns the dataset version. ok is false when the template is
// not versioned or the attribute is absent.
func (c Candidate) Version() (v Version, ok bool) {
	if c.tmpl == nil || !c.tmpl.IsVersioned() {
		return Version{}, false
	}
	raw, ok := c.parts[c.tmpl.def.VersionPart]
	if !ok {
		return Version{}, false
	}
	return ParseVersion(raw), true
}

// Equal reports whether two candidates share a template and all attributes.
func (c Candidate) Equal(o Candidate) bool {
	if c.tmpl != o.tmpl {
		return false
	}
	return maps.Equal(c.parts, o.parts)
}

type candidateJSON struct {
	Template string            `json:"template"`
	Path     string            `json:"path"`
	Dataset  string            `json:"dataset"`
	Version  string            `json:"version,omitempty"`
	Parts    map[string]string `json:"parts"`
}

// MarshalJSON renders the candidate with its derived path and dataset key.
func (c Candidate) MarshalJSON() ([]byte, error) {
	out := candidateJSON{Parts: c.parts}
	if c.tmpl != nil {
		out.Template = c.tmpl.ID()
		out.Path = c.String()
		out.Dataset, _ = c.DatasetKey(false)
	}
	if v, ok := c.Version(); ok {
		out.Version = v.String()
	}
	return json.Marshal(out) //nolint:wrapcheck // plain struct encoding
}
