package drs

import (
	"fmt"
	"slices"
	"strings"

	"github.com/freva-org/databrowser/internal/domain"
)

// Registry is an immutable lookup of templates by id, built once at startup.
type Registry struct {
	byID  map[string]*Template
	order []string
}

// NewRegistry indexes templates by id. Ids must be unique.
func NewRegistry(templates ...*Template) (*Registry, error) {
	r := &Registry{byID: make(map[string]*Template, len(templates))}
	for _, t := range templates {
		if _, dup := r.byID[t.ID()]; dup {
			return nil, fmt.Errorf("duplicate template id %q", t.ID())
		}
		r.byID[t.ID()] = t
		r.order = append(r.order, t.ID())
	}
	return r, nil
}

// Get returns the template registered under id.
func (r *Registry) Get(id string) (*Template, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", domain.ErrTemplateNotFound, id, strings.Join(r.order, ","))
	}
	return t, nil
}

// IDs returns template ids in registration order.
func (r *Registry) IDs() []string { return slices.Clone(r.order) }

// Templates returns all templates in registration order.
func (r *Registry) Templates() []*Template {
	out := make([]*Template, len(r.order))
	for i, id := range r.order {
		out[i] = r.byID[id]
	}
	return out
}

// Decode parses path under the template registered as id.
func (r *Registry) Decode(path, id string) (Candidate, error) {
	t, err := r.Get(id)
	if err != nil {
		return Candidate{}, err
	}
	return t.Decode(path)
}

// Builtin template definitions: the CMIP5 archive layout (versioned) and
// the MiKlip baseline 1 layout (not versioned).
var (
	CMIP5 = Definition{
		ID:      "0",
		RootDir: "/gpfs_750/projects/CMIP5/data",
		PathParts: strings.Split(
			"project/product/institute/model/experiment/time_frequency/realm/cmor_table/ensemble/version/variable/file_name", "/"),
		DatasetParts: strings.Split(
			"project/product/institute/model/experiment/time_frequency/realm/cmor_table/ensemble", "/"),
		VersionedDatasetParts: strings.Split(
			"project/product/institute/model/experiment/time_frequency/realm/cmor_table/ensemble/version", "/"),
		FileNameParts: strings.Split("variable-cmor_table-model-experiment-ensemble-time", "-"),
		FileSuffix:    DefaultFileSuffix,
		TimeParts:     []string{"start_time", "end_time"},
		Defaults:      map[string]string{"project": "cmip5", "institute": "MPI-M", "model": "MPI-ESM-LR"},
	}
	Baseline1 = Definition{
		ID:      "1",
		RootDir: "/miklip/global/prod/archive",
		PathParts: strings.Split(
			"project/product/institute/model/experiment/time_frequency/realm/variable/ensemble/file_name", "/"),
		DatasetParts: strings.Split(
			"project/product/institute/model/experiment/time_frequency/realm/variable/ensemble", "/"),
		FileNameParts: strings.Split("variable-cmor_table-model-experiment-ensemble-time", "-"),
		FileSuffix:    DefaultFileSuffix,
		TimeParts:     []string{"start_time", "end_time"},
		Defaults: map[string]string{
			"project": "baseline1", "product": "output", "institute": "MPI-M", "model": "MPI-ESM-LR",
		},
	}
)

// DefaultRegistry returns a registry with the builtin templates.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(MustTemplate(CMIP5), MustTemplate(Baseline1))
	if err != nil {
		panic(err)
	}
	return r
}
