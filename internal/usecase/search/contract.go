package search

import (
	"context"
	"iter"

	"github.com/freva-org/databrowser/internal/db"
	"github.com/freva-org/databrowser/internal/domain/constraint"
	"github.com/freva-org/databrowser/internal/domain/drs"
	"github.com/freva-org/databrowser/internal/domain/search/request"
	"github.com/freva-org/databrowser/internal/domain/search/result"
)

// Index defines the indexed backend contract.
type Index interface {
	Stream(ctx context.Context, core string, q db.Query, opts request.StreamOptions) iter.Seq2[result.Item, error]

	Facets(
		ctx context.Context, core string,
		set constraint.Set, fields constraint.FieldList, groupBy string,
	) (result.Facets, error)
}

// Archive enumerates candidates on the file system.
type Archive interface {
	Search(ctx context.Context, tmpl *drs.Template, set constraint.Set) (iter.Seq2[drs.Candidate, error], error)
}

// Templates looks up naming templates by id.
type Templates interface {
	Get(id string) (*drs.Template, error)
	Templates() []*drs.Template
}
