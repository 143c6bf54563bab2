package request

import (
	"fmt"
	"strconv"

	"github.com/freva-org/databrowser/internal/domain"
	"github.com/freva-org/databrowser/internal/domain/constraint"
)

// Batch size limits.
const (
	DefaultBatchSize = 10000
	MaxBatchSize     = 100000
)

// StreamOptions control a paginated search.
type StreamOptions struct {
	BatchSize    int  // page size, DefaultBatchSize when <= 0
	Offset       int  // index of the first document
	WithMetadata bool // yield one metadata item before the documents
	SearchID     string
}

// Request is a validated indexed search.
type Request struct {
	constraints  constraint.Set
	offset       int
	latest       bool
	withMetadata bool
	batchSize    int
}

// New validates and normalizes search parameters.
// The "text" alias becomes the free-text query and "start" becomes the
// initial offset. Defaults: batch size 10000, clamped to MaxBatchSize.
func New(set constraint.Set, latest, withMetadata bool, batchSize int) (Request, error) {
	c := set.WithTextAsQuery()

	offset := 0
	if v, ok := c.Pop(constraint.KeyStart); ok {
		n, err := strconv.Atoi(v.First())
		if v.IsList() || err != nil || n < 0 {
			return Request{}, fmt.Errorf("%w: start must be a non-negative integer, got %q",
				domain.ErrInvalidConstraint, v.String())
		}
		offset = n
	}

	if batchSize < 0 {
		return Request{}, fmt.Errorf("%w: batch size must not be negative", domain.ErrInvalidConstraint)
	}
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	if batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}

	return Request{
		constraints:  c,
		offset:       offset,
		latest:       latest,
		withMetadata: withMetadata,
		batchSize:    batchSize,
	}, nil
}

// Constraints returns the search constraints without control keys.
func (r *Request) Constraints() constraint.Set { return r.constraints.Clone() }

// Offset returns the index of the first document.
func (r *Request) Offset() int { return r.offset }

// Latest reports whether only the latest version of each dataset is wanted.
func (r *Request) Latest() bool { return r.latest }

// WithMetadata reports whether a metadata record precedes the documents.
func (r *Request) WithMetadata() bool { return r.withMetadata }

// BatchSize returns the page size.
func (r *Request) BatchSize() int { return r.batchSize }

// VersionPinned reports whether the caller constrained the version,
// which disables latest-version filtering.
func (r *Request) VersionPinned() bool { return r.constraints.Has(constraint.KeyVersion) }

// Page returns the stream options for this request.
func (r *Request) Page(searchID string) StreamOptions {
	return StreamOptions{
		BatchSize:    r.batchSize,
		Offset:       r.offset,
		WithMetadata: r.withMetadata,
		SearchID:     searchID,
	}
}
