package search

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/freva-org/databrowser/internal/db"
	"github.com/freva-org/databrowser/internal/domain/search/request"
	"github.com/freva-org/databrowser/internal/domain/search/result"
	"github.com/freva-org/databrowser/internal/logger"
	"github.com/freva-org/databrowser/internal/metrics"
)

// Query defaults applied when the caller leaves them unset.
const (
	defaultQuery  = "*:*"
	defaultFields = result.PathField
	defaultSort   = "file desc"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	Select(ctx context.Context, core string, q db.Query) (*db.SelectResponse, error)
	Fields(ctx context.Context, core string) ([]string, error)
}

// Repo implements usecase/search.Repository on top of an index store.
type Repo struct {
	store store
	// schema coalesces concurrent schema lookups per core.
	schema singleflight.Group
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Stream returns the documents matching q in pages of opts.BatchSize.
//
// A probe request (rows=0) determines the number of matches; pages are then
// requested until that many documents were yielded or a page comes back
// empty. Nothing is requested until the sequence is iterated. Breaking out
// of the range loop stops further requests.
func (r *Repo) Stream(ctx context.Context, core string, q db.Query, opts request.StreamOptions) iter.Seq2[result.Item, error] {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = request.DefaultBatchSize
	}
	q = q.WithDefault(db.ParamQuery, defaultQuery).
		WithDefault(db.ParamFields, defaultFields).
		WithDefault(db.ParamSort, defaultSort)

	return func(yield func(result.Item, error) bool) {
		log := logger.FromContext(ctx)

		probe, err := r.store.Select(ctx, core, q.Page(opts.Offset, 0))
		if err != nil {
			yield(result.Item{}, fmt.Errorf("probe %s: %w", core, err))
			return
		}
		body, err := probe.Body()
		if err != nil {
			yield(result.Item{}, fmt.Errorf("probe %s: %w", core, err))
			return
		}
		numFound := body.NumFound
		log.Debug("search probe",
			logger.Core(core),
			zap.Int("num_found", numFound),
			zap.Int("offset", opts.Offset),
		)

		if opts.WithMetadata {
			meta := &result.Metadata{NumFound: numFound, Start: body.Start, SearchID: opts.SearchID}
			if !yield(result.Item{Meta: meta}, nil) {
				return
			}
		}

		offset := opts.Offset
		remaining := max(numFound-offset, 0)
		for remaining > 0 {
			rows := min(batch, remaining)
			page, err := r.store.Select(ctx, core, q.Page(offset, rows))
			if err != nil {
				yield(result.Item{}, fmt.Errorf("page %s at %d: %w", core, offset, err))
				return
			}
			metrics.SearchPagesTotal.Inc()

			pageBody, err := page.Body()
			if err != nil {
				yield(result.Item{}, fmt.Errorf("page %s at %d: %w", core, offset, err))
				return
			}
			docs := pageBody.Docs
			log.Debug("search page", logger.Core(core), zap.Int("start", offset), zap.Int("docs", len(docs)))
			if len(docs) == 0 {
				log.Warn("empty page before all matches were read",
					logger.Core(core), zap.Int("start", offset), zap.Int("remaining", remaining))
				return
			}

			for _, raw := range docs {
				metrics.SearchDocumentsTotal.Inc()
				if !yield(result.Item{Doc: result.NewDocument(raw)}, nil) {
					return
				}
				remaining--
			}
			offset += rows
		}
	}
}
