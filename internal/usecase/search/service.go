package search

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/freva-org/databrowser/internal/db"
	"github.com/freva-org/databrowser/internal/domain/constraint"
	"github.com/freva-org/databrowser/internal/domain/drs"
	"github.com/freva-org/databrowser/internal/domain/search/request"
	"github.com/freva-org/databrowser/internal/domain/search/result"
	"github.com/freva-org/databrowser/internal/logger"
)

// Index fields used to resolve the latest version when no latest core exists.
const (
	fieldDataset = "file_no_version"
	fieldVersion = "version"
)

// Cores names the index cores. Latest may be empty when the index keeps a
// single core; latest-version filtering then happens in the service.
type Cores struct {
	Latest string
	Files  string
}

// Service answers discovery requests against the index and the archive.
type Service struct {
	index     Index
	archive   Archive
	templates Templates
	cores     Cores
}

// New creates a search service.
func New(index Index, archive Archive, templates Templates, cores Cores) *Service {
	return &Service{index: index, archive: archive, templates: templates, cores: cores}
}

// Search streams the indexed files matching req.
//
// With req.Latest the dedicated latest core is queried. Without one, the
// files core is queried and documents are reduced to the latest version of
// each dataset, which buffers the whole result. A pinned version disables
// latest filtering. The metadata record, when requested, reports the
// index match count before any reduction.
func (s *Service) Search(ctx context.Context, req request.Request) iter.Seq2[result.Item, error] {
	searchID := uuid.NewString()
	ctx, log := logger.With(ctx, logger.SearchID(searchID))

	core, resolve := s.coreFor(req.Latest())
	resolve = resolve && !req.VersionPinned()

	q := db.Translate(req.Constraints())
	if resolve {
		q = withResolverFields(q)
	}
	log.Debug("indexed search",
		logger.Core(core),
		zap.Bool("resolve_latest", resolve),
		zap.Strings("fq", q.Clauses()),
	)

	seq := s.index.Stream(ctx, core, q, req.Page(searchID))
	if !resolve {
		return seq
	}
	return latestDocuments(seq)
}

// Facets counts field values among the indexed files matching set.
func (s *Service) Facets(
	ctx context.Context, set constraint.Set, fields constraint.FieldList, latest bool,
) (result.Facets, error) {
	core, resolve := s.coreFor(latest)
	groupBy := ""
	if resolve && !set.Has(constraint.KeyVersion) {
		groupBy = fieldDataset
	}
	facets, err := s.index.Facets(ctx, core, set, fields, groupBy)
	if err != nil {
		return nil, fmt.Errorf("facets: %w", err)
	}
	return facets, nil
}

// FileSearch enumerates archive files of a template matching set. Latest
// filtering applies only to versioned templates and is skipped when the
// version is pinned.
func (s *Service) FileSearch(
	ctx context.Context, templateID string, set constraint.Set, latest bool,
) (iter.Seq2[drs.Candidate, error], error) {
	tmpl, err := s.templates.Get(templateID)
	if err != nil {
		return nil, err
	}

	seq, err := s.archive.Search(ctx, tmpl, set)
	if err != nil {
		return nil, fmt.Errorf("file search: %w", err)
	}

	if !latest || !tmpl.IsVersioned() || set.Has(tmpl.VersionPart()) {
		return seq, nil
	}
	return resolveLatest(seq, drs.CandidateIdentity), nil
}

// DecodePath binds path to a template.
func (s *Service) DecodePath(templateID, path string) (drs.Candidate, error) {
	tmpl, err := s.templates.Get(templateID)
	if err != nil {
		return drs.Candidate{}, err
	}
	return tmpl.Decode(path)
}

// EncodeCandidate builds the archive path for attribute values.
func (s *Service) EncodeCandidate(templateID string, parts map[string]string) (string, error) {
	tmpl, err := s.templates.Get(templateID)
	if err != nil {
		return "", err
	}
	return tmpl.Encode(parts)
}

// Templates lists the registered naming templates.
func (s *Service) Templates() []*drs.Template {
	return s.templates.Templates()
}

// coreFor picks the core for a search and reports whether latest-version
// resolution is still needed.
func (s *Service) coreFor(latest bool) (core string, resolve bool) {
	if !latest {
		return s.cores.Files, false
	}
	if s.cores.Latest != "" {
		return s.cores.Latest, false
	}
	return s.cores.Files, true
}

func withResolverFields(q db.Query) db.Query {
	fields := constraint.ParseFieldList(q.Params(db.ParamFields)...)
	if fields.IsEmpty() {
		fields = constraint.FieldList{result.PathField}
	}
	for _, f := range []string{fieldDataset, fieldVersion} {
		if !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}
	return q.With(db.ParamFields, strings.Join(fields, ","))
}
