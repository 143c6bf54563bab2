package databrowser

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"time"

	"github.com/freva-org/databrowser/internal/db/solr"
	"github.com/freva-org/databrowser/internal/domain/constraint"
	"github.com/freva-org/databrowser/internal/domain/drs"
	"github.com/freva-org/databrowser/internal/domain/search/request"
	"github.com/freva-org/databrowser/internal/domain/search/result"
	"github.com/freva-org/databrowser/internal/repository/archive"
	searchrepo "github.com/freva-org/databrowser/internal/repository/search"
	healthuc "github.com/freva-org/databrowser/internal/usecase/health"
	searchuc "github.com/freva-org/databrowser/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultLatestCore       = "latest"
	defaultFilesCore        = "files"
)

// Internal interfaces so services can be swapped in tests.
type searchUseCase interface {
	Search(ctx context.Context, req request.Request) iter.Seq2[result.Item, error]
	Facets(ctx context.Context, set constraint.Set, fields constraint.FieldList, latest bool) (result.Facets, error)
	FileSearch(ctx context.Context, templateID string, set constraint.Set, latest bool) (iter.Seq2[drs.Candidate, error], error)
	DecodePath(templateID, path string) (drs.Candidate, error)
	EncodeCandidate(templateID string, parts map[string]string) (string, error)
	Templates() []*drs.Template
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Client is the databrowser SDK entry point. It is safe for concurrent use.
type Client struct {
	pinger    pinger
	searchSvc searchUseCase
	healthSvc healthUseCase
	batchSize int
	obs       *observer
}

// New creates a Client and waits for the Solr index to answer.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		latestCore:       defaultLatestCore,
		filesCore:        defaultFilesCore,
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.solrURL == "" {
		return nil, errors.New("databrowser: Solr URL required (use WithSolr)")
	}
	if cfg.filesCore == "" {
		return nil, errors.New("databrowser: files core name required")
	}
	if cfg.batchSize < 0 || cfg.batchSize > request.MaxBatchSize {
		return nil, fmt.Errorf("databrowser: batch size must be between 0 and %d", request.MaxBatchSize)
	}

	store, err := solr.NewStoreFromURL(cfg.solrURL, cfg.httpClient)
	if err != nil {
		return nil, fmt.Errorf("databrowser: %w", err)
	}

	if cfg.readinessTimeout > 0 {
		if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
			return nil, fmt.Errorf("databrowser: index not ready: %w", err)
		}
	}

	registry, err := buildRegistry(cfg.templates)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	enumerator := archive.New(cfg.archiveFS)
	roots := make(map[string]string)
	for _, t := range registry.Templates() {
		roots[t.ID()] = t.RootDir()
	}

	return &Client{
		pinger: store,
		searchSvc: searchuc.New(searchrepo.New(store), enumerator, registry, searchuc.Cores{
			Latest: cfg.latestCore,
			Files:  cfg.filesCore,
		}),
		healthSvc: healthuc.New(store, enumerator, roots),
		batchSize: cfg.batchSize,
		obs:       obs,
	}, nil
}

func buildRegistry(templates []Template) (*drs.Registry, error) {
	if len(templates) == 0 {
		return drs.DefaultRegistry(), nil
	}
	tmpls := make([]*drs.Template, 0, len(templates))
	for _, t := range templates {
		tmpl, err := drs.NewTemplate(drs.Definition(t))
		if err != nil {
			return nil, fmt.Errorf("databrowser: template %q: %w", t.ID, err)
		}
		tmpls = append(tmpls, tmpl)
	}
	r, err := drs.NewRegistry(tmpls...)
	if err != nil {
		return nil, fmt.Errorf("databrowser: %w", err)
	}
	return r, nil
}

// Ping checks index connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search streams indexed files matching cons. Pages are fetched as the
// caller iterates; breaking out of the loop stops further requests.
func (c *Client) Search(ctx context.Context, cons Constraints, opts SearchOptions) iter.Seq2[Result, error] {
	batch := opts.BatchSize
	if batch == 0 {
		batch = c.batchSize
	}
	req, err := request.New(toSet(cons), !opts.AllVersions, opts.Metadata, batch)
	if err != nil {
		c.obs.observe("search", time.Now(), err)
		return func(yield func(Result, error) bool) { yield(Result{}, err) }
	}

	items := c.searchSvc.Search(ctx, req)
	return observed(c.obs, "search", func(yield func(Result, error) bool) {
		for it, err := range items {
			if err != nil {
				yield(Result{}, err)
				return
			}
			if !yield(resultFromItem(it), nil) {
				return
			}
		}
	})
}

// Facets counts attribute values among the indexed files matching cons.
// With no fields every facetable attribute is counted.
func (c *Client) Facets(ctx context.Context, cons Constraints, fields []string, opts SearchOptions) (_ Facets, err error) {
	start := time.Now()
	defer func() { c.obs.observe("facets", start, err) }()

	res, err := c.searchSvc.Facets(ctx, toSet(cons), constraint.ParseFieldList(fields...), !opts.AllVersions)
	if err != nil {
		return nil, fmt.Errorf("facets: %w", err)
	}
	out := make(Facets, len(res))
	for field, values := range res {
		fv := make([]FacetValue, len(values))
		for i, v := range values {
			fv[i] = FacetValue{Value: v.Value, Count: v.Count}
		}
		out[field] = fv
	}
	return out, nil
}

// FileSearch streams archive files of a template matching cons. Constraint
// keys must name attributes of the template; the error is returned before
// any directory is read.
func (c *Client) FileSearch(
	ctx context.Context, templateID string, cons Constraints, opts SearchOptions,
) (_ iter.Seq2[Candidate, error], err error) {
	seq, err := c.searchSvc.FileSearch(ctx, templateID, toSet(cons), !opts.AllVersions)
	if err != nil {
		c.obs.observe("file_search", time.Now(), err)
		return nil, fmt.Errorf("file search: %w", err)
	}
	return observed(c.obs, "file_search", func(yield func(Candidate, error) bool) {
		for cand, err := range seq {
			if err != nil {
				yield(Candidate{}, err)
				return
			}
			if !yield(candidateFromDomain(cand), nil) {
				return
			}
		}
	}), nil
}

// DecodePath binds an archive path to a template.
func (c *Client) DecodePath(templateID, path string) (_ Candidate, err error) {
	start := time.Now()
	defer func() { c.obs.observe("decode_path", start, err) }()

	cand, err := c.searchSvc.DecodePath(templateID, path)
	if err != nil {
		return Candidate{}, fmt.Errorf("decode path: %w", err)
	}
	return candidateFromDomain(cand), nil
}

// EncodeCandidate builds the archive path for attribute values.
func (c *Client) EncodeCandidate(templateID string, parts map[string]string) (_ string, err error) {
	start := time.Now()
	defer func() { c.obs.observe("encode_candidate", start, err) }()

	p, err := c.searchSvc.EncodeCandidate(templateID, parts)
	if err != nil {
		return "", fmt.Errorf("encode candidate: %w", err)
	}
	return p, nil
}

// Templates lists the registered naming templates.
func (c *Client) Templates() []TemplateInfo {
	tmpls := c.searchSvc.Templates()
	out := make([]TemplateInfo, len(tmpls))
	for i, t := range tmpls {
		out[i] = TemplateInfo{
			ID:        t.ID(),
			RootDir:   t.RootDir(),
			PathParts: t.PathParts(),
			Versioned: t.IsVersioned(),
			Defaults:  t.Defaults(),
		}
	}
	return out
}

func toSet(cons Constraints) constraint.Set {
	return constraint.FromValues(url.Values(cons))
}

func resultFromItem(it result.Item) Result {
	if it.IsMetadata() {
		return Result{Metadata: &Metadata{
			NumFound: it.Meta.NumFound,
			Start:    it.Meta.Start,
			SearchID: it.Meta.SearchID,
		}}
	}
	return Result{Path: it.Doc.Path(), Fields: it.Doc.Fields()}
}

func candidateFromDomain(c drs.Candidate) Candidate {
	out := Candidate{Path: c.String(), Parts: c.Parts()}
	if t := c.Template(); t != nil {
		out.Template = t.ID()
		out.Dataset, _ = c.DatasetKey(false)
	}
	if v, ok := c.Version(); ok {
		out.Version = v.String()
	}
	return out
}
