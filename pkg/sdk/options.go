package databrowser

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	solrURL    string
	httpClient *http.Client

	latestCore string
	filesCore  string

	templates []Template
	archiveFS func(root string) fs.FS

	batchSize        int
	readinessTimeout time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithSolr sets the base URL of the Solr server, e.g. http://localhost:8983.
func WithSolr(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.solrURL = baseURL
	})
}

// WithHTTPClient sets the HTTP client used for Solr requests.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithCores names the Solr cores. latest holds only the newest version of
// each dataset; pass "" to use files alone and resolve versions client side.
// Defaults: "latest" and "files".
func WithCores(latest, files string) Option {
	return optionFunc(func(c *clientConfig) {
		c.latestCore = latest
		c.filesCore = files
	})
}

// WithTemplates replaces the builtin naming templates.
func WithTemplates(templates ...Template) Option {
	return optionFunc(func(c *clientConfig) {
		c.templates = append(c.templates[:0], templates...)
	})
}

// WithArchiveFS sets how template root directories are opened.
// Defaults to the host file system.
func WithArchiveFS(open func(root string) fs.FS) Option {
	return optionFunc(func(c *clientConfig) {
		c.archiveFS = open
	})
}

// WithBatchSize sets the default number of documents fetched per index page.
// Default: 10000.
func WithBatchSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.batchSize = n
	})
}

// WithReadinessTimeout bounds the initial wait for the index in New.
// Zero skips the check. Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
