// Package solr implements db.Store over the Apache Solr HTTP API.
package solr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/freva-org/databrowser/internal/db"
	"github.com/freva-org/databrowser/internal/domain"
	"github.com/freva-org/databrowser/internal/metrics"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const maxErrorBody = 4 << 10

// Config holds connection parameters for a Solr server.
type Config struct {
	Scheme     string // http (default) or https
	Host       string
	Port       int
	Timeout    time.Duration
	HTTPClient *http.Client // optional, overrides Timeout
	Logger     *zap.Logger
}

// Store implements db.Store via plain HTTP requests.
type Store struct {
	base   *url.URL
	client *http.Client
	logger *zap.Logger
}

// NewStore creates a Solr store. No request is made until first use.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "http"
	}
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", scheme)
	}
	host := cfg.Host
	if cfg.Port > 0 {
		host = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		base:   &url.URL{Scheme: scheme, Host: host, Path: "/solr"},
		client: client,
		logger: logger,
	}, nil
}

// NewStoreFromURL creates a store for a base URL such as http://localhost:8983.
func NewStoreFromURL(raw string, client *http.Client) (*Store, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse solr url: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/solr"
	return &Store{base: u, client: client, logger: zap.NewNop()}, nil
}

// Ping checks that the server answers its system info handler.
func (s *Store) Ping(ctx context.Context) error {
	var out map[string]any
	if err := s.getJSON(ctx, db.OpPing, "admin/info/system", url.Values{}, &out); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the server responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for index: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Select runs q against core's select handler.
func (s *Store) Select(ctx context.Context, core string, q db.Query) (*db.SelectResponse, error) {
	vals, err := url.ParseQuery(q.Encode())
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	var resp db.SelectResponse
	if err := s.getJSON(ctx, db.OpSelect, core+"/select", vals, &resp); err != nil {
		return nil, err
	}
	if _, err := resp.Body(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return &resp, nil
}

// Fields lists every field name known to core's schema, sorted.
func (s *Store) Fields(ctx context.Context, core string) ([]string, error) {
	var resp struct {
		Fields map[string]json.RawMessage `json:"fields"`
	}
	if err := s.getJSON(ctx, db.OpFields, core+"/admin/luke", url.Values{"numTerms": {"0"}}, &resp); err != nil {
		return nil, err
	}
	if resp.Fields == nil {
		return nil, &db.Error{Op: db.OpFields, Err: fmt.Errorf("%w: %w: no fields in schema response",
			domain.ErrBackendCommunication, db.ErrMalformedResponse)}
	}
	names := make([]string, 0, len(resp.Fields))
	for name := range resp.Fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func (s *Store) getJSON(ctx context.Context, op, handler string, vals url.Values, out any) (err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.IndexRequestsTotal.WithLabelValues(op, status).Inc()
		metrics.IndexRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	vals.Set(db.ParamResponseWriter, "json")
	u := s.base.JoinPath(handler)
	u.RawQuery = vals.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return &db.Error{Op: op, Err: err}
	}
	s.logger.Debug("index request", zap.String("op", op), zap.String("url", u.String()))

	resp, err := s.client.Do(req)
	if err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %w", domain.ErrBackendCommunication, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &db.Error{Op: op, Err: statusError(resp)}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("%w: %w: %w", domain.ErrBackendCommunication, db.ErrMalformedResponse, err)}
	}
	return nil
}

// statusError turns a non-200 answer into an error, keeping Solr's message when present.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	var parsed struct {
		Error struct {
			Msg string `json:"msg"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Msg != "" {
		msg = parsed.Error.Msg
	}

	err := fmt.Errorf("%w: status %d: %s", domain.ErrBackendCommunication, resp.StatusCode, msg)
	if resp.StatusCode == http.StatusNotFound {
		return errors.Join(err, db.ErrCoreNotFound)
	}
	return err
}
