package chi

import (
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/freva-org/databrowser/internal/domain"
	"github.com/freva-org/databrowser/internal/domain/constraint"
	"github.com/freva-org/databrowser/internal/domain/drs"
	"github.com/freva-org/databrowser/internal/domain/search/request"
	"github.com/freva-org/databrowser/internal/logger"
	healthuc "github.com/freva-org/databrowser/internal/usecase/health"
	searchuc "github.com/freva-org/databrowser/internal/usecase/search"
)

// Control query parameters; every other parameter is a search constraint.
const (
	paramLatest    = "latest"
	paramMetadata  = "metadata"
	paramBatchSize = "batch_size"
	paramFacet     = "facet"
	paramPath      = "path"
)

const (
	ndjsonContentType = "application/x-ndjson"
	flushEvery        = 500
	maxBodyBytes      = 1 << 20
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the databrowser HTTP API.
type Server struct {
	search        *searchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	batchSize     int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. batchSize is the default page size
// for indexed searches.
func NewServer(search *searchuc.Service, health *healthuc.Service, batchSize int, logger *zap.Logger) *Server {
	s := &Server{
		search:    search,
		health:    health,
		logger:    logger,
		batchSize: batchSize,
	}
	s.errorHandlers = []errorHandler{
		unknownConstraintHandler,
		templateMismatchHandler,
		sentinelHandler(domain.ErrTemplateNotFound, http.StatusNotFound, CodeTemplateNotFound),
		sentinelHandler(domain.ErrInvalidConstraint, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrUnsupportedOperation, http.StatusBadRequest, CodeUnsupportedOperation),
		sentinelHandler(domain.ErrBackendCommunication, http.StatusBadGateway, CodeBackendUnavailable),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", s.SearchFiles)
		r.Get("/facets", s.Facets)
		r.Get("/templates", s.ListTemplates)
		r.Get("/templates/{template}/search", s.FileSearch)
		r.Get("/templates/{template}/decode", s.DecodePath)
		r.Post("/templates/{template}/encode", s.EncodeCandidate)
	})
}

// SearchFiles handles GET /api/v1/search.
func (s *Server) SearchFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	latest, err := boolParam(q, paramLatest, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	withMeta, err := boolParam(q, paramMetadata, false)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	batch := s.batchSize
	if raw := q.Get(paramBatchSize); raw != "" {
		if batch, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "batch_size must be an integer")
			return
		}
	}

	req, err := request.New(constraintsFrom(q, paramLatest, paramMetadata, paramBatchSize), latest, withMeta, batch)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	streamNDJSON(s, w, r, s.search.Search(r.Context(), req))
}

// Facets handles GET /api/v1/facets.
func (s *Server) Facets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	latest, err := boolParam(q, paramLatest, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	fields := constraint.ParseFieldList(q[paramFacet]...)

	facets, err := s.search.Facets(r.Context(), constraintsFrom(q, paramLatest, paramFacet), fields, latest)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, facets)
}

// FileSearch handles GET /api/v1/templates/{template}/search.
func (s *Server) FileSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	latest, err := boolParam(q, paramLatest, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	seq, err := s.search.FileSearch(r.Context(), chi.URLParam(r, "template"), constraintsFrom(q, paramLatest), latest)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	streamNDJSON(s, w, r, seq)
}

// DecodePath handles GET /api/v1/templates/{template}/decode.
func (s *Server) DecodePath(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get(paramPath)
	if p == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "path is required")
		return
	}
	c, err := s.search.DecodePath(chi.URLParam(r, "template"), p)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// EncodeRequest is the body of POST /api/v1/templates/{template}/encode.
type EncodeRequest struct {
	Parts map[string]string `json:"parts"`
}

// EncodeResponse carries an encoded archive path.
type EncodeResponse struct {
	Path string `json:"path"`
}

// EncodeCandidate handles POST /api/v1/templates/{template}/encode.
func (s *Server) EncodeCandidate(w http.ResponseWriter, r *http.Request) {
	var req EncodeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Parts) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "parts are required")
		return
	}

	p, err := s.search.EncodeCandidate(chi.URLParam(r, "template"), req.Parts)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EncodeResponse{Path: p})
}

// TemplateInfo describes a registered naming template.
type TemplateInfo struct {
	ID        string            `json:"id"`
	RootDir   string            `json:"root_dir"`
	PathParts []string          `json:"parts_dir"`
	Versioned bool              `json:"versioned"`
	Defaults  map[string]string `json:"defaults,omitempty"`
}

// ListTemplates handles GET /api/v1/templates.
func (s *Server) ListTemplates(w http.ResponseWriter, _ *http.Request) {
	tmpls := s.search.Templates()
	out := make([]TemplateInfo, len(tmpls))
	for i, t := range tmpls {
		out[i] = templateToInfo(t)
	}
	writeJSON(w, http.StatusOK, out)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// streamNDJSON writes seq as one JSON value per line. An error before the
// first value becomes a regular error response; a later one is written as
// a final {"error": ...} line since the status is already sent.
func streamNDJSON[T any](s *Server, w http.ResponseWriter, r *http.Request, seq iter.Seq2[T, error]) {
	log := logger.FromContext(r.Context())
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	started := false
	start := func() {
		w.Header().Set("Content-Type", ndjsonContentType)
		w.WriteHeader(http.StatusOK)
		started = true
	}

	n := 0
	for v, err := range seq {
		if err != nil {
			if !started {
				s.handleDomainError(w, err)
				return
			}
			log.Error("stream aborted", zap.Int("written", n), zap.Error(err))
			_ = enc.Encode(map[string]string{"error": safeDomainMessage(err)})
			return
		}
		if !started {
			start()
		}
		if err := enc.Encode(v); err != nil {
			log.Debug("client went away", zap.Int("written", n), zap.Error(err))
			return
		}
		n++
		if flusher != nil && n%flushEvery == 0 {
			flusher.Flush()
		}
	}
	if !started {
		start()
	}
}

// constraintsFrom builds a constraint set from the query, skipping control parameters.
func constraintsFrom(q url.Values, control ...string) constraint.Set {
	vals := make(url.Values, len(q))
	for k, vs := range q {
		vals[k] = vs
	}
	for _, c := range control {
		vals.Del(c)
	}
	return constraint.FromValues(vals)
}

func boolParam(q url.Values, name string, def bool) (bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New(name + " must be a boolean")
	}
	return v, nil
}

func templateToInfo(t *drs.Template) TemplateInfo {
	return TemplateInfo{
		ID:        t.ID(),
		RootDir:   t.RootDir(),
		PathParts: t.PathParts(),
		Versioned: t.IsVersioned(),
		Defaults:  t.Defaults(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrTemplateMismatch,
		domain.ErrUnknownConstraint,
		domain.ErrUnsupportedOperation,
		domain.ErrTemplateNotFound,
		domain.ErrInvalidConstraint,
		domain.ErrBackendCommunication,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// unknownConstraintHandler reports the offending keys and the accepted ones.
func unknownConstraintHandler(w http.ResponseWriter, err error, _ string) bool {
	var uce *domain.UnknownConstraintError
	if !errors.As(err, &uce) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"code":     CodeUnknownConstraint,
		"message":  uce.Error(),
		"unknown":  uce.Keys,
		"accepted": uce.Valid,
	})
	return true
}

// templateMismatchHandler includes the mismatch reason; the path came from the caller.
func templateMismatchHandler(w http.ResponseWriter, err error, _ string) bool {
	var tme *drs.TemplateMismatchError
	if !errors.As(err, &tme) {
		return false
	}
	writeError(w, http.StatusUnprocessableEntity, CodeTemplateMismatch, tme.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
