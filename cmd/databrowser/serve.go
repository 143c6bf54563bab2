package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/freva-org/databrowser/internal/config"
	"github.com/freva-org/databrowser/internal/db/solr"
	logpkg "github.com/freva-org/databrowser/internal/logger"
	"github.com/freva-org/databrowser/internal/metrics"
	"github.com/freva-org/databrowser/internal/repository/archive"
	searchrepo "github.com/freva-org/databrowser/internal/repository/search"
	chiTransport "github.com/freva-org/databrowser/internal/transport/chi"
	healthuc "github.com/freva-org/databrowser/internal/usecase/health"
	searchuc "github.com/freva-org/databrowser/internal/usecase/search"
	"github.com/freva-org/databrowser/internal/version"
)

// compressMinSize is the smallest response gzip is applied to.
const compressMinSize = 1024

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(a.env)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logpkg.NewLogger(a.env, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			return serve(cmd.Context(), a.env, cfg, logger)
		},
	}
}

func serve(ctx context.Context, env string, cfg config.Config, logger *zap.Logger) error {
	logger.Info("Starting databrowser API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("solr_host", cfg.Solr.Host),
		zap.Int("solr_port", cfg.Solr.Port),
		zap.String("files_core", cfg.Solr.FilesCore),
		zap.String("latest_core", cfg.Solr.LatestCore),
	)

	store, err := solr.NewStore(solr.Config{
		Scheme:  cfg.Solr.Scheme,
		Host:    cfg.Solr.Host,
		Port:    cfg.Solr.Port,
		Timeout: time.Duration(cfg.Solr.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create Solr client: %w", err)
	}

	// Wait for the index to be ready
	if err := store.WaitForReady(ctx, time.Duration(cfg.Solr.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("solr not ready: %w", err)
	}
	logger.Info("Connected to Solr")

	// Register domain metrics explicitly (no init())
	metrics.RegisterDomainMetrics()

	registry, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	roots := make(map[string]string)
	for _, t := range registry.Templates() {
		roots[t.ID()] = t.RootDir()
	}
	logger.Info("Templates loaded", zap.Strings("ids", registry.IDs()))

	enumerator := archive.New(nil)
	searchSvc := searchuc.New(searchrepo.New(store), enumerator, registry, searchuc.Cores{
		Latest: cfg.Solr.LatestCore,
		Files:  cfg.Solr.FilesCore,
	})
	healthSvc := healthuc.New(store, enumerator, roots)
	server := chiTransport.NewServer(searchSvc, healthSvc, cfg.Solr.BatchSize, logger)

	handler, err := newRouter(server, cfg.Auth.APIKeys, logger)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown once ctx is cancelled by a signal
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// newRouter assembles the middleware chain around the API routes.
func newRouter(server *chiTransport.Server, apiKeys []string, logger *zap.Logger) (http.Handler, error) {
	gzip, err := compressMiddleware()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())
	r.Use(gzip)
	server.Register(r)
	return r, nil
}

// compressMiddleware gzips responses for clients that accept it. Flushed
// NDJSON chunks are passed through as they are written.
func compressMiddleware() (func(http.Handler) http.Handler, error) {
	wrap, err := gzhttp.NewWrapper(gzhttp.MinSize(compressMinSize))
	if err != nil {
		return nil, fmt.Errorf("gzip wrapper: %w", err)
	}
	return func(next http.Handler) http.Handler { return wrap(next) }, nil
}
