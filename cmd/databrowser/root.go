package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/freva-org/databrowser/internal/config"
	"github.com/freva-org/databrowser/internal/version"
	databrowser "github.com/freva-org/databrowser/pkg/sdk"
)

// app carries what the commands share. Tests replace loadConfig.
type app struct {
	out    io.Writer
	errOut io.Writer

	env   string
	debug bool

	loadConfig func(env string) (config.Config, error)
}

func newApp() *app {
	return &app{
		out:        os.Stdout,
		errOut:     os.Stderr,
		loadConfig: config.Load,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "databrowser",
		Short: "Find climate model output files",
		Long: `databrowser finds model output files by their attributes, either through
a Solr index or by walking an archive laid out by a naming template.

Constraints are given as key=value arguments; repeat a key to accept
several values:

  databrowser search project=cmip5 variable=tas variable=pr
  databrowser facets --facet model experiment=historical
  databrowser files --template 0 model=mpi-esm-lr`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()
		},
	}
	root.SetVersionTemplate(version.String() + "\n")
	root.PersistentFlags().StringVar(&a.env, "env", config.GetEnv(), "configuration environment (config/<env>.yaml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "log SDK operations to stderr")

	root.AddCommand(
		newServeCmd(a),
		newSearchCmd(a),
		newFacetsCmd(a),
		newFilesCmd(a),
		newDecodeCmd(a),
		newTemplatesCmd(a),
	)
	return root
}

// client builds an SDK client from the environment's configuration.
func (a *app) client(ctx context.Context) (*databrowser.Client, error) {
	cfg, err := a.loadConfig(a.env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	templates := make([]databrowser.Template, len(cfg.Templates))
	for i, tc := range cfg.Templates {
		templates[i] = databrowser.Template(tc.Definition())
	}

	opts := []databrowser.Option{
		databrowser.WithSolr(fmt.Sprintf("%s://%s:%d", cfg.Solr.Scheme, cfg.Solr.Host, cfg.Solr.Port)),
		databrowser.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Solr.TimeoutSec) * time.Second}),
		databrowser.WithCores(cfg.Solr.LatestCore, cfg.Solr.FilesCore),
		databrowser.WithBatchSize(cfg.Solr.BatchSize),
		databrowser.WithReadinessTimeout(time.Duration(cfg.Solr.ReadinessTimeout) * time.Second),
	}
	if len(templates) > 0 {
		opts = append(opts, databrowser.WithTemplates(templates...))
	}
	if a.debug {
		opts = append(opts, databrowser.WithLogger(
			slog.New(slog.NewTextHandler(a.errOut, &slog.HandlerOptions{Level: slog.LevelDebug})),
		))
	}
	return databrowser.New(ctx, opts...)
}

// parseConstraints turns key=value arguments into constraints. A repeated
// key accumulates values.
func parseConstraints(args []string) (databrowser.Constraints, error) {
	out := make(databrowser.Constraints, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid constraint %q: expected key=value", arg)
		}
		out[key] = append(out[key], value)
	}
	return out, nil
}
