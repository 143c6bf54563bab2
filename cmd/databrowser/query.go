package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	databrowser "github.com/freva-org/databrowser/pkg/sdk"
)

const completionTimeout = 5 * time.Second

// searchFlags are shared by the search, facets and files commands.
type searchFlags struct {
	allVersions bool
	json        bool
	limit       int
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.allVersions, "all-versions", false, "include every version, not only the latest")
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON lines instead of plain text")
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		flags     searchFlags
		metadata  bool
		batchSize int
	)
	cmd := &cobra.Command{
		Use:   "search [key=value ...]",
		Short: "Search the index for files",
		Example: `  databrowser search project=cmip5 variable=tas
  databrowser search model=mpi-esm-lr --all-versions --limit 10`,
		ValidArgsFunction: a.completeConstraints,
		RunE: func(cmd *cobra.Command, args []string) error {
			cons, err := parseConstraints(args)
			if err != nil {
				return err
			}
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}

			opts := databrowser.SearchOptions{
				AllVersions: flags.allVersions,
				Metadata:    metadata,
				BatchSize:   batchSize,
			}
			n := 0
			for res, err := range client.Search(cmd.Context(), cons, opts) {
				if err != nil {
					return err
				}
				if res.Metadata != nil {
					if flags.json {
						if err := writeJSONLine(a.out, res.Metadata); err != nil {
							return err
						}
					} else {
						fmt.Fprintf(a.errOut, "# %d files found\n", res.Metadata.NumFound)
					}
					continue
				}
				if flags.json {
					err = writeJSONLine(a.out, res.Fields)
				} else {
					_, err = fmt.Fprintln(a.out, res.Path)
				}
				if err != nil {
					return err
				}
				if n++; flags.limit > 0 && n >= flags.limit {
					break
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "stop after this many files (0: all)")
	cmd.Flags().BoolVar(&metadata, "count", false, "report the number of matches first")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "documents per index request (0: configured default)")
	return cmd
}

func newFacetsCmd(a *app) *cobra.Command {
	var (
		flags  searchFlags
		fields []string
	)
	cmd := &cobra.Command{
		Use:   "facets [key=value ...]",
		Short: "Count attribute values among matching files",
		Example: `  databrowser facets --facet model --facet experiment variable=tas
  databrowser facets project=cmip5`,
		ValidArgsFunction: a.completeConstraints,
		RunE: func(cmd *cobra.Command, args []string) error {
			cons, err := parseConstraints(args)
			if err != nil {
				return err
			}
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			facets, err := client.Facets(cmd.Context(), cons, fields, databrowser.SearchOptions{AllVersions: flags.allVersions})
			if err != nil {
				return err
			}
			if flags.json {
				return writeJSONLine(a.out, facets)
			}
			return printFacets(a.out, facets)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringSliceVar(&fields, "facet", nil, "attributes to count (repeatable or comma separated; default: all)")
	return cmd
}

func newFilesCmd(a *app) *cobra.Command {
	var (
		flags    searchFlags
		template string
	)
	cmd := &cobra.Command{
		Use:   "files [key=value ...]",
		Short: "Walk an archive for files matching a naming template",
		Example: `  databrowser files --template 0 model=mpi-esm-lr variable=tas
  databrowser files --template 1 experiment='decs4e19*'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cons, err := parseConstraints(args)
			if err != nil {
				return err
			}
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			seq, err := client.FileSearch(cmd.Context(), template, cons, databrowser.SearchOptions{AllVersions: flags.allVersions})
			if err != nil {
				return err
			}
			n := 0
			for c, err := range seq {
				if err != nil {
					return err
				}
				if flags.json {
					err = writeJSONLine(a.out, c)
				} else {
					_, err = fmt.Fprintln(a.out, c.Path)
				}
				if err != nil {
					return err
				}
				if n++; flags.limit > 0 && n >= flags.limit {
					break
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "stop after this many files (0: all)")
	cmd.Flags().StringVar(&template, "template", "0", "naming template id")
	return cmd
}

func newDecodeCmd(a *app) *cobra.Command {
	var (
		template string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "decode <path>",
		Short: "Show the attributes a naming template reads from a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			c, err := client.DecodePath(template, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSONLine(a.out, c)
			}
			fmt.Fprintf(a.out, "template: %s\ndataset: %s\n", c.Template, c.Dataset)
			if c.Version != "" {
				fmt.Fprintf(a.out, "version: %s\n", c.Version)
			}
			for _, k := range slices.Sorted(maps.Keys(c.Parts)) {
				fmt.Fprintf(a.out, "  %s: %s\n", k, c.Parts[k])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&template, "template", "0", "naming template id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newTemplatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the configured naming templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range client.Templates() {
				versioned := ""
				if t.Versioned {
					versioned = " (versioned)"
				}
				fmt.Fprintf(a.out, "%s\t%s%s\n\t%s\n", t.ID, t.RootDir, versioned, strings.Join(t.PathParts, "/"))
			}
			return nil
		},
	}
}

// completeConstraints offers facet names, or values of a facet once its
// key and "=" are typed, narrowed by the constraints already given.
func (a *app) completeConstraints(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	cons, err := parseConstraints(args)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	client, err := a.client(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	key, prefix, hasValue := strings.Cut(toComplete, "=")
	var fields []string
	if hasValue {
		fields = []string{key}
	}
	facets, err := client.Facets(ctx, cons, fields, databrowser.SearchOptions{})
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var out []string
	if hasValue {
		for _, v := range facets[key] {
			if strings.HasPrefix(v.Value, prefix) {
				out = append(out, key+"="+v.Value)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
	for field, values := range facets {
		if len(values) > 0 && strings.HasPrefix(field, toComplete) {
			out = append(out, field+"=")
		}
	}
	slices.Sort(out)
	return out, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
}

func printFacets(w io.Writer, facets databrowser.Facets) error {
	for _, field := range slices.Sorted(maps.Keys(facets)) {
		values := make([]string, len(facets[field]))
		for i, v := range facets[field] {
			values[i] = fmt.Sprintf("%s (%d)", v.Value, v.Count)
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", field, strings.Join(values, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func writeJSONLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
