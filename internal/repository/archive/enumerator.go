// Package archive enumerates archive files that fit a naming template.
package archive

import (
	"context"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/freva-org/databrowser/internal/domain"
	"github.com/freva-org/databrowser/internal/domain/constraint"
	"github.com/freva-org/databrowser/internal/domain/drs"
	"github.com/freva-org/databrowser/internal/logger"
	"github.com/freva-org/databrowser/internal/metrics"
)

const wildcard = "*"

// Opener returns the file system rooted at a template root directory.
type Opener func(root string) fs.FS

// DirFS opens the host file system.
func DirFS(root string) fs.FS { return os.DirFS(root) }

// Enumerator walks archive trees. It holds no per-search state.
type Enumerator struct {
	open Opener
}

// New creates an enumerator. A nil opener uses the host file system.
func New(open Opener) *Enumerator {
	if open == nil {
		open = DirFS
	}
	return &Enumerator{open: open}
}

// Plan resolves set against tmpl into one list of glob alternatives per path
// segment. Template defaults apply to segments the caller left open.
// Constraints naming no path segment fail with *domain.UnknownConstraintError.
func Plan(tmpl *drs.Template, set constraint.Set) ([][]string, error) {
	rest := set.WithDefaults(tmpl.Defaults())
	parts := tmpl.PathParts()
	levels := make([][]string, len(parts))

	for i, name := range parts {
		v, ok := rest.Pop(name)
		if !ok {
			levels[i] = []string{wildcard}
			continue
		}
		alts := v.Values()
		for _, a := range alts {
			if err := validSegment(a); err != nil {
				return nil, fmt.Errorf("%w: %s=%q: %w", domain.ErrInvalidConstraint, name, a, err)
			}
		}
		slices.Sort(alts)
		levels[i] = slices.Compact(alts)
	}

	if len(rest) > 0 {
		return nil, &domain.UnknownConstraintError{Template: tmpl.ID(), Keys: rest.Keys(), Valid: parts}
	}
	return levels, nil
}

func validSegment(s string) error {
	if s == "" || strings.Contains(s, "/") || s == "." || s == ".." {
		return fmt.Errorf("not a single path segment")
	}
	_, err := path.Match(s, "")
	return err
}

// Search returns the decoded candidates below tmpl's root matching set.
//
// The constraint set is checked before the file system is touched. The
// tree is walked lazily one directory level at a time in lexical order;
// iteration stops as soon as the consumer stops pulling. Unreadable
// directories and files that fail to decode are skipped.
func (e *Enumerator) Search(
	ctx context.Context, tmpl *drs.Template, set constraint.Set,
) (iter.Seq2[drs.Candidate, error], error) {
	levels, err := Plan(tmpl, set)
	if err != nil {
		return nil, err
	}

	return func(yield func(drs.Candidate, error) bool) {
		w := &walker{
			ctx:    ctx,
			fsys:   e.open(tmpl.RootDir()),
			tmpl:   tmpl,
			levels: levels,
			yield:  yield,
			log:    logger.FromContext(ctx).With(logger.Template(tmpl.ID())),
		}
		w.walk(".", 0)
	}, nil
}

type walker struct {
	ctx    context.Context
	fsys   fs.FS
	tmpl   *drs.Template
	levels [][]string
	yield  func(drs.Candidate, error) bool
	log    *zap.Logger
}

// walk visits dir at depth and reports whether the walk should continue.
func (w *walker) walk(dir string, depth int) bool {
	if err := w.ctx.Err(); err != nil {
		w.yield(drs.Candidate{}, err)
		return false
	}

	leaf := depth == len(w.levels)-1
	names, err := w.match(dir, w.levels[depth], leaf)
	if err != nil {
		metrics.ArchiveDirsSkippedTotal.WithLabelValues(w.tmpl.ID()).Inc()
		w.log.Debug("skipping unreadable directory", zap.String("dir", dir), zap.Error(err))
		return true
	}

	for _, name := range names {
		rel := path.Join(dir, name)
		if !leaf {
			if !w.walk(rel, depth+1) {
				return false
			}
			continue
		}

		full := w.tmpl.RootDir() + "/" + rel
		c, err := w.tmpl.Decode(full)
		if err != nil {
			metrics.ArchiveCandidatesTotal.WithLabelValues(w.tmpl.ID(), "skipped").Inc()
			w.log.Warn("skipping file not matching template", zap.String("path", full), zap.Error(err))
			continue
		}
		metrics.ArchiveCandidatesTotal.WithLabelValues(w.tmpl.ID(), "decoded").Inc()
		if !w.yield(c, nil) {
			return false
		}
	}
	return true
}

// match lists the entries of dir matching any of alts, in lexical order.
// Intermediate levels only match directories, the leaf level only files.
func (w *walker) match(dir string, alts []string, leaf bool) ([]string, error) {
	if !hasMeta(alts) {
		var out []string
		for _, a := range alts {
			info, err := fs.Stat(w.fsys, path.Join(dir, a))
			if err != nil {
				continue
			}
			if info.IsDir() != leaf {
				out = append(out, a)
			}
		}
		return out, nil
	}

	entries, err := fs.ReadDir(w.fsys, dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !matchAny(alts, name) {
			continue
		}
		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			info, err := fs.Stat(w.fsys, path.Join(dir, name))
			if err != nil {
				continue
			}
			isDir = info.IsDir()
		}
		if isDir != leaf {
			out = append(out, name)
		}
	}
	return out, nil
}

func hasMeta(alts []string) bool {
	for _, a := range alts {
		if strings.ContainsAny(a, `*?[\`) {
			return true
		}
	}
	return false
}

// matchAny reports whether name matches one of the patterns. Like shell
// globbing, hidden names only match patterns that start with a dot.
func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(p, ".") {
			continue
		}
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}

// CheckRoot reports whether root can be opened as a directory.
func (e *Enumerator) CheckRoot(ctx context.Context, root string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := fs.Stat(e.open(root), ".")
	if err != nil {
		return fmt.Errorf("archive root %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("archive root %s: not a directory", root)
	}
	return nil
}
