// Package drs implements the data reference syntax: naming templates that map
// archive paths to structured attributes and back.
package drs

import (
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/freva-org/databrowser/internal/domain"
)

// Defaults applied when a Definition leaves them empty.
const (
	DefaultFileNameDelimiter = "_"
	DefaultFileSuffix        = ".nc"
	DefaultTimeDelimiter     = "-"
	DefaultVersionPart       = "version"
	DefaultNoTimeSentinel    = "r0i0p0"
)

// Definition is the declarative form of a Template, as loaded from configuration.
type Definition struct {
	ID                    string
	RootDir               string
	PathParts             []string
	DatasetParts          []string
	VersionedDatasetParts []string // empty: template is not versionable
	VersionPart           string
	FileNameParts         []string
	FileNameDelimiter     string
	FileSuffix            string
	TimeParts             []string // names the last file-name token splits into
	TimeDelimiter         string
	NoTimeSentinel        string
	Defaults              map[string]string
}

// Template is an immutable, validated naming convention.
type Template struct {
	def Definition
}

// NewTemplate validates a definition and fills in defaults.
func NewTemplate(def Definition) (*Template, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("template id is required")
	}
	root := strings.TrimRight(def.RootDir, "/")
	if !strings.HasPrefix(def.RootDir, "/") {
		return nil, fmt.Errorf("template %s: root_dir must be absolute, got %q", def.ID, def.RootDir)
	}
	if len(def.PathParts) == 0 {
		return nil, fmt.Errorf("template %s: path parts are required", def.ID)
	}
	if len(def.FileNameParts) == 0 {
		return nil, fmt.Errorf("template %s: file name parts are required", def.ID)
	}
	if len(def.DatasetParts) == 0 {
		return nil, fmt.Errorf("template %s: dataset parts are required", def.ID)
	}
	if dup := firstDuplicate(def.PathParts); dup != "" {
		return nil, fmt.Errorf("template %s: duplicate path part %q", def.ID, dup)
	}
	for _, k := range slices.Sorted(maps.Keys(def.Defaults)) {
		if !slices.Contains(def.PathParts, k) {
			return nil, fmt.Errorf("template %s: default %q is not a path part", def.ID, k)
		}
	}

	known := make(map[string]struct{}, len(def.PathParts)+len(def.FileNameParts)+len(def.TimeParts))
	for _, p := range def.PathParts {
		known[p] = struct{}{}
	}
	for _, p := range def.FileNameParts {
		known[p] = struct{}{}
	}
	for _, p := range def.TimeParts {
		known[p] = struct{}{}
	}
	for _, p := range slices.Concat(def.DatasetParts, def.VersionedDatasetParts) {
		if _, ok := known[p]; !ok {
			return nil, fmt.Errorf("template %s: dataset part %q is neither a path nor a file name part", def.ID, p)
		}
	}

	d := Definition{
		ID:                    def.ID,
		RootDir:               root,
		PathParts:             slices.Clone(def.PathParts),
		DatasetParts:          slices.Clone(def.DatasetParts),
		VersionedDatasetParts: slices.Clone(def.VersionedDatasetParts),
		VersionPart:           orDefault(def.VersionPart, DefaultVersionPart),
		FileNameParts:         slices.Clone(def.FileNameParts),
		FileNameDelimiter:     orDefault(def.FileNameDelimiter, DefaultFileNameDelimiter),
		FileSuffix:            def.FileSuffix,
		TimeParts:             slices.Clone(def.TimeParts),
		TimeDelimiter:         orDefault(def.TimeDelimiter, DefaultTimeDelimiter),
		NoTimeSentinel:        orDefault(def.NoTimeSentinel, DefaultNoTimeSentinel),
		Defaults:              maps.Clone(def.Defaults),
	}
	if d.Defaults == nil {
		d.Defaults = map[string]string{}
	}
	if len(d.VersionedDatasetParts) > 0 && !slices.Contains(d.VersionedDatasetParts, d.VersionPart) {
		return nil, fmt.Errorf("template %s: versioned dataset parts must include %q", def.ID, d.VersionPart)
	}
	return &Template{def: d}, nil
}

// MustTemplate calls NewTemplate and panics on error.
func MustTemplate(def Definition) *Template {
	t, err := NewTemplate(def)
	if err != nil {
		panic(err)
	}
	return t
}

// ID returns the template identifier.
func (t *Template) ID() string { return t.def.ID }

// RootDir returns the archive root without a trailing slash.
func (t *Template) RootDir() string { return t.def.RootDir }

// PathParts returns the ordered path segment names below the root.
func (t *Template) PathParts() []string { return slices.Clone(t.def.PathParts) }

// FileNameParts returns the ordered tokens of the file name.
func (t *Template) FileNameParts() []string { return slices.Clone(t.def.FileNameParts) }

// Defaults returns the default values for commonly omitted segments.
func (t *Template) Defaults() map[string]string { return maps.Clone(t.def.Defaults) }

// VersionPart returns the attribute holding the dataset version.
func (t *Template) VersionPart() string { return t.def.VersionPart }

// IsVersioned reports whether datasets under this template carry versions.
func (t *Template) IsVersioned() bool { return len(t.def.VersionedDatasetParts) > 0 }

// HasPathPart reports whether name is a path segment of this template.
func (t *Template) HasPathPart(name string) bool { return slices.Contains(t.def.PathParts, name) }

func (t *Template) fileNamePart() string { return t.def.PathParts[len(t.def.PathParts)-1] }

// Decode parses an archive path into a Candidate.
func (t *Template) Decode(p string) (Candidate, error) {
	p = path.Clean(p)
	rel, ok := strings.CutPrefix(p, t.def.RootDir+"/")
	if !ok {
		return Candidate{}, t.mismatch(p, "path is not below "+t.def.RootDir)
	}

	segments := strings.Split(rel, "/")
	if len(segments) != len(t.def.PathParts) {
		return Candidate{}, t.mismatch(p, fmt.Sprintf(
			"expected %d path elements but got %d", len(t.def.PathParts), len(segments)))
	}

	parts := make(map[string]string, len(segments)+len(t.def.FileNameParts)+len(t.def.TimeParts))
	for i, name := range t.def.PathParts {
		parts[name] = segments[i]
	}

	base := strings.TrimSuffix(segments[len(segments)-1], t.def.FileSuffix)
	tokens := strings.Split(base, t.def.FileNameDelimiter)
	want := len(t.def.FileNameParts)
	switch {
	case len(tokens) == want:
	case len(tokens) == want-1 && slices.Contains(tokens, t.def.NoTimeSentinel):
		// fixed-ensemble files carry no time range
	default:
		return Candidate{}, t.mismatch(p, fmt.Sprintf(
			"expected %d file name tokens but got %d", want, len(tokens)))
	}
	for i, tok := range tokens {
		parts[t.def.FileNameParts[i]] = tok
	}

	if len(t.def.TimeParts) > 0 && len(tokens) == want {
		span := strings.Split(tokens[want-1], t.def.TimeDelimiter)
		if len(span) == len(t.def.TimeParts) {
			for i, name := range t.def.TimeParts {
				parts[name] = span[i]
			}
		}
	}

	return Candidate{tmpl: t, parts: parts}, nil
}

// Encode joins the path segments found in parts under the template root.
func (t *Template) Encode(parts map[string]string) (string, error) {
	var missing []string
	segments := make([]string, 0, len(t.def.PathParts)+1)
	segments = append(segments, t.def.RootDir)
	for _, name := range t.def.PathParts {
		v := parts[name]
		if v == "" {
			missing = append(missing, name)
			continue
		}
		segments = append(segments, v)
	}
	if len(missing) > 0 {
		return "", &TemplateMismatchError{
			Template: t.def.ID,
			Reason:   "missing path parts: " + strings.Join(missing, ","),
		}
	}
	return strings.Join(segments, "/"), nil
}

// NewCandidate binds explicit attributes to the template without touching a path.
// The file name segment is decoded so file-name attributes are populated.
func (t *Template) NewCandidate(parts map[string]string) (Candidate, error) {
	p, err := t.Encode(parts)
	if err != nil {
		return Candidate{}, err
	}
	return t.Decode(p)
}

func (t *Template) mismatch(p, reason string) error {
	return &TemplateMismatchError{Template: t.def.ID, Path: p, Reason: reason}
}

// TemplateMismatchError reports a path or attribute set that does not fit a template.
type TemplateMismatchError struct {
	Template string
	Path     string
	Reason   string
}

func (e *TemplateMismatchError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: template %s: %s", domain.ErrTemplateMismatch, e.Template, e.Reason)
	}
	return fmt.Sprintf("%s: template %s: %q: %s", domain.ErrTemplateMismatch, e.Template, e.Path, e.Reason)
}

func (e *TemplateMismatchError) Unwrap() error { return domain.ErrTemplateMismatch }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func firstDuplicate(ss []string) string {
	seen := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		if _, ok := seen[s]; ok {
			return s
		}
		seen[s] = struct{}{}
	}
	return ""
}
