package archive

import (
	"context"
	"errors"
	"io/fs"
	"slices"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/freva-org/databrowser/internal/domain"
	"github.com/freva-org/databrowser/internal/domain/constraint"
	"github.com/freva-org/databrowser/internal/domain/drs"
)

var testDef = drs.Definition{
	ID:                    "t",
	RootDir:               "/arch",
	PathParts:             []string{"project", "experiment", "version", "variable", "file_name"},
	DatasetParts:          []string{"project", "experiment", "variable"},
	VersionedDatasetParts: []string{"project", "experiment", "variable", "version"},
	FileNameParts:         []string{"variable", "experiment", "time"},
	FileSuffix:            ".nc",
	TimeParts:             []string{"start_time", "end_time"},
}

func testArchive() fstest.MapFS {
	return fstest.MapFS{
		"x/hist/v1/temp/temp_hist_1850-1900.nc": {},
		"x/hist/v1/pr/pr_hist_1850-1900.nc":     {},
		"x/hist/v2/temp/temp_hist_1850-1900.nc": {},
		"x/rcp/v1/temp/temp_rcp_2006-2100.nc":   {},
		"y/hist/v1/temp/temp_hist_1850-1900.nc": {},
		"x/hist/v1/temp/broken.nc":              {},
		"x/hist/v1/temp/.hidden_hist_1-2.nc":    {},
	}
}

func newTestEnumerator(t *testing.T, fsys fs.FS) (*Enumerator, *drs.Template) {
	t.Helper()
	tmpl, err := drs.NewTemplate(testDef)
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}
	return New(func(string) fs.FS { return fsys }), tmpl
}

func paths(t *testing.T, seq func(func(drs.Candidate, error) bool)) []string {
	t.Helper()
	var out []string
	for c, err := range seq {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p, err := c.Path()
		if err != nil {
			t.Fatalf("Path: %v", err)
		}
		out = append(out, strings.TrimPrefix(p, "/arch/"))
	}
	return out
}

func TestSearch_ConstrainedSegments(t *testing.T) {
	e, tmpl := newTestEnumerator(t, testArchive())

	seq, err := e.Search(context.Background(), tmpl, constraint.Set{
		"project":  constraint.Scalar("x"),
		"variable": constraint.Scalar("temp"),
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := paths(t, seq)
	want := []string{
		"x/hist/v1/temp/temp_hist_1850-1900.nc",
		"x/hist/v2/temp/temp_hist_1850-1900.nc",
		"x/rcp/v1/temp/temp_rcp_2006-2100.nc",
	}
	if !slices.Equal(got, want) {
		t.Errorf("got %v\nwant %v", got, want)
	}
}

func TestSearch_ListIsAlternatives(t *testing.T) {
	e, tmpl := newTestEnumerator(t, testArchive())

	seq, err := e.Search(context.Background(), tmpl, constraint.Set{
		"project":    constraint.List("y", "x"),
		"experiment": constraint.Scalar("hist"),
		"version":    constraint.Scalar("v1"),
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := paths(t, seq)
	want := []string{
		"x/hist/v1/pr/pr_hist_1850-1900.nc",
		"x/hist/v1/temp/temp_hist_1850-1900.nc",
		"y/hist/v1/temp/temp_hist_1850-1900.nc",
	}
	if !slices.Equal(got, want) {
		t.Errorf("got %v\nwant %v", got, want)
	}
}

func TestSearch_GlobValue(t *testing.T) {
	e, tmpl := newTestEnumerator(t, testArchive())

	seq, err := e.Search(context.Background(), tmpl, constraint.Set{"experiment": constraint.Scalar("r*")})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := paths(t, seq); !slices.Equal(got, []string{"x/rcp/v1/temp/temp_rcp_2006-2100.nc"}) {
		t.Errorf("got %v", got)
	}
}

func TestSearch_DecodedAttributes(t *testing.T) {
	e, tmpl := newTestEnumerator(t, testArchive())

	seq, err := e.Search(context.Background(), tmpl, constraint.Set{"experiment": constraint.Scalar("rcp")})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for c, err := range seq {
		if err != nil {
			t.Fatal(err)
		}
		if v, _ := c.Get("start_time"); v != "2006" {
			t.Errorf("start_time = %q", v)
		}
		if v, _ := c.Get("variable"); v != "temp" {
			t.Errorf("variable = %q", v)
		}
	}
}

type countingFS struct {
	fs.FS
	opens int
}

func (c *countingFS) Open(name string) (fs.File, error) {
	c.opens++
	return nil, errors.New("must not be called")
}

func TestSearch_UnknownConstraintBeforeFSAccess(t *testing.T) {
	cfs := &countingFS{}
	opened := 0
	tmpl, _ := drs.NewTemplate(testDef)
	e := New(func(string) fs.FS { opened++; return cfs })

	_, err := e.Search(context.Background(), tmpl, constraint.Set{
		"project": constraint.Scalar("x"),
		"modle":   constraint.Scalar("m"),
	})
	var uce *domain.UnknownConstraintError
	if !errors.As(err, &uce) {
		t.Fatalf("expected UnknownConstraintError, got %v", err)
	}
	if !errors.Is(err, domain.ErrUnknownConstraint) {
		t.Error("expected ErrUnknownConstraint sentinel")
	}
	if !slices.Equal(uce.Keys, []string{"modle"}) {
		t.Errorf("Keys = %v", uce.Keys)
	}
	if opened != 0 || cfs.opens != 0 {
		t.Errorf("file system touched: opened=%d opens=%d", opened, cfs.opens)
	}
}

func TestSearch_InvalidPattern(t *testing.T) {
	e, tmpl := newTestEnumerator(t, testArchive())

	for _, bad := range []string{"[", "a/b", ""} {
		_, err := e.Search(context.Background(), tmpl, constraint.Set{"project": constraint.Scalar(bad)})
		if !errors.Is(err, domain.ErrInvalidConstraint) {
			t.Errorf("%q: expected ErrInvalidConstraint, got %v", bad, err)
		}
	}
}

func TestSearch_DefaultsApplyUnderCaller(t *testing.T) {
	def := testDef
	def.Defaults = map[string]string{"project": "y"}
	tmpl, err := drs.NewTemplate(def)
	if err != nil {
		t.Fatal(err)
	}
	e := New(func(string) fs.FS { return testArchive() })

	seq, err := e.Search(context.Background(), tmpl, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(t, seq); !slices.Equal(got, []string{"y/hist/v1/temp/temp_hist_1850-1900.nc"}) {
		t.Errorf("default project not applied: %v", got)
	}

	seq, err = e.Search(context.Background(), tmpl, constraint.Set{"project": constraint.Scalar("x"), "experiment": constraint.Scalar("rcp")})
	if err != nil {
		t.Fatal(err)
	}
	if got := paths(t, seq); !slices.Equal(got, []string{"x/rcp/v1/temp/temp_rcp_2006-2100.nc"}) {
		t.Errorf("caller value must win: %v", got)
	}
}

func TestSearch_EarlyStop(t *testing.T) {
	e, tmpl := newTestEnumerator(t, testArchive())

	seq, err := e.Search(context.Background(), tmpl, nil)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("expected to stop after 2, got %d", n)
	}
}

func TestSearch_Cancelled(t *testing.T) {
	e, tmpl := newTestEnumerator(t, testArchive())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	seq, err := e.Search(ctx, tmpl, nil)
	if err != nil {
		t.Fatal(err)
	}
	var gotErr error
	for _, err := range seq {
		gotErr = err
	}
	if !errors.Is(gotErr, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", gotErr)
	}
}

type brokenDirFS struct {
	fstest.MapFS
	broken string
}

func (b brokenDirFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if name == b.broken {
		return nil, fs.ErrPermission
	}
	return b.MapFS.ReadDir(name)
}

func TestSearch_SkipsUnreadableDirectory(t *testing.T) {
	fsys := brokenDirFS{MapFS: testArchive(), broken: "x/hist"}
	e, tmpl := newTestEnumerator(t, fsys)

	seq, err := e.Search(context.Background(), tmpl, constraint.Set{"variable": constraint.Scalar("temp")})
	if err != nil {
		t.Fatal(err)
	}
	got := paths(t, seq)
	want := []string{
		"x/rcp/v1/temp/temp_rcp_2006-2100.nc",
		"y/hist/v1/temp/temp_hist_1850-1900.nc",
	}
	if !slices.Equal(got, want) {
		t.Errorf("got %v\nwant %v", got, want)
	}
}

func TestPlan(t *testing.T) {
	tmpl, _ := drs.NewTemplate(testDef)
	levels, err := Plan(tmpl, constraint.Set{"variable": constraint.List("b", "a", "b")})
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != 5 {
		t.Fatalf("levels = %d", len(levels))
	}
	if !slices.Equal(levels[0], []string{"*"}) {
		t.Errorf("unconstrained level = %v", levels[0])
	}
	if !slices.Equal(levels[3], []string{"a", "b"}) {
		t.Errorf("variable level = %v", levels[3])
	}
}

func TestCheckRoot(t *testing.T) {
	e := New(func(root string) fs.FS {
		if root == "/missing" {
			return &countingFS{}
		}
		return testArchive()
	})
	if err := e.CheckRoot(context.Background(), "/arch"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := e.CheckRoot(context.Background(), "/missing"); err == nil {
		t.Error("expected error for unreadable root")
	}
}
