package drs

import (
	"errors"
	"iter"
	"slices"
	"testing"
)

type item struct {
	name    string
	dataset string
	version string
}

func itemSeq(items []item, failAt int) iter.Seq2[item, error] {
	return func(yield func(item, error) bool) {
		for i, it := range items {
			if i == failAt {
				yield(item{}, errors.New("upstream failed"))
				return
			}
			if !yield(it, nil) {
				return
			}
		}
	}
}

func identifyItem(it item) (Identity, error) {
	return Identity{Dataset: it.dataset, Version: ParseVersion(it.version)}, nil
}

func collectNames(t *testing.T, seq iter.Seq2[item, error]) []string {
	t.Helper()
	var names []string
	for it, err := range seq {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		names = append(names, it.name)
	}
	return names
}

func TestLatest_KeepsTiesDropsOlder(t *testing.T) {
	items := []item{
		{"A@1", "A", "1"},
		{"A@2a", "A", "2"},
		{"B@1", "B", "1"},
		{"A@2b", "A", "2"},
	}
	got := collectNames(t, Latest(itemSeq(items, -1), identifyItem))
	want := []string{"A@2a", "A@2b", "B@1"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestLatest_NewerReplacesWholeGroup(t *testing.T) {
	items := []item{
		{"A@2a", "A", "v2"},
		{"A@2b", "A", "v2"},
		{"A@10", "A", "v10"},
		{"A@3", "A", "v3"},
	}
	got := collectNames(t, Latest(itemSeq(items, -1), identifyItem))
	if !slices.Equal(got, []string{"A@10"}) {
		t.Errorf("got %v, want [A@10]", got)
	}
}

func TestLatest_Empty(t *testing.T) {
	got := collectNames(t, Latest(itemSeq(nil, -1), identifyItem))
	if len(got) != 0 {
		t.Errorf("got %v, want nothing", got)
	}
}

func TestLatest_UpstreamErrorDiscardsBuffer(t *testing.T) {
	items := []item{{"A@1", "A", "1"}, {"B@1", "B", "1"}, {"C@1", "C", "1"}}
	var n int
	var gotErr error
	for _, err := range Latest(itemSeq(items, 2), identifyItem) {
		if err != nil {
			gotErr = err
			continue
		}
		n++
	}
	if gotErr == nil {
		t.Fatal("expected upstream error")
	}
	if n != 0 {
		t.Errorf("yielded %d items before the error, want 0", n)
	}
}

func TestLatest_IdentifyError(t *testing.T) {
	boom := errors.New("no dataset")
	seq := Latest(itemSeq([]item{{"A@1", "A", "1"}}, -1), func(item) (Identity, error) {
		return Identity{}, boom
	})
	for _, err := range seq {
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want %v", err, boom)
		}
	}
}

func TestLatest_EarlyStop(t *testing.T) {
	items := []item{{"A@1", "A", "1"}, {"B@1", "B", "1"}, {"C@1", "C", "1"}}
	var got []string
	for it, err := range Latest(itemSeq(items, -1), identifyItem) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, it.name)
		if len(got) == 2 {
			break
		}
	}
	if !slices.Equal(got, []string{"A@1", "B@1"}) {
		t.Errorf("got %v", got)
	}
}

func TestLatest_Candidates(t *testing.T) {
	tmpl := MustTemplate(CMIP5)
	dir := "/gpfs_750/projects/CMIP5/data/cmip5/output1/MPI-M/MPI-ESM-LR/historical/mon/atmos/Amon/r1i1p1/"
	paths := []string{
		dir + "v20110101/tas/tas_Amon_MPI-ESM-LR_historical_r1i1p1_185001-200512.nc",
		dir + "v20120315/tas/tas_Amon_MPI-ESM-LR_historical_r1i1p1_185001-200512.nc",
		dir + "v20120315/pr/pr_Amon_MPI-ESM-LR_historical_r1i1p1_185001-200512.nc",
	}
	seq := func(yield func(Candidate, error) bool) {
		for _, p := range paths {
			c, err := tmpl.Decode(p)
			if !yield(c, err) {
				return
			}
		}
	}

	var got []string
	for c, err := range Latest(seq, CandidateIdentity) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, c.String())
	}
	if !slices.Equal(got, paths[1:]) {
		t.Errorf("got %v, want %v", got, paths[1:])
	}
}
