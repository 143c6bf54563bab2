package constraint

import (
	"net/url"
	"slices"
	"testing"
)

func TestIsReserved(t *testing.T) {
	for _, k := range []string{"q", "fl", "fq", "facet.limit", "sort"} {
		if !IsReserved(k) {
			t.Errorf("IsReserved(%q) = false, want true", k)
		}
	}
	for _, k := range []string{"project", "text", "start", "facet"} {
		if IsReserved(k) {
			t.Errorf("IsReserved(%q) = true, want false", k)
		}
	}
}

func TestSplitNegation(t *testing.T) {
	tests := []struct {
		key     string
		field   string
		negated bool
	}{
		{"model", "model", false},
		{"model_not_", "model", true},
		{"_not_", "_not_", false},
		{"model_not", "model_not", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			f, n := SplitNegation(tt.key)
			if f != tt.field || n != tt.negated {
				t.Errorf("SplitNegation(%q) = (%q, %v), want (%q, %v)", tt.key, f, n, tt.field, tt.negated)
			}
		})
	}
}

func TestValue(t *testing.T) {
	s := Scalar("tas")
	if s.IsList() {
		t.Error("scalar reported as list")
	}
	if s.First() != "tas" {
		t.Errorf("First() = %q", s.First())
	}

	l := List("tas", "pr")
	if !l.IsList() {
		t.Error("list not reported as list")
	}
	if got := l.Values(); !slices.Equal(got, []string{"tas", "pr"}) {
		t.Errorf("Values() = %v", got)
	}
	if l.String() != "tas,pr" {
		t.Errorf("String() = %q", l.String())
	}

	vs := l.Values()
	vs[0] = "mutated"
	if l.First() != "tas" {
		t.Error("Values() leaked internal slice")
	}
}

func TestFromValues(t *testing.T) {
	s := FromValues(url.Values{
		"project":  {"cmip5"},
		"variable": {"tas", "pr"},
		"empty":    {},
	})
	if len(s) != 2 {
		t.Fatalf("len = %d, want 2", len(s))
	}
	if s["project"].IsList() {
		t.Error("single value became a list")
	}
	if !s["variable"].IsList() {
		t.Error("repeated value did not become a list")
	}
}

func TestSet_KeysSorted(t *testing.T) {
	s := Set{"b": Scalar("1"), "a": Scalar("2"), "c": Scalar("3")}
	if got := s.Keys(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Keys() = %v", got)
	}
}

func TestSet_PopAndClone(t *testing.T) {
	s := Set{"text": Scalar("ocean"), "project": Scalar("x")}
	c := s.Clone()

	v, ok := c.Pop("text")
	if !ok || v.First() != "ocean" {
		t.Fatalf("Pop = (%v, %v)", v, ok)
	}
	if c.Has("text") {
		t.Error("key still present after Pop")
	}
	if !s.Has("text") {
		t.Error("Pop on clone modified original")
	}
	if _, ok := c.Pop("missing"); ok {
		t.Error("Pop of missing key reported ok")
	}
}

func TestSet_WithDefaults(t *testing.T) {
	s := Set{"model": Scalar("mine")}
	out := s.WithDefaults(map[string]string{"model": "default", "project": "cmip5"})

	if out["model"].First() != "mine" {
		t.Errorf("model = %q, caller value must win", out["model"].First())
	}
	if out["project"].First() != "cmip5" {
		t.Errorf("project = %q, want default", out["project"].First())
	}
	if s.Has("project") {
		t.Error("WithDefaults modified receiver")
	}
}

func TestParseFieldList(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want FieldList
	}{
		{"none", nil, nil},
		{"single", []string{"model"}, FieldList{"model"}},
		{"comma string", []string{"model, experiment ,variable"}, FieldList{"model", "experiment", "variable"}},
		{"list", []string{"model", "experiment"}, FieldList{"model", "experiment"}},
		{"mixed and blanks", []string{"model,", " ", "a,b"}, FieldList{"model", "a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFieldList(tt.raw...)
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseFieldList(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseFieldList_ListAndStringAgree(t *testing.T) {
	a := ParseFieldList("model", "experiment")
	b := ParseFieldList("model,experiment")
	if !slices.Equal(a, b) {
		t.Errorf("list form %v != string form %v", a, b)
	}
}

func TestSet_WithTextAsQuery(t *testing.T) {
	s := Set{"text": Scalar("temperature"), "model": Scalar("m")}
	got := s.WithTextAsQuery()
	if got.Has("text") {
		t.Error("text must be removed")
	}
	if got["q"].First() != "temperature" {
		t.Errorf("q = %q, want temperature", got["q"].First())
	}
	if !s.Has("text") {
		t.Error("original set must be untouched")
	}

	plain := Set{"model": Scalar("m")}.WithTextAsQuery()
	if plain.Has("q") {
		t.Error("q must not be invented without text")
	}
}
