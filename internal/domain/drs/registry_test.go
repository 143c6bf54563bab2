package drs

import (
	"errors"
	"slices"
	"testing"

	"github.com/freva-org/databrowser/internal/domain"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	if !slices.Equal(r.IDs(), []string{"0", "1"}) {
		t.Errorf("IDs() = %v", r.IDs())
	}
	t0, err := r.Get("0")
	if err != nil {
		t.Fatal(err)
	}
	if !t0.IsVersioned() {
		t.Error("baseline 0 must be versioned")
	}
	t1, err := r.Get("1")
	if err != nil {
		t.Fatal(err)
	}
	if t1.IsVersioned() {
		t.Error("baseline 1 must not be versioned")
	}
}

func TestRegistry_UnknownTemplate(t *testing.T) {
	_, err := DefaultRegistry().Get("7")
	if !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Errorf("err = %v, want ErrTemplateNotFound", err)
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	_, err := NewRegistry(MustTemplate(CMIP5), MustTemplate(CMIP5))
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestRegistry_Decode(t *testing.T) {
	c, err := DefaultRegistry().Decode(cmip5Path, "0")
	if err != nil {
		t.Fatal(err)
	}
	if c.Template().ID() != "0" {
		t.Errorf("template = %q", c.Template().ID())
	}
	if _, err := DefaultRegistry().Decode(cmip5Path, "1"); !errors.Is(err, domain.ErrTemplateMismatch) {
		t.Errorf("decode under wrong template: err = %v", err)
	}
}
