package version

import "testing"

func TestString(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "v1.2.0"
	if got, want := String(), "databrowser v1.2.0 (commit unknown, built unknown)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
