package drs

import (
	"cmp"
	"strconv"
	"strings"
)

// Version is a comparable dataset revision.
//
// Archive versions are usually "v" followed by a date (v20120315) or a
// plain counter (1, 2, 10). Digit runs are compared as integers so that
// "v10" sorts after "v9", which lexical comparison gets wrong. Order:
// empty < numeric (by value, then by raw text) < anything else (lexical).
type Version struct {
	raw     string
	num     uint64
	numeric bool
}

// ParseVersion classifies a raw version token.
func ParseVersion(s string) Version {
	v := Version{raw: s}
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	if digits == "" {
		return v
	}
	if n, err := strconv.ParseUint(digits, 10, 64); err == nil {
		v.num = n
		v.numeric = true
	}
	return v
}

// String returns the raw token.
func (v Version) String() string { return v.raw }

// IsZero reports whether the version is empty.
func (v Version) IsZero() bool { return v.raw == "" }

// Compare returns -1, 0 or +1.
func (v Version) Compare(o Version) int {
	if r := cmp.Compare(v.rank(), o.rank()); r != 0 {
		return r
	}
	if v.numeric {
		if r := cmp.Compare(v.num, o.num); r != 0 {
			return r
		}
	}
	return strings.Compare(v.raw, o.raw)
}

func (v Version) rank() int {
	switch {
	case v.raw == "":
		return 0
	case v.numeric:
		return 1
	default:
		return 2
	}
}
