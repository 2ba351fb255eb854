// Package version orders the dotted "major.minor" revision labels attached to
// controlled forms and works out which revision is current.
package version

import (
	"errors"
	"strconv"
	"strings"
)

var ErrMalformed = errors.New("malformed version")

// Tag is a parsed revision label. Invalid tags keep their raw text so they
// can still be displayed and compared for equality.
type Tag struct {
	Raw       string
	MajorText string
	MinorText string
	Valid     bool
}

// Parse splits s at the first "." and never fails. A missing dot means a
// minor part of "0".
func Parse(s string) Tag {
	major, minor, found := strings.Cut(s, ".")
	if !found {
		minor = "0"
	}

	return Tag{
		Raw:       s,
		MajorText: major,
		MinorText: minor,
		Valid:     isDigits(major) && isDigits(minor),
	}
}

func (t Tag) Major() (uint64, error) {
	if !t.Valid {
		return 0, ErrMalformed
	}
	return strconv.ParseUint(t.MajorText, 10, 64)
}

func (t Tag) Minor() (uint64, error) {
	if !t.Valid {
		return 0, ErrMalformed
	}
	return strconv.ParseUint(t.MinorText, 10, 64)
}

func (t Tag) String() string {
	return t.Raw
}

// Compare returns -1, 0 or 1. Every invalid tag sorts below every valid one;
// two invalid tags fall back to comparing their parts left-padded to three
// characters.
func Compare(a, b Tag) int {
	switch {
	case a.Valid && !b.Valid:
		return 1
	case !a.Valid && b.Valid:
		return -1
	case a.Valid && b.Valid:
		if c := compareDigits(a.MajorText, b.MajorText); c != 0 {
			return c
		}
		return compareDigits(a.MinorText, b.MinorText)
	default:
		if c := strings.Compare(pad3(a.MajorText), pad3(b.MajorText)); c != 0 {
			return c
		}
		return strings.Compare(pad3(a.MinorText), pad3(b.MinorText))
	}
}

// CompareStrings parses both labels and compares them.
func CompareStrings(a, b string) int {
	return Compare(Parse(a), Parse(b))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// compareDigits compares two decimal strings numerically without converting
// them, so arbitrarily long labels cannot overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func pad3(s string) string {
	p := "000" + s
	return p[len(p)-3:]
}
