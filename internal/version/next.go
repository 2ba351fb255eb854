package version

import (
	"fmt"
	"math"
)

// NextVersions returns the two labels a new revision of current may take:
// the next major ("N+1.0") and the next minor ("N.m+1").
func NextVersions(current string) (nextMajor, nextMinor string, err error) {
	t := Parse(current)

	major, err := t.Major()
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrMalformed, current)
	}
	minor, err := t.Minor()
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ErrMalformed, current)
	}
	if major == math.MaxUint64 || minor == math.MaxUint64 {
		return "", "", fmt.Errorf("%w: %q out of range", ErrMalformed, current)
	}

	nextMajor = fmt.Sprintf("%d.0", major+1)
	nextMinor = fmt.Sprintf("%d.%d", major, minor+1)
	return nextMajor, nextMinor, nil
}

// IsLegalSuccessor reports whether candidate is one of the two labels
// NextVersions offers for current.
func IsLegalSuccessor(current, candidate string) bool {
	nextMajor, nextMinor, err := NextVersions(current)
	if err != nil {
		return false
	}
	return candidate == nextMajor || candidate == nextMinor
}

// Outranks reports whether candidate is strictly greater than every label in
// existing.
func Outranks(candidate string, existing []string) bool {
	c := Parse(candidate)
	if !c.Valid {
		return false
	}
	for _, v := range existing {
		if Compare(c, Parse(v)) <= 0 {
			return false
		}
	}
	return true
}
