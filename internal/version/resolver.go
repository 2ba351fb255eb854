package version

import (
	"context"
	"sort"
	"strings"
)

// SortDescending returns a copy of versions ordered latest first. Equal
// labels keep their input order.
func SortDescending(versions []string) []string {
	tags := make([]Tag, len(versions))
	for i, v := range versions {
		tags[i] = Parse(v)
	}

	sort.SliceStable(tags, func(i, j int) bool {
		return Compare(tags[i], tags[j]) > 0
	})

	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Raw
	}
	return out
}

// Resolve returns the greatest label in versions. ok is false when versions
// is empty.
func Resolve(versions []string) (latest string, ok bool) {
	if len(versions) == 0 {
		return "", false
	}

	best := Parse(versions[0])
	for _, v := range versions[1:] {
		t := Parse(v)
		if Compare(t, best) > 0 {
			best = t
		}
	}
	return best.Raw, true
}

// IsLatest reports whether candidate is the resolved latest label, ignoring
// case and surrounding whitespace.
func IsLatest(versions []string, candidate string) bool {
	if strings.TrimSpace(candidate) == "" {
		return false
	}

	latest, ok := Resolve(versions)
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(latest), strings.TrimSpace(candidate))
}

// Malformed lists the labels that did not parse as major.minor.
func Malformed(versions []string) []string {
	var bad []string
	for _, v := range versions {
		if !Parse(v).Valid {
			bad = append(bad, v)
		}
	}
	return bad
}

// Source supplies every recorded label for one document number.
type Source interface {
	Versions(ctx context.Context, docNo string) ([]string, error)
}

// Resolver binds the pure resolution rules to a persisted Source.
type Resolver struct {
	source Source
}

func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

func (r *Resolver) Latest(ctx context.Context, docNo string) (string, bool, error) {
	versions, err := r.source.Versions(ctx, docNo)
	if err != nil {
		return "", false, err
	}
	latest, ok := Resolve(versions)
	return latest, ok, nil
}

func (r *Resolver) IsLatest(ctx context.Context, docNo, candidate string) (bool, error) {
	if strings.TrimSpace(docNo) == "" || strings.TrimSpace(candidate) == "" {
		return false, nil
	}

	versions, err := r.source.Versions(ctx, docNo)
	if err != nil {
		return false, err
	}
	return IsLatest(versions, candidate), nil
}
