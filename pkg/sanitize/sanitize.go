// Package sanitize cleans free-text input before it is stored: NFC
// normalization, removal of zero-width and control characters, and
// stripping of markup and script fragments.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	zeroWidth = regexp.MustCompile("[\u200B-\u200F\u202A-\u202E\u2060-\u206F\uFEFF]")
	htmlTags  = regexp.MustCompile(`(?i)</?[^>]+?>`)
	dangerous = regexp.MustCompile(`(?i)\bon\w+\s*=|javascript\s*:|data\s*:[^,]*,?|vbscript\s*:|<\s*script\b|<\s*iframe\b|<\s*img\b|<\s*svg\b`)
)

// Text returns s as plain text. Tabs and line breaks survive; everything
// else in the Unicode C category is dropped.
func Text(s string) string {
	if s == "" {
		return s
	}

	s = norm.NFC.String(strings.TrimSpace(s))
	s = zeroWidth.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '\t' || r == '\r' || r == '\n' {
			return r
		}
		if unicode.In(r, unicode.C) {
			return -1
		}
		return r
	}, s)

	// Decode first so encoded markup cannot slip past the tag filter.
	s = html.UnescapeString(s)
	s = htmlTags.ReplaceAllString(s, "")
	s = dangerous.ReplaceAllString(s, "")

	return strings.TrimSpace(s)
}

// Fields cleans every string in place.
func Fields(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = Text(*f)
		}
	}
}
