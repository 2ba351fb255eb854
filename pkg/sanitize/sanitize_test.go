package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"trims", "  BMD-QA-001 \n", "BMD-QA-001"},
		{"keeps inner newlines", "B202401001\nB202401002", "B202401001\nB202401002"},
		{"zero width", "BMD\u200b-001\ufeff", "BMD-001"},
		{"control chars", "a\x00b\x07c", "abc"},
		{"nfc", "Cafe\u0301", "Caf\u00e9"},
		{"tags", "<b>bold</b> text", "bold text"},
		{"encoded tags", "&lt;script&gt;alert(1)&lt;/script&gt;", "alert(1)"},
		{"event handler", "x onclick=alert(1)", "x alert(1)"},
		{"javascript uri", "javascript:alert(1)", "alert(1)"},
		{"plain ampersand", "R&amp;D", "R&D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestFields(t *testing.T) {
	a, b := "  x ", "<i>y</i>"
	Fields(&a, &b, nil)
	assert.Equal(t, "x", a)
	assert.Equal(t, "y", b)
}
