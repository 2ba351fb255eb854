package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimPrefix(t *testing.T) {
	date := time.Date(2024, time.June, 3, 0, 0, 0, 0, time.Local)
	assert.Equal(t, "B202406", ClaimPrefix("B", date))
	assert.Equal(t, "E202406", ClaimPrefix("E", date))
}

func TestNextClaimNumber(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		reserve  bool
		want     string
	}{
		{"first ordinary", nil, false, "B202406001"},
		{"first reserve", nil, true, "B202406010"},
		{"continues ordinary", []string{"B202406001", "B202406002"}, false, "B202406003"},
		{"skips multiple of ten", []string{"B202406009"}, false, "B202406011"},
		{"ignores reserved for ordinary", []string{"B202406001", "B202406030"}, false, "B202406002"},
		{"reserve after highest reserved", []string{"B202406010", "B202406020", "B202406057"}, true, "B202406030"},
		{"ignores other months", []string{"B202405009", "B20240600X"}, false, "B202406001"},
		{"skips 100", []string{"B202406099"}, false, "B202406101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextClaimNumber("B202406", tt.existing, tt.reserve)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextClaimNumberExhausted(t *testing.T) {
	_, err := NextClaimNumber("E202406", []string{"E202406999"}, false)
	assert.ErrorIs(t, err, ErrNumbersExhausted)

	_, err = NextClaimNumber("E202406", []string{"E202406990"}, true)
	assert.ErrorIs(t, err, ErrNumbersExhausted)
}

func TestCleanClaimNumbers(t *testing.T) {
	valid, invalid := CleanClaimNumbers(" b202406001,B202406002\r\nB202406001\n\nE202413001, E202406000 ,X1")

	assert.Equal(t, []string{"B202406001", "B202406002"}, valid)
	assert.Equal(t, []string{"E202413001", "E202406000", "X1"}, invalid)
}
