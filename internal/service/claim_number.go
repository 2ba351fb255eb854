package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Claim numbers look like B202406001: type letter, claim month, and a
// three digit suffix. Suffixes ending in 0 are held back for reserve claims.
var claimNumberPattern = regexp.MustCompile(`^[BE](\d{4})(0[1-9]|1[0-2])(00[1-9]|0[1-9][0-9]|[1-9][0-9]{2})$`)

const maxSuffix = 999

func ClaimPrefix(claimType string, date time.Time) string {
	return claimType + date.Format("200601")
}

// NextClaimNumber picks the next free number under prefix. Ordinary claims
// continue after the highest ordinary suffix, skipping multiples of 10;
// reserve claims take the next multiple of 10 after the highest reserved one.
func NextClaimNumber(prefix string, existing []string, reserve bool) (string, error) {
	maxOrdinary, maxReserved := 0, 0
	for _, n := range existing {
		suffix, ok := claimSuffix(prefix, n)
		if !ok {
			continue
		}
		if suffix%10 == 0 {
			maxReserved = max(maxReserved, suffix)
		} else {
			maxOrdinary = max(maxOrdinary, suffix)
		}
	}

	var next int
	if reserve {
		next = max(10, maxReserved+10)
	} else {
		next = maxOrdinary + 1
		for next%10 == 0 {
			next++
		}
	}

	if next > maxSuffix {
		return "", fmt.Errorf("%w: %s", ErrNumbersExhausted, prefix)
	}
	return fmt.Sprintf("%s%03d", prefix, next), nil
}

func claimSuffix(prefix, number string) (int, bool) {
	rest, ok := strings.CutPrefix(number, prefix)
	if !ok || len(rest) != 3 {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// CleanClaimNumbers splits a pasted list of claim numbers on commas and
// line breaks, upper-cases and de-duplicates them, and separates the
// well-formed numbers from the rest. Order of first appearance is kept.
func CleanClaimNumbers(input string) (valid, invalid []string) {
	seen := make(map[string]bool)
	parts := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	for _, p := range parts {
		n := strings.ToUpper(strings.TrimSpace(p))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true

		if claimNumberPattern.MatchString(n) {
			valid = append(valid, n)
		} else {
			invalid = append(invalid, n)
		}
	}
	return valid, invalid
}
