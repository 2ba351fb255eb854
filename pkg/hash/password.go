package hash

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCost = 12
	MinLength   = 8
	// bcrypt ignores everything past 72 bytes.
	MaxBytes = 72
)

func Hash(password string) (string, error) {
	return HashWithCost(password, DefaultCost)
}

func HashWithCost(password string, cost int) (string, error) {
	if utf8.RuneCountInString(password) < MinLength {
		return "", fmt.Errorf("password must be at least %d characters", MinLength)
	}
	if len(password) > MaxBytes {
		return "", fmt.Errorf("password must be at most %d bytes", MaxBytes)
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashedBytes), nil
}

func Compare(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// NeedsRehash reports whether hashedPassword was produced with a cost other
// than cost, or is not a bcrypt hash at all.
func NeedsRehash(hashedPassword string, cost int) bool {
	c, err := bcrypt.Cost([]byte(hashedPassword))
	return err != nil || c != cost
}
