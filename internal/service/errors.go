package service

import (
	"errors"
	"strings"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")

	ErrNotLatest        = errors.New("only the latest version can be revised or deleted")
	ErrInvalidVersion   = errors.New("version is not a legal successor of the latest version")
	ErrDuplicateVersion = errors.New("version already exists or does not outrank existing versions")
	ErrHasClaims        = errors.New("version has claim records")

	ErrInvalidClaimDate = errors.New("claim date is outside the allowed range")
	ErrClaimClosed      = errors.New("claim is already stored or cancelled")
	ErrNumbersExhausted = errors.New("no numbers left for this month")

	ErrAlreadyExists = errors.New("record already exists")
	ErrNotVerified   = errors.New("goods have not been accepted yet")
)

// ValidationError collects every problem found in one request.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Add(msg string) {
	e.Messages = append(e.Messages, msg)
}

// Err returns nil when nothing was added.
func (e *ValidationError) Err() error {
	if len(e.Messages) == 0 {
		return nil
	}
	return e
}
