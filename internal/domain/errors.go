package domain

import "errors"

var (
	// ErrInvalidURL is returned when a target URL fails the shared validity
	// rules (https, non-IP hostname, length, and so on).
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInvalidAlias is returned when an alias is not 1-16 alphanumeric
	// characters.
	ErrInvalidAlias = errors.New("invalid alias format")

	// ErrNotFound covers both absent and expired records.
	ErrNotFound = errors.New("URL not found")

	// ErrAliasTaken is the duplicate-key backstop for the check-then-insert
	// race on alias creation.
	ErrAliasTaken = errors.New("alias already taken")

	// ErrAliasSpaceExhausted signals that unique alias generation gave up
	// after its bounded attempts. Callers treat it as transient.
	ErrAliasSpaceExhausted = errors.New("alias space exhausted")
)
