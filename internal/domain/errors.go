package domain

import "errors"

var (
	// ErrNotFound is returned when a developer, activity record or insight does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write collides with an existing row (e.g. duplicate email).
	ErrConflict = errors.New("already exists")
	// ErrValidation wraps input that fails domain rules.
	ErrValidation = errors.New("validation failed")
	// ErrUnavailable marks a storage failure. Metrics requests fail with it rather than scoring absent data.
	ErrUnavailable = errors.New("store unavailable")
)
