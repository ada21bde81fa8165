package store

import "errors"

var (
	// ErrNotFound is returned when a record or queue item does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrMalformedSnapshot is returned when an import payload fails validation.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)
