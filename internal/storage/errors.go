package storage

import "errors"

// Storage errors shared by all history store implementations.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a version whose key already
	// exists. Re-applying an already-applied batch surfaces this instead of
	// silently creating a double version.
	ErrDuplicateKey = errors.New("duplicate key: version already exists")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInconsistentState is returned when a history holds two is_latest
	// rows for one vehicle identifier. This indicates a prior atomicity
	// violation upstream and is surfaced, never repaired.
	ErrInconsistentState = errors.New("inconsistent state: multiple latest rows for one vehicle")
)
