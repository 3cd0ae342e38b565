// Package common defines sentinel errors shared by the client and server
// layers of tripkeeper. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrStorageFailure wraps any error coming from the underlying storage
	// engine (quota exhaustion, corruption, closed handle).
	ErrStorageFailure = errors.New("storage failure")

	// ErrVersionConflict is returned when a compare-and-swap on the record
	// version fails because another writer got there first.
	ErrVersionConflict = errors.New("version conflict")

	// ErrValidation is returned when a record violates its invariants.
	ErrValidation = errors.New("validation error")
)
