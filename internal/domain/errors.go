package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an identifier does not exist in a collection.
	ErrNotFound = errors.New("record not found")
	// ErrImportFormat indicates a malformed import envelope.
	ErrImportFormat = errors.New("invalid import envelope")
	// ErrInvalidFamily is returned for unknown family names.
	ErrInvalidFamily = errors.New("invalid family")
)

// DecodeError describes a stored value that is not valid JSON for its key.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
