package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a tag or fuzzy goto resolves to nothing.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTagName is returned for empty tag names or names containing a path separator.
	ErrInvalidTagName = errors.New("invalid tag name")
	// ErrInvalidPath is returned when a path is empty or not absolute.
	ErrInvalidPath = errors.New("invalid path")
	// ErrStorageBusy is returned when the database stayed locked for the whole retry budget.
	ErrStorageBusy = errors.New("storage busy")
)

// StorageError wraps an I/O, corruption or schema failure of the database
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err carries a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
