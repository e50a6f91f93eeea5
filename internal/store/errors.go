package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotLoaded      = errors.New("database not loaded")
	ErrNotFound       = errors.New("snapshot not found")
	ErrDatabaseAbsent = errors.New("database does not exist")
	ErrCorrupt        = errors.New("database is corrupt")
	ErrLoad           = errors.New("load failed")
	ErrSave           = errors.New("save failed")
	ErrLocked         = errors.New("database is in use by another process")
	ErrInvalid        = errors.New("invalid snapshot")
)

// LoadError reports a database that exists but could not be read or parsed.
// It matches ErrLoad and the underlying cause with errors.Is.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}

// SaveError reports a failed write. The in-memory database is unchanged.
type SaveError struct {
	Path string
	Err  error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save %s: %v", e.Path, e.Err)
}

func (e *SaveError) Unwrap() []error {
	return []error{ErrSave, e.Err}
}

// corruptf wraps a decode failure so it matches ErrCorrupt.
func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
