package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock is an exclusive advisory lock on a database path. Only its holder
// may write the database.
type Lock struct {
	fl *flock.Flock
}

// LockPath returns the lock file guarding the database at dbPath.
func LockPath(dbPath string) string {
	return dbPath + ".lock"
}

// AcquireLock takes the lock without waiting. It fails with ErrLocked while
// another holder, in this or another process, has it.
func AcquireLock(dbPath string) (*Lock, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	fl := flock.New(LockPath(dbPath))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, fl.Path())
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock. The lock file itself is left in place.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}
