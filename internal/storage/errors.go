// Package storage persists local sync state: the raw fetch snapshot and
// the atomic file writes the file sinks build on.
package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when no snapshot exists for a playlist.
	ErrNotFound = errors.New("storage: not found")

	// ErrCorrupt is returned when a snapshot file cannot be decoded.
	ErrCorrupt = errors.New("storage: data corruption detected")

	// ErrLockTimeout is returned when a file lock cannot be acquired in time.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
)

// StorageError wraps storage errors with operation and file context.
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		log.Printf("%s on %s failed", storErr.Op, storErr.Path)
//	}
type StorageError struct {
	// Op is the operation that failed ("read", "write", "lock").
	Op string
	// Entity is what was being accessed ("snapshot", "file").
	Entity string
	// Path is the file involved, if any.
	Path string
	// Err is the underlying error.
	Err error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("storage: %s %s %s: %v", e.Op, e.Entity, e.Path, e.Err)
	}
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
