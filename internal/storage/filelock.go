package storage

import (
	"context"
	"os"
	"time"
)

const lockPollInterval = 10 * time.Millisecond

// FileLock is an advisory cross-process lock held on path + ".lock". It
// keeps two syncs from writing the same snapshot at once.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a file lock. Nothing is acquired until Lock.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path + ".lock"}
}

// Lock acquires the lock, polling until timeout elapses or ctx is done.
// It returns ErrLockTimeout when the deadline passes first.
func (l *FileLock) Lock(ctx context.Context, timeout time.Duration) error {
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return &StorageError{Op: "lock", Entity: "file", Path: l.path, Err: err}
	}

	deadline := time.Now().Add(timeout)
	for {
		if err := tryLock(file); err == nil {
			l.file = file
			return nil
		}
		if !time.Now().Before(deadline) {
			file.Close()
			return ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			file.Close()
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// Unlock releases the lock. It is a no-op when the lock is not held.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	unlock(l.file)
	l.file.Close()
	os.Remove(l.path)
	l.file = nil
	return nil
}
