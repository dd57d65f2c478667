package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AtomicWriter writes to a temp file that replaces the target on Commit, so
// readers never see a partially written export.
type AtomicWriter struct {
	path    string
	tmpPath string
	file    *os.File
}

// NewAtomicWriter creates a writer for path. Missing parent directories are
// created.
func NewAtomicWriter(path string) (*AtomicWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".ytbucket-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	return &AtomicWriter{
		path:    path,
		tmpPath: tmpFile.Name(),
		file:    tmpFile,
	}, nil
}

func (w *AtomicWriter) Write(p []byte) (n int, err error) {
	return w.file.Write(p)
}

// Commit syncs the temp file and renames it over the target.
func (w *AtomicWriter) Commit() error {
	if err := w.file.Sync(); err != nil {
		w.Abort()
		return fmt.Errorf("sync: %w", err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	// CreateTemp uses 0600; exports are meant to be shared.
	if err := os.Chmod(w.tmpPath, 0644); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(w.tmpPath, w.path); err != nil {
		os.Remove(w.tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Abort discards the temp file.
func (w *AtomicWriter) Abort() error {
	w.file.Close()
	return os.Remove(w.tmpPath)
}

// WriteFile streams fn's output to path atomically. The target is left
// untouched when fn fails.
func WriteFile(path string, fn func(io.Writer) error) error {
	w, err := NewAtomicWriter(path)
	if err != nil {
		return &StorageError{Op: "write", Entity: "file", Path: path, Err: err}
	}
	if err := fn(w); err != nil {
		w.Abort()
		return &StorageError{Op: "write", Entity: "file", Path: path, Err: err}
	}
	if err := w.Commit(); err != nil {
		return &StorageError{Op: "write", Entity: "file", Path: path, Err: err}
	}
	return nil
}
