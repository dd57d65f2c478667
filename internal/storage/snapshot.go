package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"ytbucket/youtube"
)

const (
	snapshotVersion = "1"
	lockTimeout     = 5 * time.Second
)

// Snapshot mirrors the raw result of one playlist fetch so later runs can
// rebuild rows without calling the API.
type Snapshot struct {
	Version    string                         `json:"version"`
	PlaylistID string                         `json:"playlist_id"`
	FetchedAt  time.Time                      `json:"fetched_at"`
	Items      []youtube.PlaylistItemStub     `json:"items"`
	Details    map[string]youtube.VideoDetail `json:"details"`
	Avatars    map[string]string              `json:"avatars,omitempty"`
}

// SnapshotStore reads and writes a Snapshot at a fixed path.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore returns a store backed by the JSON file at path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Path returns the snapshot file location.
func (s *SnapshotStore) Path() string { return s.path }

// Save replaces the stored snapshot. The write holds the file lock and goes
// through an AtomicWriter.
func (s *SnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	lock := NewFileLock(s.path)
	if err := lock.Lock(ctx, lockTimeout); err != nil {
		return &StorageError{Op: "lock", Entity: "snapshot", Path: s.path, Err: err}
	}
	defer lock.Unlock()

	out := *snap
	out.Version = snapshotVersion
	if out.FetchedAt.IsZero() {
		out.FetchedAt = time.Now().UTC()
	}

	return WriteFile(s.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(&out)
	})
}

// Load returns the stored snapshot for playlistID. It returns ErrNotFound
// when the file is missing or belongs to another playlist.
func (s *SnapshotStore) Load(playlistID string) (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &StorageError{Op: "read", Entity: "snapshot", Path: s.path, Err: ErrNotFound}
		}
		return nil, &StorageError{Op: "read", Entity: "snapshot", Path: s.path, Err: err}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &StorageError{Op: "read", Entity: "snapshot", Path: s.path, Err: ErrCorrupt}
	}
	if snap.PlaylistID != playlistID {
		return nil, &StorageError{Op: "read", Entity: "snapshot", Path: s.path, Err: ErrNotFound}
	}
	if snap.Details == nil {
		snap.Details = make(map[string]youtube.VideoDetail)
	}
	return &snap, nil
}
