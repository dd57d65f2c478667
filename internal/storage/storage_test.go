package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ytbucket/youtube"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")

	if err := WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "first")
		return err
	}); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "first" {
		t.Errorf("content = %q, want %q", data, "first")
	}
}

func TestWriteFile_FailureKeepsTarget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(path, []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := WriteFile(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WriteFile() error = %v, want %v", err, boom)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "original" {
		t.Errorf("content = %q, target was modified", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, temp file not cleaned up", len(entries))
	}
}

func TestFileLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	ctx := context.Background()

	first := NewFileLock(path)
	if err := first.Lock(ctx, time.Second); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	second := NewFileLock(path)
	if err := second.Lock(ctx, 50*time.Millisecond); !errors.Is(err, ErrLockTimeout) {
		t.Errorf("second Lock() error = %v, want ErrLockTimeout", err)
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if err := second.Lock(ctx, time.Second); err != nil {
		t.Fatalf("Lock() after Unlock error = %v", err)
	}
	second.Unlock()

	if err := second.Unlock(); err != nil {
		t.Errorf("Unlock() on released lock error = %v", err)
	}
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "snapshot.json")
	store := NewSnapshotStore(path)
	fetched := time.Date(2025, 1, 7, 13, 45, 0, 0, time.UTC)

	snap := &Snapshot{
		PlaylistID: "PL123",
		FetchedAt:  fetched,
		Items: []youtube.PlaylistItemStub{
			{ItemID: "i1", VideoID: "v1"},
			{ItemID: "i2", VideoID: "v2"},
		},
		Details: map[string]youtube.VideoDetail{
			"v1": {VideoID: "v1", Title: "One", DurationISO: "PT2M", ViewCount: 42, Tags: []string{"a"}},
		},
		Avatars: map[string]string{"UC1": "https://yt3.ggpht.com/a"},
	}

	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load("PL123")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Version != snapshotVersion {
		t.Errorf("Version = %q, want %q", got.Version, snapshotVersion)
	}
	if !got.FetchedAt.Equal(fetched) {
		t.Errorf("FetchedAt = %v, want %v", got.FetchedAt, fetched)
	}
	if len(got.Items) != 2 || got.Items[1].VideoID != "v2" {
		t.Errorf("Items = %+v", got.Items)
	}
	if d := got.Details["v1"]; d.Title != "One" || d.ViewCount != 42 || len(d.Tags) != 1 {
		t.Errorf("Details[v1] = %+v", d)
	}
	if got.Avatars["UC1"] != "https://yt3.ggpht.com/a" {
		t.Errorf("Avatars = %v", got.Avatars)
	}
	if _, err := os.Stat(path + ".lock"); !os.IsNotExist(err) {
		t.Errorf("lock file left behind: %v", err)
	}
}

func TestSnapshotStore_Load(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := NewSnapshotStore(filepath.Join(dir, "none.json")).Load("PL123")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Load() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("other playlist", func(t *testing.T) {
		store := NewSnapshotStore(filepath.Join(dir, "other.json"))
		if err := store.Save(context.Background(), &Snapshot{PlaylistID: "PLother"}); err != nil {
			t.Fatal(err)
		}
		_, err := store.Load("PL123")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Load() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("corrupt", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.json")
		os.WriteFile(path, []byte("{not json"), 0644)
		_, err := NewSnapshotStore(path).Load("PL123")
		if !errors.Is(err, ErrCorrupt) {
			t.Errorf("Load() error = %v, want ErrCorrupt", err)
		}
		var storErr *StorageError
		if !errors.As(err, &storErr) || storErr.Op != "read" {
			t.Errorf("Load() error = %#v, want read StorageError", err)
		}
	})
}

func TestStorageError(t *testing.T) {
	err := &StorageError{Op: "read", Entity: "snapshot", Path: "/tmp/x.json", Err: ErrNotFound}
	want := "storage: read snapshot /tmp/x.json: storage: not found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("StorageError should unwrap to ErrNotFound")
	}
}
