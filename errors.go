package ytbucket

import (
	"ytbucket/internal/retry"
	"ytbucket/internal/storage"
	"ytbucket/sink"
	"ytbucket/youtube"
)

// Errors re-exported for library users.
//
//	var fetchErr *ytbucket.FetchError
//	if errors.As(err, &fetchErr) {
//		fmt.Printf("page %d of %s failed\n", fetchErr.Page, fetchErr.PlaylistID)
//	}
var (
	// ErrFetchExhausted reports a playlist page that failed every attempt.
	ErrFetchExhausted = youtube.ErrFetchExhausted
	// ErrInvalidPlaylistID reports an unparseable playlist id or URL.
	ErrInvalidPlaylistID = youtube.ErrInvalidPlaylistID
	// ErrNoAPIKey reports a missing Data API key.
	ErrNoAPIKey = youtube.ErrNoAPIKey
	// ErrNoSnapshot reports an offline run without a cached fetch.
	ErrNoSnapshot = storage.ErrNotFound
	// ErrInvalidSpreadsheetID reports an unparseable spreadsheet id or URL.
	ErrInvalidSpreadsheetID = sink.ErrInvalidSpreadsheetID
)

type (
	// FetchError carries the playlist, page and attempt count of a failed fetch.
	FetchError = youtube.FetchError
	// ExhaustedError is returned by retry.Do after the last attempt fails.
	ExhaustedError = retry.ExhaustedError
	// StorageError wraps snapshot and file failures.
	StorageError = storage.StorageError
)
