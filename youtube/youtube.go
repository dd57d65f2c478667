// Package youtube fetches playlist contents and video details from the
// YouTube Data API v3.
package youtube

import (
	"errors"
	"fmt"
)

// PageSize is the number of playlist items requested per page. It is the
// maximum the Data API accepts.
const PageSize = 50

// BatchSize is the maximum number of ids sent in one videos.list or
// channels.list call.
const BatchSize = 50

// Sentinel errors for playlist operations.
var (
	ErrFetchExhausted    = errors.New("youtube: playlist fetch retries exhausted")
	ErrInvalidPlaylistID = errors.New("youtube: invalid playlist id")
	ErrNoAPIKey          = errors.New("youtube: api key required")
)

// PlaylistItemStub identifies a video's membership in a playlist.
type PlaylistItemStub struct {
	// ItemID is the playlist item id (distinct from the video id).
	ItemID string `json:"item_id"`
	// VideoID is the YouTube video id (e.g., "dQw4w9WgXcQ").
	VideoID string `json:"video_id"`
}

// VideoDetail is the metadata resolved for a single video.
type VideoDetail struct {
	VideoID      string   `json:"video_id"`
	Title        string   `json:"title"`
	ChannelName  string   `json:"channel_name"`
	ChannelID    string   `json:"channel_id"`
	PublishedAt  string   `json:"published_at"`
	DurationISO  string   `json:"duration_iso"`
	ViewCount    uint64   `json:"view_count"`
	LikeCount    uint64   `json:"like_count"`
	CommentCount uint64   `json:"comment_count"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	ThumbnailURL string   `json:"thumbnail_url"`
}

// PlaylistPage is one page of a playlistItems listing.
type PlaylistPage struct {
	Items         []PlaylistItemStub
	NextPageToken string
}

// VideoURL returns the watch URL for a video id.
func VideoURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// FetchError reports a playlist fetch that gave up on a page after every
// attempt failed. It matches ErrFetchExhausted with errors.Is:
//
//	var fetchErr *youtube.FetchError
//	if errors.As(err, &fetchErr) {
//		fmt.Printf("page %d failed %d times\n", fetchErr.Page, fetchErr.Attempts)
//	}
type FetchError struct {
	// PlaylistID is the playlist being listed.
	PlaylistID string
	// Page is the 1-based page number that could not be retrieved.
	Page int
	// Attempts is how many calls were made for that page.
	Attempts int
	// Err is the last failure.
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("youtube: playlist %s page %d: gave up after %d attempts: %v", e.PlaylistID, e.Page, e.Attempts, e.Err)
}

// Unwrap returns the last failure.
func (e *FetchError) Unwrap() error { return e.Err }

// Is reports whether target is ErrFetchExhausted.
func (e *FetchError) Is(target error) bool { return target == ErrFetchExhausted }
