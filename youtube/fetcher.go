package youtube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"ytbucket/internal/retry"
)

// PlaylistPager lists one page of a playlist.
type PlaylistPager interface {
	PlaylistItemsPage(ctx context.Context, playlistID, pageToken string, pageSize int64) (*PlaylistPage, error)
}

// Fetcher walks a playlist's continuation chain, retrying each page.
type Fetcher struct {
	pager  PlaylistPager
	retry  retry.Config
	logger *slog.Logger
}

// NewFetcher creates a Fetcher. cfg.MaxAttempts bounds the calls made for a
// single page.
func NewFetcher(pager PlaylistPager, cfg retry.Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		pager:  pager,
		retry:  cfg,
		logger: logger,
	}
}

// FetchAllPlaylistItems returns every item of the playlist in playlist order.
// If a page fails on every attempt the whole fetch fails with a *FetchError
// (errors.Is(err, ErrFetchExhausted)) and no items are returned.
func (f *Fetcher) FetchAllPlaylistItems(ctx context.Context, playlistID string) ([]PlaylistItemStub, error) {
	var items []PlaylistItemStub
	seen := map[string]bool{}
	token := ""

	for page := 1; ; page++ {
		var resp *PlaylistPage

		cfg := f.retry
		cfg.OnRetry = func(attempt int, wait time.Duration, err error) {
			f.logger.Warn("playlist page failed, retrying",
				slog.String("playlist", playlistID),
				slog.Int("page", page),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.String("err", err.Error()))
		}

		err := retry.Do(ctx, cfg, nil, func(ctx context.Context) error {
			r, err := f.pager.PlaylistItemsPage(ctx, playlistID, token, PageSize)
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
		if err != nil {
			var exhausted *retry.ExhaustedError
			if errors.As(err, &exhausted) {
				f.logger.Error("all attempts failed for playlist page",
					slog.String("playlist", playlistID),
					slog.Int("page", page),
					slog.Int("attempts", exhausted.Attempts))
				return nil, &FetchError{
					PlaylistID: playlistID,
					Page:       page,
					Attempts:   exhausted.Attempts,
					Err:        exhausted.Err,
				}
			}
			return nil, fmt.Errorf("youtube: playlist %s page %d: %w", playlistID, page, err)
		}

		items = append(items, resp.Items...)
		f.logger.Debug("fetched playlist page",
			slog.String("playlist", playlistID),
			slog.Int("page", page),
			slog.Int("count", len(resp.Items)))

		token = resp.NextPageToken
		if token == "" {
			break
		}
		if seen[token] {
			f.logger.Warn("playlist page token repeated, stopping",
				slog.String("playlist", playlistID),
				slog.String("token", token))
			break
		}
		seen[token] = true
	}

	f.logger.Info("fetched playlist",
		slog.String("playlist", playlistID),
		slog.Int("count", len(items)))
	return items, nil
}
