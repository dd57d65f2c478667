package youtube

import (
	"context"
	"time"

	"golang.org/x/exp/slog"

	"ytbucket/internal/retry"
)

// VideoLister resolves full metadata for a batch of video ids.
type VideoLister interface {
	Videos(ctx context.Context, ids []string) ([]VideoDetail, error)
}

// Resolver fetches video details in batches of BatchSize ids.
type Resolver struct {
	videos VideoLister
	retry  retry.Config
	logger *slog.Logger
}

// NewResolver creates a Resolver sharing the retry policy of the Fetcher.
func NewResolver(videos VideoLister, cfg retry.Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		videos: videos,
		retry:  cfg,
		logger: logger,
	}
}

// ResolveDetails returns the details of every id the upstream knows about.
// A batch that fails on every attempt is skipped: its ids are simply absent
// from the result and callers substitute defaults.
func (r *Resolver) ResolveDetails(ctx context.Context, videoIDs []string) map[string]VideoDetail {
	ids := uniqueIDs(videoIDs)
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	details := make(map[string]VideoDetail, len(ids))
	for start := 0; start < len(ids); start += BatchSize {
		end := min(start+BatchSize, len(ids))
		batch := ids[start:end]

		cfg := r.retry
		cfg.OnRetry = func(attempt int, wait time.Duration, err error) {
			r.logger.Warn("video batch failed, retrying",
				slog.Int("offset", start),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.String("err", err.Error()))
		}

		var found []VideoDetail
		err := retry.Do(ctx, cfg, nil, func(ctx context.Context) error {
			res, err := r.videos.Videos(ctx, batch)
			if err != nil {
				return err
			}
			found = res
			return nil
		})
		if err != nil {
			r.logger.Warn("video details unavailable, rows fall back to defaults",
				slog.Int("offset", start),
				slog.Int("count", len(batch)),
				slog.String("err", err.Error()))
			continue
		}

		for _, d := range found {
			if wanted[d.VideoID] {
				details[d.VideoID] = d
			}
		}
	}

	r.logger.Info("resolved video details",
		slog.Int("requested", len(ids)),
		slog.Int("resolved", len(details)))
	return details
}

// uniqueIDs drops empty and repeated ids, keeping first occurrences in order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
