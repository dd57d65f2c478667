package ytbucket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"ytbucket/duration"
	"ytbucket/internal/storage"
	"ytbucket/pipeline"
	"ytbucket/sink"
	"ytbucket/youtube"
)

// Source yields a playlist's items and whatever details it can resolve.
// Items without an entry in the detail map are still aggregated.
type Source interface {
	Fetch(ctx context.Context, playlistID string) ([]youtube.PlaylistItemStub, map[string]youtube.VideoDetail, error)
}

// PlaylistFetcher lists every item of a playlist.
type PlaylistFetcher interface {
	FetchAllPlaylistItems(ctx context.Context, playlistID string) ([]youtube.PlaylistItemStub, error)
}

// DetailResolver resolves video details in batches.
type DetailResolver interface {
	ResolveDetails(ctx context.Context, videoIDs []string) map[string]youtube.VideoDetail
}

// APISource reads a playlist through the Data API.
type APISource struct {
	Fetcher  PlaylistFetcher
	Resolver DetailResolver
}

// Fetch lists the playlist, then resolves details for its videos. A
// listing failure is returned as is so that ErrFetchExhausted survives.
func (s *APISource) Fetch(ctx context.Context, playlistID string) ([]youtube.PlaylistItemStub, map[string]youtube.VideoDetail, error) {
	items, err := s.Fetcher.FetchAllPlaylistItems(ctx, playlistID)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.VideoID
	}
	return items, s.Resolver.ResolveDetails(ctx, ids), nil
}

// SnapshotSource replays the last saved fetch without network access.
type SnapshotSource struct {
	Store *storage.SnapshotStore
	// Avatars, when set, is seeded with the snapshot's avatar URLs.
	Avatars *youtube.AvatarCache
}

func (s *SnapshotSource) Fetch(ctx context.Context, playlistID string) ([]youtube.PlaylistItemStub, map[string]youtube.VideoDetail, error) {
	snap, err := s.Store.Load(playlistID)
	if err != nil {
		return nil, nil, err
	}
	if s.Avatars != nil {
		s.Avatars.Seed(snap.Avatars)
	}
	return snap.Items, snap.Details, nil
}

// Syncer runs one playlist through a Source, the aggregation pipeline and
// every sink.
type Syncer struct {
	Source Source
	// Avatars resolves channel avatars. Nil gives every row the default avatar.
	Avatars *youtube.AvatarCache
	// Options configures row construction.
	Options pipeline.Options
	// Snapshots, when set, receives the raw fetch after every online run and
	// seeds the avatar cache before it.
	Snapshots *storage.SnapshotStore
	Sinks     []sink.Sink
	Logger    *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Run syncs the playlist identified by playlist, which may be a bare id or a
// playlist URL. The aggregated table is returned even when a sink fails.
// A fetch failure returns before any sink is called.
func (s *Syncer) Run(ctx context.Context, playlist string) (*sink.Table, error) {
	playlistID, err := youtube.ParsePlaylistID(playlist)
	if err != nil {
		return nil, err
	}
	logger := s.logger().With(slog.String("playlist", playlistID))
	start := s.now()

	_, offline := s.Source.(*SnapshotSource)
	if s.Snapshots != nil && s.Avatars != nil && !offline {
		s.seedAvatars(playlistID, logger)
	}

	items, details, err := s.Source.Fetch(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist %s: %w", playlistID, err)
	}
	logger.Info("playlist fetched",
		slog.Int("items", len(items)),
		slog.Int("details", len(details)))

	if s.Avatars != nil {
		s.Avatars.Warm(ctx, channelIDs(details))
	}

	var avatars pipeline.AvatarSource
	if s.Avatars != nil {
		avatars = s.Avatars
	}
	p := pipeline.New(avatars, s.Options, logger)
	idx, rows := p.Aggregate(ctx, items, details)

	table := &sink.Table{
		RunID:       uuid.NewString(),
		PlaylistID:  playlistID,
		GeneratedAt: start.UTC(),
		Columns:     p.Columns(),
		Index:       idx,
		Rows:        rows,
	}

	if s.Snapshots != nil && !offline {
		snap := &storage.Snapshot{
			PlaylistID: playlistID,
			FetchedAt:  table.GeneratedAt,
			Items:      items,
			Details:    details,
		}
		if s.Avatars != nil {
			snap.Avatars = s.Avatars.Entries()
		}
		if err := s.Snapshots.Save(ctx, snap); err != nil {
			logger.Warn("could not save snapshot", slog.String("err", err.Error()))
		}
	}

	err = sink.WriteAll(ctx, s.Sinks, table, logger)
	logger.Info("sync finished",
		slog.String("run", table.RunID),
		slog.Int("rows", len(rows)),
		slog.Int("unknown", len(idx[duration.BucketUnknown])),
		slog.Duration("elapsed", s.now().Sub(start)))
	return table, err
}

func (s *Syncer) seedAvatars(playlistID string, logger *slog.Logger) {
	snap, err := s.Snapshots.Load(playlistID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("ignoring unreadable snapshot", slog.String("err", err.Error()))
		}
		return
	}
	s.Avatars.Seed(snap.Avatars)
	logger.Debug("avatar cache seeded", slog.Int("count", len(snap.Avatars)))
}

func (s *Syncer) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Syncer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func channelIDs(details map[string]youtube.VideoDetail) []string {
	ids := make([]string, 0, len(details))
	for _, d := range details {
		if d.ChannelID != "" {
			ids = append(ids, d.ChannelID)
		}
	}
	return ids
}
