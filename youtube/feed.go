package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/exp/slog"

	"ytbucket/internal/retry"
)

const playlistFeedURL = "https://www.youtube.com/feeds/videos.xml?playlist_id="

// FeedSource reads a playlist's public Atom feed. It needs no API key but
// only sees the most recent entries and carries no durations, likes or
// comment counts.
type FeedSource struct {
	// BaseURL is the feed URL prefix; the playlist id is appended.
	BaseURL string
	parser  *gofeed.Parser
	retry   retry.Config
	logger  *slog.Logger
}

// NewFeedSource creates a FeedSource using client for HTTP (nil for the
// default). The feed is a single page retried under cfg.
func NewFeedSource(client *http.Client, cfg retry.Config, logger *slog.Logger) *FeedSource {
	parser := gofeed.NewParser()
	if client != nil {
		parser.Client = client
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedSource{
		BaseURL: playlistFeedURL,
		parser:  parser,
		retry:   cfg,
		logger:  logger,
	}
}

// Fetch returns the playlist stubs found in the feed along with the partial
// details the feed exposes. A feed that fails on every attempt returns a
// *FetchError for page 1.
func (s *FeedSource) Fetch(ctx context.Context, playlistID string) ([]PlaylistItemStub, map[string]VideoDetail, error) {
	var feed *gofeed.Feed

	cfg := s.retry
	cfg.OnRetry = func(attempt int, wait time.Duration, err error) {
		s.logger.Warn("playlist feed failed, retrying",
			slog.String("playlist", playlistID),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("err", err.Error()))
	}

	err := retry.Do(ctx, cfg, nil, func(ctx context.Context) error {
		f, err := s.parser.ParseURLWithContext(s.BaseURL+playlistID, ctx)
		if err != nil {
			return err
		}
		feed = f
		return nil
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			s.logger.Error("all attempts failed for playlist feed",
				slog.String("playlist", playlistID),
				slog.Int("attempts", exhausted.Attempts))
			return nil, nil, &FetchError{
				PlaylistID: playlistID,
				Page:       1,
				Attempts:   exhausted.Attempts,
				Err:        exhausted.Err,
			}
		}
		return nil, nil, fmt.Errorf("youtube: playlist feed %s: %w", playlistID, err)
	}

	stubs := make([]PlaylistItemStub, 0, len(feed.Items))
	details := make(map[string]VideoDetail, len(feed.Items))
	for _, item := range feed.Items {
		videoID := extValue(item, "yt", "videoId")
		if videoID == "" {
			videoID = strings.TrimPrefix(item.GUID, "yt:video:")
		}
		if videoID == "" {
			continue
		}

		stubs = append(stubs, PlaylistItemStub{ItemID: item.GUID, VideoID: videoID})

		d := VideoDetail{
			VideoID:     videoID,
			Title:       item.Title,
			ChannelID:   extValue(item, "yt", "channelId"),
			PublishedAt: item.Published,
			Description: mediaValue(item, "description"),
		}
		if len(item.Authors) > 0 && item.Authors[0] != nil {
			d.ChannelName = item.Authors[0].Name
		}
		d.ThumbnailURL = mediaAttr(item, "thumbnail", "url")
		if views := mediaStatistic(item, "views"); views != "" {
			if n, err := strconv.ParseUint(views, 10, 64); err == nil {
				d.ViewCount = n
			}
		}
		details[videoID] = d
	}

	s.logger.Info("read playlist feed",
		slog.String("playlist", playlistID),
		slog.Int("count", len(stubs)))
	return stubs, details, nil
}

func extValue(item *gofeed.Item, prefix, name string) string {
	if item.Extensions == nil {
		return ""
	}
	exts := item.Extensions[prefix][name]
	if len(exts) == 0 {
		return ""
	}
	return strings.TrimSpace(exts[0].Value)
}

// mediaValue reads a direct child of <media:group>.
func mediaValue(item *gofeed.Item, name string) string {
	groups := item.Extensions["media"]["group"]
	if len(groups) == 0 {
		return ""
	}
	children := groups[0].Children[name]
	if len(children) == 0 {
		return ""
	}
	return strings.TrimSpace(children[0].Value)
}

func mediaAttr(item *gofeed.Item, name, attr string) string {
	groups := item.Extensions["media"]["group"]
	if len(groups) == 0 {
		return ""
	}
	children := groups[0].Children[name]
	if len(children) == 0 {
		return ""
	}
	return children[0].Attrs[attr]
}

// mediaStatistic reads <media:group><media:community><media:statistics name="...">.
func mediaStatistic(item *gofeed.Item, attr string) string {
	groups := item.Extensions["media"]["group"]
	if len(groups) == 0 {
		return ""
	}
	community := groups[0].Children["community"]
	if len(community) == 0 {
		return ""
	}
	stats := community[0].Children["statistics"]
	if len(stats) == 0 {
		return ""
	}
	return stats[0].Attrs[attr]
}
