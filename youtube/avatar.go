package youtube

import (
	"context"
	"maps"

	"golang.org/x/exp/slog"
)

// DefaultAvatarURL is used when a channel avatar cannot be resolved.
const DefaultAvatarURL = "https://www.gstatic.com/youtube/img/creator/avatars/sample_avatar.png"

// ChannelLister resolves avatar URLs for a batch of channel ids.
type ChannelLister interface {
	ChannelAvatars(ctx context.Context, channelIDs []string) (map[string]string, error)
}

// AvatarCache memoizes channel avatar URLs for the lifetime of the value.
// It is not safe for concurrent use.
type AvatarCache struct {
	channels ChannelLister
	entries  map[string]string
	logger   *slog.Logger
}

// NewAvatarCache creates an empty cache. channels may be nil, in which case
// every miss resolves to DefaultAvatarURL.
func NewAvatarCache(channels ChannelLister, logger *slog.Logger) *AvatarCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &AvatarCache{
		channels: channels,
		entries:  map[string]string{},
		logger:   logger,
	}
}

// ChannelAvatar returns the avatar URL for a channel, calling the API on a
// miss. Failures return DefaultAvatarURL and are not cached.
func (c *AvatarCache) ChannelAvatar(ctx context.Context, channelID string) string {
	if channelID == "" {
		return DefaultAvatarURL
	}
	if url, ok := c.entries[channelID]; ok {
		return url
	}
	if c.channels == nil {
		return DefaultAvatarURL
	}

	found, err := c.channels.ChannelAvatars(ctx, []string{channelID})
	if err != nil {
		c.logger.Warn("channel avatar lookup failed",
			slog.String("channel", channelID),
			slog.String("err", err.Error()))
		return DefaultAvatarURL
	}
	url, ok := found[channelID]
	if !ok || url == "" {
		return DefaultAvatarURL
	}
	c.entries[channelID] = url
	return url
}

// Warm resolves every uncached channel in batches of BatchSize so that later
// ChannelAvatar calls are hits. Failed batches are left for ChannelAvatar.
func (c *AvatarCache) Warm(ctx context.Context, channelIDs []string) {
	if c.channels == nil {
		return
	}
	var missing []string
	for _, id := range uniqueIDs(channelIDs) {
		if _, ok := c.entries[id]; !ok {
			missing = append(missing, id)
		}
	}

	for start := 0; start < len(missing); start += BatchSize {
		batch := missing[start:min(start+BatchSize, len(missing))]
		found, err := c.channels.ChannelAvatars(ctx, batch)
		if err != nil {
			c.logger.Warn("channel avatar batch failed",
				slog.Int("count", len(batch)),
				slog.String("err", err.Error()))
			continue
		}
		for _, id := range batch {
			if url := found[id]; url != "" {
				c.entries[id] = url
			}
		}
	}
}

// Seed adds known avatars, for example from a snapshot.
func (c *AvatarCache) Seed(avatars map[string]string) {
	for id, url := range avatars {
		if id != "" && url != "" {
			c.entries[id] = url
		}
	}
}

// Entries returns a copy of the cached avatars.
func (c *AvatarCache) Entries() map[string]string {
	return maps.Clone(c.entries)
}

// Len returns the number of cached channels.
func (c *AvatarCache) Len() int { return len(c.entries) }
