// Package pipeline merges playlist items with their resolved details into
// duration buckets and a flat, playlist-ordered row list.
package pipeline

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/exp/slog"

	"ytbucket/duration"
	"ytbucket/youtube"
)

// Placeholder is used for text fields of videos whose details could not be
// resolved.
const Placeholder = "Inconnu"

// DefaultDetail supplies every field of a video whose lookup failed.
// Its empty timestamp and duration degrade to "" and the unknown bucket.
var DefaultDetail = youtube.VideoDetail{
	Title:       Placeholder,
	ChannelName: Placeholder,
	Description: Placeholder,
}

// publishedLayout keeps the leading apostrophe so spreadsheets store the
// value as text.
const publishedLayout = "'02/01/2006 15:04"

// AvatarSource resolves a channel's avatar URL. Implementations return a
// fallback URL rather than failing.
type AvatarSource interface {
	ChannelAvatar(ctx context.Context, channelID string) string
}

// Options tunes row construction.
type Options struct {
	// Columns is the sink layout. Defaults to DefaultColumns.
	Columns []Column
	// DescriptionLimit truncates descriptions to this many runes. Zero keeps
	// the full text.
	DescriptionLimit int
}

// Pipeline aggregates fetched items into rows.
type Pipeline struct {
	avatars AvatarSource
	opts    Options
	logger  *slog.Logger
}

// New creates a Pipeline. avatars may be nil, in which case every row gets
// youtube.DefaultAvatarURL.
func New(avatars AvatarSource, opts Options, logger *slog.Logger) *Pipeline {
	if len(opts.Columns) == 0 {
		opts.Columns = append([]Column(nil), DefaultColumns...)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{avatars: avatars, opts: opts, logger: logger}
}

// Columns returns the configured layout.
func (p *Pipeline) Columns() []Column {
	return append([]Column(nil), p.opts.Columns...)
}

// Aggregate builds one row per item, in playlist order, and files each row
// under its duration bucket. Items with no entry in details get
// DefaultDetail.
func (p *Pipeline) Aggregate(ctx context.Context, items []youtube.PlaylistItemStub, details map[string]youtube.VideoDetail) (Index, []Row) {
	idx := NewIndex()
	rows := make([]Row, 0, len(items))
	missing := 0

	for _, item := range items {
		detail, ok := lookup(details, item.VideoID)
		if !ok {
			missing++
		}
		row := p.row(ctx, item.VideoID, detail)
		idx[row.Category] = append(idx[row.Category], row)
		rows = append(rows, row)
	}

	p.logger.Debug("aggregated playlist",
		slog.Int("count", len(rows)),
		slog.Int("missing", missing))
	return idx, rows
}

// lookup returns the resolved detail for id, or DefaultDetail.
func lookup(details map[string]youtube.VideoDetail, id string) (youtube.VideoDetail, bool) {
	d, ok := details[id]
	if !ok {
		d = DefaultDetail
		d.Tags = nil
	}
	d.VideoID = id
	return d, ok
}

func (p *Pipeline) row(ctx context.Context, videoID string, d youtube.VideoDetail) Row {
	clock := duration.Parse(d.DurationISO)
	return Row{
		VideoID:          videoID,
		ChannelAvatar:    p.avatar(ctx, d.ChannelID),
		Title:            d.Title,
		Link:             youtube.VideoURL(videoID),
		Channel:          d.ChannelName,
		PublishedAt:      FormatPublishedAt(d.PublishedAt),
		Duration:         clock,
		Views:            d.ViewCount,
		Likes:            d.LikeCount,
		Comments:         d.CommentCount,
		ShortDescription: truncate(d.Description, p.opts.DescriptionLimit),
		Tags:             strings.Join(d.Tags, ", "),
		Category:         duration.Classify(clock),
		Thumbnail:        d.ThumbnailURL,
	}
}

func (p *Pipeline) avatar(ctx context.Context, channelID string) string {
	if p.avatars == nil {
		return youtube.DefaultAvatarURL
	}
	return p.avatars.ChannelAvatar(ctx, channelID)
}

// FormatPublishedAt renders an RFC 3339 timestamp as 'dd/mm/yyyy HH:MM in
// UTC. Malformed input yields "".
func FormatPublishedAt(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ""
	}
	return t.UTC().Format(publishedLayout)
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
