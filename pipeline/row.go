package pipeline

import (
	"fmt"
	"strconv"

	"ytbucket/duration"
)

// Column names one field of a Row in sink output.
type Column string

// Row columns. The string values are the header labels written by sinks.
const (
	ColumnChannelAvatar    Column = "channelAvatar"
	ColumnTitle            Column = "title"
	ColumnLink             Column = "link"
	ColumnChannel          Column = "channel"
	ColumnPublishedAt      Column = "publishedAt"
	ColumnDuration         Column = "duration"
	ColumnViews            Column = "views"
	ColumnLikes            Column = "likes"
	ColumnComments         Column = "comments"
	ColumnShortDescription Column = "shortDescription"
	ColumnTags             Column = "tags"
	ColumnCategory         Column = "category"
	ColumnThumbnail        Column = "thumbnail"
)

// DefaultColumns is the canonical 13-column layout.
var DefaultColumns = []Column{
	ColumnChannelAvatar,
	ColumnTitle,
	ColumnLink,
	ColumnChannel,
	ColumnPublishedAt,
	ColumnDuration,
	ColumnViews,
	ColumnLikes,
	ColumnComments,
	ColumnShortDescription,
	ColumnTags,
	ColumnCategory,
	ColumnThumbnail,
}

func (c Column) valid() bool {
	for _, known := range DefaultColumns {
		if c == known {
			return true
		}
	}
	return false
}

// ParseColumns converts header labels to columns. An empty list yields
// DefaultColumns.
func ParseColumns(names []string) ([]Column, error) {
	if len(names) == 0 {
		return append([]Column(nil), DefaultColumns...), nil
	}
	cols := make([]Column, 0, len(names))
	seen := make(map[Column]bool, len(names))
	for _, name := range names {
		c := Column(name)
		if !c.valid() {
			return nil, fmt.Errorf("pipeline: unknown column %q", name)
		}
		if seen[c] {
			return nil, fmt.Errorf("pipeline: duplicate column %q", name)
		}
		seen[c] = true
		cols = append(cols, c)
	}
	return cols, nil
}

// Headers returns the header labels for columns.
func Headers(columns []Column) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = string(c)
	}
	return out
}

// Row is one aggregated video.
type Row struct {
	VideoID          string          `json:"videoId"`
	ChannelAvatar    string          `json:"channelAvatar"`
	Title            string          `json:"title"`
	Link             string          `json:"link"`
	Channel          string          `json:"channel"`
	PublishedAt      string          `json:"publishedAt"`
	Duration         string          `json:"duration"`
	Views            uint64          `json:"views"`
	Likes            uint64          `json:"likes"`
	Comments         uint64          `json:"comments"`
	ShortDescription string          `json:"shortDescription"`
	Tags             string          `json:"tags"`
	Category         duration.Bucket `json:"category"`
	Thumbnail        string          `json:"thumbnail"`
}

// Value returns the cell for a single column.
func (r Row) Value(c Column) string {
	switch c {
	case ColumnChannelAvatar:
		return r.ChannelAvatar
	case ColumnTitle:
		return r.Title
	case ColumnLink:
		return r.Link
	case ColumnChannel:
		return r.Channel
	case ColumnPublishedAt:
		return r.PublishedAt
	case ColumnDuration:
		return r.Duration
	case ColumnViews:
		return strconv.FormatUint(r.Views, 10)
	case ColumnLikes:
		return strconv.FormatUint(r.Likes, 10)
	case ColumnComments:
		return strconv.FormatUint(r.Comments, 10)
	case ColumnShortDescription:
		return r.ShortDescription
	case ColumnTags:
		return r.Tags
	case ColumnCategory:
		return string(r.Category)
	case ColumnThumbnail:
		return r.Thumbnail
	}
	return ""
}

// Values flattens the row in column order.
func (r Row) Values(columns []Column) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = r.Value(c)
	}
	return out
}

// Index groups rows by duration bucket. Every bucket is present.
type Index map[duration.Bucket][]Row

// NewIndex returns an Index holding an empty list for every bucket.
func NewIndex() Index {
	idx := make(Index, len(duration.Buckets()))
	for _, b := range duration.Buckets() {
		idx[b] = []Row{}
	}
	return idx
}

// Len returns the total number of rows across buckets.
func (idx Index) Len() int {
	n := 0
	for _, rows := range idx {
		n += len(rows)
	}
	return n
}
