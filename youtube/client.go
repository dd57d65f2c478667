package youtube

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/exp/slog"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	ythttp "ytbucket/http"
)

// DefaultRequestTimeout bounds every Data API call.
const DefaultRequestTimeout = 10 * time.Second

// ClientOptions configures an APIClient.
type ClientOptions struct {
	// APIKey is the Data API key. Required.
	APIKey string
	// Timeout bounds a single HTTP request. Defaults to DefaultRequestTimeout.
	Timeout time.Duration
	// RequestsPerSecond paces outgoing calls. Zero means unlimited.
	RequestsPerSecond float64
	// Endpoint overrides the API base URL (tests).
	Endpoint string
	// Transport overrides the underlying HTTP transport. Pacing still applies.
	Transport http.RoundTripper
	// Logger receives rate limit warnings. Optional.
	Logger *slog.Logger
}

// APIClient implements PlaylistPager, VideoLister and ChannelLister on top of
// the generated Data API v3 client.
type APIClient struct {
	service *youtube.Service
}

// NewAPIClient creates a Data API client authenticated with an API key.
func NewAPIClient(ctx context.Context, opts ClientOptions) (*APIClient, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	cfg := ythttp.DefaultTransportConfig()
	cfg.RateLimiter.DefaultRPS = opts.RequestsPerSecond
	paced := ythttp.NewTransport(cfg, opts.Logger)
	if opts.Transport != nil {
		paced.Base = opts.Transport
	}

	// A custom http.Client bypasses option.WithAPIKey, so the key is attached
	// by the transport instead.
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: &transport.APIKey{Key: opts.APIKey, Transport: paced},
	}
	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	service, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	return &APIClient{service: service}, nil
}

// PlaylistItemsPage fetches one page of playlist items.
func (c *APIClient) PlaylistItemsPage(ctx context.Context, playlistID, pageToken string, pageSize int64) (*PlaylistPage, error) {
	call := c.service.PlaylistItems.List([]string{"id", "snippet", "contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(pageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("playlistItems.list: %w", err)
	}

	page := &PlaylistPage{
		Items:         make([]PlaylistItemStub, 0, len(resp.Items)),
		NextPageToken: resp.NextPageToken,
	}
	for _, item := range resp.Items {
		stub := PlaylistItemStub{ItemID: item.Id}
		switch {
		case item.ContentDetails != nil && item.ContentDetails.VideoId != "":
			stub.VideoID = item.ContentDetails.VideoId
		case item.Snippet != nil && item.Snippet.ResourceId != nil:
			stub.VideoID = item.Snippet.ResourceId.VideoId
		}
		page.Items = append(page.Items, stub)
	}

	return page, nil
}

// Videos fetches snippet, contentDetails and statistics for up to BatchSize ids.
func (c *APIClient) Videos(ctx context.Context, ids []string) ([]VideoDetail, error) {
	resp, err := c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(strings.Join(ids, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("videos.list: %w", err)
	}

	details := make([]VideoDetail, 0, len(resp.Items))
	for _, item := range resp.Items {
		d := VideoDetail{VideoID: item.Id}
		if s := item.Snippet; s != nil {
			d.Title = s.Title
			d.ChannelName = s.ChannelTitle
			d.ChannelID = s.ChannelId
			d.PublishedAt = s.PublishedAt
			d.Description = s.Description
			d.Tags = s.Tags
			d.ThumbnailURL = bestThumbnail(s.Thumbnails)
		}
		if item.ContentDetails != nil {
			d.DurationISO = item.ContentDetails.Duration
		}
		if st := item.Statistics; st != nil {
			d.ViewCount = st.ViewCount
			d.LikeCount = st.LikeCount
			d.CommentCount = st.CommentCount
		}
		details = append(details, d)
	}

	return details, nil
}

// ChannelAvatars returns the default-size avatar URL of each channel found.
func (c *APIClient) ChannelAvatars(ctx context.Context, channelIDs []string) (map[string]string, error) {
	resp, err := c.service.Channels.List([]string{"snippet"}).
		Id(strings.Join(channelIDs, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("channels.list: %w", err)
	}

	avatars := make(map[string]string, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Snippet.Thumbnails == nil || item.Snippet.Thumbnails.Default == nil {
			continue
		}
		if url := item.Snippet.Thumbnails.Default.Url; url != "" {
			avatars[item.Id] = url
		}
	}
	return avatars, nil
}

// bestThumbnail picks the largest commonly available thumbnail.
func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.High, t.Medium, t.Default, t.Standard, t.Maxres} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
