package youtube

import (
	"context"
	"errors"
	"testing"
)

type fakeChannels struct {
	avatars map[string]string
	err     error
	calls   [][]string
}

func (f *fakeChannels) ChannelAvatars(ctx context.Context, ids []string) (map[string]string, error) {
	f.calls = append(f.calls, append([]string(nil), ids...))
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]string{}
	for _, id := range ids {
		if url, ok := f.avatars[id]; ok {
			out[id] = url
		}
	}
	return out, nil
}

func TestAvatarCache_MemoizesHits(t *testing.T) {
	channels := &fakeChannels{avatars: map[string]string{"abc": "http://example.com/avatar.jpg"}}
	cache := NewAvatarCache(channels, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if got := cache.ChannelAvatar(ctx, "abc"); got != "http://example.com/avatar.jpg" {
			t.Fatalf("ChannelAvatar() = %q", got)
		}
	}
	if len(channels.calls) != 1 {
		t.Errorf("ChannelAvatars called %d times, want 1", len(channels.calls))
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cache.Len())
	}
}

func TestAvatarCache_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		channels ChannelLister
		id       string
	}{
		{"lookup error", &fakeChannels{err: errors.New("boom")}, "abc"},
		{"channel not found", &fakeChannels{avatars: map[string]string{}}, "abc"},
		{"empty id", &fakeChannels{}, ""},
		{"offline", nil, "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewAvatarCache(tt.channels, testLogger())
			if got := cache.ChannelAvatar(context.Background(), tt.id); got != DefaultAvatarURL {
				t.Errorf("ChannelAvatar() = %q, want default", got)
			}
			if cache.Len() != 0 {
				t.Errorf("failed lookup was cached")
			}
		})
	}
}

func TestAvatarCache_Warm(t *testing.T) {
	channels := &fakeChannels{avatars: map[string]string{}}
	ids := idRange("UC", 75)
	for _, id := range ids {
		channels.avatars[id] = "http://img/" + id
	}
	cache := NewAvatarCache(channels, testLogger())
	cache.Seed(map[string]string{"UC000": "http://seeded"})

	cache.Warm(context.Background(), append(ids, ids[:10]...))

	if len(channels.calls) != 2 {
		t.Fatalf("ChannelAvatars called %d times, want 2", len(channels.calls))
	}
	if len(channels.calls[0]) != 50 || len(channels.calls[1]) != 24 {
		t.Errorf("batch sizes = %d, %d, want 50, 24", len(channels.calls[0]), len(channels.calls[1]))
	}
	if got := cache.ChannelAvatar(context.Background(), "UC000"); got != "http://seeded" {
		t.Errorf("seeded entry overwritten: %q", got)
	}
	if got := cache.ChannelAvatar(context.Background(), "UC074"); got != "http://img/UC074" {
		t.Errorf("ChannelAvatar(UC074) = %q", got)
	}
	if len(channels.calls) != 2 {
		t.Errorf("warm cache still calls the API")
	}

	entries := cache.Entries()
	entries["UC001"] = "mutated"
	if cache.ChannelAvatar(context.Background(), "UC001") == "mutated" {
		t.Error("Entries() returned internal map")
	}
}
