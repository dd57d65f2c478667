package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var playlistIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{10,}$`)

// ParsePlaylistID accepts a bare playlist id or any YouTube URL carrying a
// list= parameter, such as https://www.youtube.com/playlist?list=PL...
func ParsePlaylistID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if playlistIDPattern.MatchString(s) {
		return s, nil
	}

	if strings.Contains(s, "list=") {
		if !strings.Contains(s, "://") {
			s = "https://" + s
		}
		u, err := url.Parse(s)
		if err == nil {
			if id := u.Query().Get("list"); playlistIDPattern.MatchString(id) {
				return id, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidPlaylistID, input)
}

// PlaylistURL returns the public URL of a playlist.
func PlaylistURL(playlistID string) string {
	return "https://www.youtube.com/playlist?list=" + playlistID
}
