package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// IsRateLimited reports whether a response signals rate limiting. Google
// returns 429 or 503, and sometimes 403 with rate limit headers when a quota
// is spent.
func IsRateLimited(statusCode int, header http.Header) bool {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	case http.StatusForbidden:
		return hasRateLimitHeaders(header)
	}
	return false
}

func hasRateLimitHeaders(header http.Header) bool {
	if header.Get("Retry-After") != "" {
		return true
	}
	if header.Get("X-RateLimit-Remaining") == "0" {
		return true
	}
	return header.Get("X-RateLimit-Reset") != ""
}

// RetryAfter extracts the wait a server asked for. It understands integer
// seconds and HTTP dates in Retry-After, then X-RateLimit-Reset and
// X-RateLimit-Wait in seconds. It returns zero when no usable header is set.
func RetryAfter(header http.Header, now time.Time) time.Duration {
	if v := strings.TrimSpace(header.Get("Retry-After")); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := at.Sub(now); d > 0 {
				return d
			}
		}
	}
	for _, h := range []string{"X-RateLimit-Reset", "X-RateLimit-Wait"} {
		if v := strings.TrimSpace(header.Get(h)); v != "" {
			if secs, err := strconv.ParseInt(v, 10, 64); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return 0
}
