package http

import (
	"net/http"
	"time"

	"golang.org/x/exp/slog"
)

// DefaultUserAgent is sent when a request carries no User-Agent.
const DefaultUserAgent = "ytbucket/1.0"

// TransportConfig configures a Transport.
type TransportConfig struct {
	// UserAgent defaults to DefaultUserAgent.
	UserAgent string
	// RateLimiter paces requests per host.
	RateLimiter RateLimiterConfig

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	ForceAttemptHTTP2   bool
}

// DefaultTransportConfig returns pooled connection defaults with unlimited
// pacing.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		UserAgent:           DefaultUserAgent,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
}

// Transport is an http.RoundTripper that paces requests per host and backs
// off after rate limit responses. It never retries; responses are returned
// to the caller unchanged.
type Transport struct {
	// Base performs the request. Defaults to a pooled *http.Transport.
	Base      http.RoundTripper
	Limiter   *RateLimiter
	UserAgent string
	Logger    *slog.Logger
}

// NewTransport creates a Transport from cfg.
func NewTransport(cfg TransportConfig, logger *slog.Logger) *Transport {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	return &Transport{
		Base: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			MaxConnsPerHost:     cfg.MaxConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
			ForceAttemptHTTP2:   cfg.ForceAttemptHTTP2,
		},
		Limiter:   NewRateLimiter(cfg.RateLimiter),
		UserAgent: cfg.UserAgent,
		Logger:    logger,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	urlStr := req.URL.String()
	if err := t.Limiter.Wait(req.Context(), urlStr); err != nil {
		return nil, err
	}

	if req.Header.Get("User-Agent") == "" && t.UserAgent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.UserAgent)
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	switch {
	case IsRateLimited(resp.StatusCode, resp.Header):
		wait := t.Limiter.RecordRateLimitError(urlStr, RetryAfter(resp.Header, time.Now()))
		if t.Logger != nil {
			t.Logger.Warn("rate limited",
				slog.String("host", req.URL.Host),
				slog.Int("status", resp.StatusCode),
				slog.Duration("backoff", wait))
		}
	case resp.StatusCode < http.StatusBadRequest:
		t.Limiter.RecordSuccess(urlStr)
	}
	return resp, nil
}

// Client returns an *http.Client using t with the given overall timeout.
func (t *Transport) Client(timeout time.Duration) *http.Client {
	return &http.Client{Transport: t, Timeout: timeout}
}
