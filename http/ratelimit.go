// Package http provides the HTTP plumbing shared by the YouTube and feed
// clients: per-host request pacing with adaptive backoff after rate limit
// responses, and a pooled transport that applies it.
package http

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Backoff bounds applied after a rate limit response.
const (
	InitialBackoff    = 1 * time.Second
	MaxBackoff        = 60 * time.Second
	BackoffMultiplier = 2.0
	// CooldownPeriod is how long after the last rate limit error a host's
	// original rate is restored.
	CooldownPeriod = 5 * time.Minute
	// MinRPSMultiplier is the floor of the rate reduction (25% of original).
	MinRPSMultiplier = 0.25
)

// RateLimiterConfig defines pacing per host.
type RateLimiterConfig struct {
	// DefaultRPS applies to hosts without an entry in HostRates. Zero means
	// unlimited.
	DefaultRPS float64
	// HostRates maps a host name to its requests per second.
	HostRates map[string]float64
	// DisableBackoff turns off rate reduction after 429/403 responses.
	DisableBackoff bool
}

// BackoffState tracks rate limit backoff for a host.
type BackoffState struct {
	CurrentBackoff    time.Duration
	LastError         time.Time
	ConsecutiveErrors int
	OriginalRPS       float64
	// ReducedRPS is the current reduced rate (0 means using original).
	ReducedRPS float64
}

// RateLimiter paces requests per host using a token bucket.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	backoff  map[string]*BackoffState
	config   RateLimiterConfig
	now      func() time.Time
}

// NewRateLimiter creates a RateLimiter.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.HostRates == nil {
		cfg.HostRates = make(map[string]float64)
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		backoff:  make(map[string]*BackoffState),
		config:   cfg,
		now:      time.Now,
	}
}

// Wait blocks until a request to urlStr may be sent: first for any pending
// backoff, then for a token. It returns ctx's error if ctx ends first.
func (rl *RateLimiter) Wait(ctx context.Context, urlStr string) error {
	if rl == nil {
		return nil
	}
	host := hostOf(urlStr)

	if remaining := rl.remainingBackoff(host); remaining > 0 {
		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	limiter := rl.limiter(host)
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

func (rl *RateLimiter) limiter(host string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters[host]; ok {
		return l
	}
	rps := rl.rps(host)
	if rps <= 0 {
		return nil
	}
	l := rate.NewLimiter(rate.Limit(rps), 1)
	rl.limiters[host] = l
	return l
}

// rps must be called with mu held.
func (rl *RateLimiter) rps(host string) float64 {
	if r, ok := rl.config.HostRates[host]; ok {
		return r
	}
	return rl.config.DefaultRPS
}

func (rl *RateLimiter) remainingBackoff(host string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoff[host]
	if !ok {
		return 0
	}
	return state.CurrentBackoff - rl.now().Sub(state.LastError)
}

// RecordRateLimitError records a rate limit response from urlStr's host and
// returns the backoff now in force. The server's Retry-After wins when it is
// longer than the computed backoff.
func (rl *RateLimiter) RecordRateLimitError(urlStr string, retryAfter time.Duration) time.Duration {
	if rl == nil || rl.config.DisableBackoff {
		if retryAfter > 0 {
			return retryAfter
		}
		return InitialBackoff
	}
	host := hostOf(urlStr)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoff[host]
	if !ok {
		state = &BackoffState{
			CurrentBackoff: InitialBackoff,
			OriginalRPS:    rl.rps(host),
		}
		rl.backoff[host] = state
	}
	state.LastError = rl.now()
	state.ConsecutiveErrors++

	// 1s, 2s, 4s, ... capped at MaxBackoff
	if state.ConsecutiveErrors > 1 {
		state.CurrentBackoff = time.Duration(float64(state.CurrentBackoff) * BackoffMultiplier)
		if state.CurrentBackoff > MaxBackoff {
			state.CurrentBackoff = MaxBackoff
		}
	}
	if retryAfter > state.CurrentBackoff {
		state.CurrentBackoff = retryAfter
	}

	rl.reduceRate(host, state)
	return state.CurrentBackoff
}

// reduceRate must be called with mu held.
func (rl *RateLimiter) reduceRate(host string, state *BackoffState) {
	if state.OriginalRPS <= 0 {
		return
	}
	factor := 0.75
	switch {
	case state.ConsecutiveErrors >= 3:
		factor = MinRPSMultiplier
	case state.ConsecutiveErrors == 2:
		factor = 0.5
	}
	state.ReducedRPS = state.OriginalRPS * factor
	if l, ok := rl.limiters[host]; ok {
		l.SetLimit(rate.Limit(state.ReducedRPS))
	}
}

// RecordSuccess records a successful response. After CooldownPeriod without
// errors the host's original rate is restored.
func (rl *RateLimiter) RecordSuccess(urlStr string) {
	if rl == nil || rl.config.DisableBackoff {
		return
	}
	host := hostOf(urlStr)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoff[host]
	if !ok {
		return
	}

	if rl.now().Sub(state.LastError) > CooldownPeriod {
		if l, ok := rl.limiters[host]; ok && state.ReducedRPS > 0 {
			l.SetLimit(rate.Limit(state.OriginalRPS))
		}
		delete(rl.backoff, host)
		return
	}

	if state.ConsecutiveErrors > 0 {
		state.ConsecutiveErrors--
		// Recover to half rate, then fully after the cooldown.
		if state.ReducedRPS > 0 && state.ConsecutiveErrors == 0 {
			if half := state.OriginalRPS * 0.5; half > state.ReducedRPS {
				state.ReducedRPS = half
				if l, ok := rl.limiters[host]; ok {
					l.SetLimit(rate.Limit(half))
				}
			}
		}
	}
}

// Backoff returns a copy of the host's backoff state, or nil if none.
func (rl *RateLimiter) Backoff(urlStr string) *BackoffState {
	if rl == nil {
		return nil
	}
	host := hostOf(urlStr)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	state, ok := rl.backoff[host]
	if !ok {
		return nil
	}
	cp := *state
	return &cp
}

func hostOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
