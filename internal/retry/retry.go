// Package retry provides a bounded retry combinator with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Config holds retry configuration.
type Config struct {
	// MaxAttempts is the total number of calls made before giving up,
	// including the first one. Values below 1 are treated as 1.
	MaxAttempts int
	// InitialBackoff is the delay after the first failed attempt.
	InitialBackoff time.Duration
	// MaxBackoff is the ceiling for the delay between attempts.
	MaxBackoff time.Duration
	// Multiplier is the exponential backoff multiplier.
	Multiplier float64
	// JitterFraction is the fraction of backoff used for jitter (0.0-1.0).
	JitterFraction float64
	// OnRetry, when set, is called after a failed attempt that will be retried.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultConfig returns the policy shared by playlist paging and detail batches:
// five attempts, 1s doubling up to 60s, no jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    5,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     60 * time.Second,
		Multiplier:     2.0,
	}
}

// ErrorClassifier determines if an error is retryable.
type ErrorClassifier func(error) bool

// IsRetryable is the default classifier. Everything except context
// cancellation is considered transient.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perm *PermanentError
	return !errors.As(err, &perm)
}

// PermanentError marks an error that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that IsRetryable rejects it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// ExhaustedError is returned by Do when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do calls fn until it succeeds, returns a non-retryable error, or
// cfg.MaxAttempts calls have been made. In the last case the error is an
// *ExhaustedError wrapping the final failure.
func Do(ctx context.Context, cfg Config, classifier ErrorClassifier, fn func(context.Context) error) error {
	if classifier == nil {
		classifier = IsRetryable
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !classifier(err) {
			return err
		}

		if attempt == attempts {
			break
		}

		sleep := Backoff(cfg, attempt)
		sleep += jitter(sleep, cfg.JitterFraction)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, sleep, err)
		}

		timer := time.NewTimer(sleep)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// Backoff returns the delay that follows the given failed attempt (1-based),
// without jitter: InitialBackoff * Multiplier^(attempt-1), capped at MaxBackoff.
func Backoff(cfg Config, attempt int) time.Duration {
	wait := cfg.InitialBackoff
	mult := cfg.Multiplier
	if mult < 1 {
		mult = 1
	}
	for i := 1; i < attempt; i++ {
		wait = time.Duration(float64(wait) * mult)
		if cfg.MaxBackoff > 0 && wait >= cfg.MaxBackoff {
			return cfg.MaxBackoff
		}
	}
	if cfg.MaxBackoff > 0 && wait > cfg.MaxBackoff {
		wait = cfg.MaxBackoff
	}
	return wait
}

// jitter returns a random duration in range [-fraction*d, +fraction*d].
func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return 0
	}
	jitterRange := float64(d) * fraction
	return time.Duration((rand.Float64() - 0.5) * 2 * jitterRange)
}
