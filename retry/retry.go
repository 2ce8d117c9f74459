// Package retry wraps Async Agent API calls with bounded retries. It
// classifies which failures are worth retrying (throttling, upstream
// unavailability, network timeouts), spaces attempts with jittered
// exponential backoff, and carries the reconnection state event stream
// subscriptions need to resume where they left off.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// Config bounds the retry loop. The zero value makes a single attempt.
type Config struct {
	// MaxAttempts caps the total number of attempts, the initial one
	// included. Zero or one disables retries.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
	// BackoffMultiplier grows the delay after each retry. 2.0 doubles it.
	BackoffMultiplier float64
	// Jitter randomizes each delay by up to the given fraction so
	// concurrent clients do not retry in lockstep. 0.1 means ±10%.
	Jitter float64
}

// DefaultConfig returns the retry configuration recommended for API calls.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
	}
}

// ExhaustedError reports that every configured attempt failed. It wraps the
// last attempt's error for errors.Is/As matching.
type ExhaustedError struct {
	// Attempts is the number of attempts made.
	Attempts int
	// TotalDuration is the wall time spent across all attempts.
	TotalDuration time.Duration
	// LastError is the error from the final attempt.
	LastError error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts over %v: %v", e.Attempts, e.TotalDuration, e.LastError)
}

// Unwrap returns the final attempt's error.
func (e *ExhaustedError) Unwrap() error {
	return e.LastError
}

// statusCoder is implemented by errors that carry an HTTP status code, such
// as types.Error.
type statusCoder interface {
	error
	HTTPStatus() int
}

// IsRetryable reports whether a failed attempt may succeed when repeated:
// network timeouts, temporary DNS failures, deadline expiry, and HTTP
// 429/502/503/504. Context cancellation is the caller giving up and is
// never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary()
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		switch sc.HTTPStatus() {
		case http.StatusServiceUnavailable,
			http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// Do runs fn, repeating it on retryable errors until it succeeds, a
// non-retryable error occurs, attempts run out, or ctx ends. With more than
// one configured attempt an exhausted loop returns an ExhaustedError; a
// single-attempt config returns fn's error unchanged.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt >= cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(calculateBackoff(cfg, attempt)):
		}
	}

	if cfg.MaxAttempts == 1 {
		return lastErr
	}
	return &ExhaustedError{
		Attempts:      cfg.MaxAttempts,
		TotalDuration: time.Since(start),
		LastError:     lastErr,
	}
}

// calculateBackoff computes the jittered delay before the next attempt.
func calculateBackoff(cfg Config, attempt int) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	if cfg.Jitter > 0 {
		backoff += backoff * cfg.Jitter * (rand.Float64()*2 - 1) //nolint:gosec // jitter doesn't need crypto rand
	}
	return time.Duration(backoff)
}

// StreamReconnectConfig governs reconnection of event stream subscriptions.
type StreamReconnectConfig struct {
	// Config is the base retry configuration.
	Config
	// TrackLastEventID records the id of each received event so a
	// reconnect can resume the stream instead of replaying it.
	TrackLastEventID bool
}

// DefaultStreamReconnectConfig returns the reconnection configuration
// recommended for event streams.
func DefaultStreamReconnectConfig() StreamReconnectConfig {
	return StreamReconnectConfig{
		Config: Config{
			MaxAttempts:       5,
			InitialBackoff:    500 * time.Millisecond,
			MaxBackoff:        30 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            0.1,
		},
		TrackLastEventID: true,
	}
}

// StreamState is the per-subscription reconnection state: where to resume
// and how many consecutive reconnects have been attempted.
type StreamState struct {
	// LastEventID is the id of the last successfully received event.
	LastEventID string
	// ReconnectAttempts counts consecutive reconnection attempts.
	ReconnectAttempts int
}

// Reset clears the attempt counter after a successful connection. The
// resume position is kept.
func (s *StreamState) Reset() {
	s.ReconnectAttempts = 0
}

// UpdateLastEventID advances the resume position. Empty ids are ignored.
func (s *StreamState) UpdateLastEventID(id string) {
	if id != "" {
		s.LastEventID = id
	}
}
