package asyncagent

import (
	"net/http"

	"github.com/ugmurthy/asyncAgent/ratelimit"
	"github.com/ugmurthy/asyncAgent/retry"
	"github.com/ugmurthy/asyncAgent/runcache"
	"github.com/ugmurthy/asyncAgent/telemetry"
)

// defaultUserAgent identifies the client on the wire.
const defaultUserAgent = "async-agent-client-go/0.1.0"

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client used for requests.
// Supply one to control TLS, proxies, or connection pooling; the client is
// shared by all concurrent calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithHeader adds a static header to all outgoing requests.
func WithHeader(name, value string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(http.Header)
		}
		c.headers.Add(name, value)
	}
}

// WithBearerToken configures the client to send an Authorization Bearer token.
func WithBearerToken(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithAPIKey configures the client to authenticate with an X-API-Key header.
func WithAPIKey(key string) Option {
	return WithHeader("X-API-Key", key)
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRetryConfig enables retries for transient failures. Without this
// option every operation makes a single attempt.
func WithRetryConfig(cfg retry.Config) Option {
	return func(c *Client) {
		c.retryCfg = cfg
	}
}

// WithStreamReconnect overrides the reconnection behavior of StreamEvents
// subscriptions.
func WithStreamReconnect(cfg retry.StreamReconnectConfig) Option {
	return func(c *Client) {
		c.streamCfg = cfg
	}
}

// WithRateLimit throttles outgoing requests with an adaptive
// requests-per-minute budget shared by all operations on the client.
func WithRateLimit(initialRPM, maxRPM float64) Option {
	return func(c *Client) {
		c.limiter = ratelimit.New(initialRPM, maxRPM)
	}
}

// WithLogger sets the structured logger. Defaults to a no-op logger; use
// telemetry.NewClueLogger for Clue-backed logging.
func WithLogger(l telemetry.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the operation tracer. Defaults to a no-op tracer.
func WithTracer(t telemetry.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithMetrics sets the metrics recorder. Defaults to a no-op recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithRunStore replaces the in-memory store recording observed run
// snapshots.
func WithRunStore(s runcache.Store) Option {
	return func(c *Client) {
		if s != nil {
			c.runs = s
		}
	}
}

// WithSchemaValidation enables client-side validation of structured data
// parts against the skill input schemas declared by the agent card. The
// card is fetched on first use when not already cached.
func WithSchemaValidation() Option {
	return func(c *Client) {
		c.validate = true
	}
}
