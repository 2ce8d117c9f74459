package asyncagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ugmurthy/asyncAgent/policy"
	"github.com/ugmurthy/asyncAgent/ratelimit"
	"github.com/ugmurthy/asyncAgent/retry"
	"github.com/ugmurthy/asyncAgent/runcache"
	"github.com/ugmurthy/asyncAgent/runcache/inmem"
	"github.com/ugmurthy/asyncAgent/schema"
	"github.com/ugmurthy/asyncAgent/telemetry"
	"github.com/ugmurthy/asyncAgent/types"
)

// defaultTimeout bounds each HTTP request when the caller does not supply
// an *http.Client of their own.
const defaultTimeout = 30 * time.Second

// IdempotencyKeyHeader carries the run submission deduplication key.
const IdempotencyKeyHeader = "Idempotency-Key"

// Client is a typed client for the Async Agent API. The zero value is not
// usable; construct with New. A Client is safe for concurrent use: the
// underlying *http.Client connection pool is shared across calls.
type Client struct {
	base      *url.URL
	http      *http.Client
	headers   http.Header
	userAgent string

	retryCfg retry.Config
	limiter  *ratelimit.Limiter

	logger  telemetry.Logger
	tracer  telemetry.Tracer
	metrics telemetry.Metrics

	runs     runcache.Store
	schemas  *schema.Registry
	validate bool

	streamCfg retry.StreamReconnectConfig

	cardMu sync.Mutex
	card   *types.AgentCard
}

// New constructs a Client for the Async Agent API hosted at endpoint (for
// example, "https://agent.example.com"). The endpoint must be an absolute
// http or https URL.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("asyncagent: endpoint is required")
	}
	base, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("asyncagent: invalid endpoint: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("asyncagent: endpoint scheme must be http or https, got %q", base.Scheme)
	}

	c := &Client{
		base:      base,
		http:      &http.Client{Timeout: defaultTimeout},
		headers:   make(http.Header),
		userAgent: defaultUserAgent,
		logger:    telemetry.NewNoopLogger(),
		tracer:    telemetry.NewNoopTracer(),
		metrics:   telemetry.NewNoopMetrics(),
		runs:      inmem.New(),
		schemas:   schema.NewRegistry(),
		streamCfg: retry.DefaultStreamReconnectConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	return c, nil
}

// RunStore returns the store holding the run snapshots this client has
// observed.
func (c *Client) RunStore() runcache.Store {
	return c.runs
}

// do issues one API request with rate limiting, retries, auth and policy
// header injection, and error envelope mapping. When out is non-nil the
// 2xx response body is decoded into it.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	return c.doWithHeader(ctx, method, path, query, in, out)
}

// doWithHeader is do with additional per-request headers supplied as
// alternating name/value pairs (the idempotency key of a run submission).
func (c *Client) doWithHeader(ctx context.Context, method, path string, query url.Values, in, out any, headerKV ...string) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("asyncagent: encode request: %w", err)
		}
	}
	var extra http.Header
	if len(headerKV) > 1 {
		extra = make(http.Header, len(headerKV)/2)
		for i := 0; i+1 < len(headerKV); i += 2 {
			extra.Set(headerKV[i], headerKV[i+1])
		}
	}

	start := time.Now()
	attempts := 0
	err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) error {
		attempts++
		if attempts > 1 {
			c.metrics.IncCounter("asyncagent.request.retries", 1, "path", path)
		}
		return c.attempt(ctx, method, path, query, body, extra, out)
	})
	c.metrics.RecordTimer("asyncagent.request.duration", time.Since(start), "path", path)
	if err != nil {
		c.metrics.IncCounter("asyncagent.request.errors", 1, "path", path)
	}
	return err
}

// attempt performs a single HTTP exchange.
func (c *Client) attempt(ctx context.Context, method, path string, query url.Values, body []byte, extra http.Header, out any) error {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		c.metrics.RecordTimer("asyncagent.ratelimit.wait", time.Since(waitStart), "path", path)
	}

	u := *c.base
	if err := setEscapedPath(&u, strings.TrimRight(u.EscapedPath(), "/")+path); err != nil {
		return err
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	if p := policy.FromContext(ctx); p != nil {
		p.EncodeHeaders(req.Header)
	}

	c.logger.Debug(ctx, "request", "method", method, "path", path)
	c.metrics.IncCounter("asyncagent.requests", 1, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		if c.limiter != nil {
			c.limiter.Observe(err)
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := types.DecodeError(resp.StatusCode, raw)
		if c.limiter != nil {
			c.limiter.Observe(apiErr)
		}
		c.logger.Debug(ctx, "request failed", "method", method, "path", path, "status", resp.StatusCode, "code", apiErr.Code)
		return apiErr
	}

	if c.limiter != nil {
		c.limiter.Observe(nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("asyncagent: decode response: %w", err)
	}
	return nil
}

// setEscapedPath installs an already-escaped path on u, keeping Path and
// RawPath consistent so URL.String does not escape it a second time.
func setEscapedPath(u *url.URL, escaped string) error {
	plain, err := url.PathUnescape(escaped)
	if err != nil {
		return fmt.Errorf("asyncagent: invalid request path %q: %w", escaped, err)
	}
	u.Path = plain
	u.RawPath = escaped
	return nil
}

// observeRun records the snapshot in the run store. Store failures are
// logged, never surfaced: the API response is authoritative.
func (c *Client) observeRun(ctx context.Context, run *types.Run) {
	if run == nil || c.runs == nil {
		return
	}
	if err := c.runs.Upsert(ctx, run); err != nil {
		c.logger.Warn(ctx, "run store upsert failed", "runID", run.ID, "err", err.Error())
	}
}
