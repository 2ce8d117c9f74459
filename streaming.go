package asyncagent

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ugmurthy/asyncAgent/policy"
	"github.com/ugmurthy/asyncAgent/stream"
	"github.com/ugmurthy/asyncAgent/types"
)

// StreamEvents subscribes to the live event stream of a run. Events arrive
// in order on the subscription channel; dropped connections reconnect
// automatically, resuming from the last seen event id. The subscription
// ends with the run's final event, when ctx is canceled, or when
// reconnection is exhausted; inspect Subscription.Err after the channel
// closes.
//
// Observed status events update the client's run store so the local view of
// the run tracks the stream.
func (c *Client) StreamEvents(ctx context.Context, runID string) (*stream.Subscription, error) {
	if runID == "" {
		return nil, errors.New("asyncagent: run id is required")
	}

	connect := func(ctx context.Context, lastEventID string) (*http.Response, error) {
		u := *c.base
		escaped := strings.TrimRight(u.EscapedPath(), "/") + "/v1/runs/" + url.PathEscape(runID) + "/events"
		if err := setEscapedPath(&u, escaped); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("User-Agent", c.userAgent)
		for k, vs := range c.headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if p := policy.FromContext(ctx); p != nil {
			p.EncodeHeaders(req.Header)
		}
		if lastEventID != "" {
			req.Header.Set("Last-Event-ID", lastEventID)
		}
		c.metrics.IncCounter("asyncagent.stream.connects", 1, "runID", runID)
		// The subscription outlives individual requests; per-request timeouts
		// would sever a healthy stream, so connect with a timeout-free copy of
		// the configured transport.
		streamClient := &http.Client{Transport: c.http.Transport}
		return streamClient.Do(req)
	}

	return stream.Subscribe(ctx, connect, stream.Options{
		Reconnect: c.streamCfg,
		Buffer:    16,
		Logger:    c.logger,
		Observer: func(event *types.RunEvent) {
			c.observeStreamEvent(ctx, runID, event)
		},
	})
}

// observeStreamEvent mirrors status events into the run store so the local
// view of the run tracks the stream.
func (c *Client) observeStreamEvent(ctx context.Context, runID string, event *types.RunEvent) {
	if event == nil || event.Type != types.EventStatus {
		return
	}
	run, err := c.runs.Load(ctx, runID)
	if err != nil || run == nil {
		run = &types.Run{ID: runID}
	}
	run.Status = event.Status
	run.UpdatedAt = event.Timestamp
	c.observeRun(ctx, run)
}
