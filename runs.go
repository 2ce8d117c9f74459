package asyncagent

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ugmurthy/asyncAgent/types"
)

// CreateRun submits a run for asynchronous execution and returns the
// accepted run snapshot (normally in the "pending" state). When the payload
// carries no idempotency key the client generates one, so configured
// retries of the submission never create duplicate runs. With schema
// validation enabled, structured data parts are checked against the agent
// card's skill schemas before any bytes are sent.
func (c *Client) CreateRun(ctx context.Context, p *types.CreateRunPayload) (*types.Run, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("asyncagent: %w", err)
	}
	if c.validate {
		if err := c.validateInput(ctx, p.Input); err != nil {
			return nil, err
		}
	}
	if p.IdempotencyKey == "" {
		copied := *p
		copied.IdempotencyKey = uuid.NewString()
		p = &copied
	}

	ctx, span := c.tracer.Start(ctx, "asyncagent.runs.create", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var run types.Run
	if err := c.doWithHeader(ctx, "POST", "/v1/runs", nil, p, &run, IdempotencyKeyHeader, p.IdempotencyKey); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create run failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	c.logger.Info(ctx, "run created", "runID", run.ID, "agentID", run.AgentID, "status", string(run.Status))
	c.observeRun(ctx, &run)
	return &run, nil
}

// GetRun fetches the current snapshot of a run. A 404 response is reported
// as an error matching ErrRunNotFound.
func (c *Client) GetRun(ctx context.Context, runID string) (*types.Run, error) {
	if runID == "" {
		return nil, errors.New("asyncagent: run id is required")
	}
	ctx, span := c.tracer.Start(ctx, "asyncagent.runs.get", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var run types.Run
	if err := c.do(ctx, "GET", "/v1/runs/"+url.PathEscape(runID), nil, nil, &run); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get run failed")
		return nil, wrapRunLookup(err)
	}
	span.SetStatus(codes.Ok, "")
	c.observeRun(ctx, &run)
	return &run, nil
}

// ListRuns returns one page of runs matching the payload filters. Pass the
// returned NextCursor back in the payload to continue the listing.
func (c *Client) ListRuns(ctx context.Context, p *types.ListRunsPayload) (*types.RunPage, error) {
	ctx, span := c.tracer.Start(ctx, "asyncagent.runs.list", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	query := url.Values{}
	if p != nil {
		if p.Status != "" {
			query.Set("status", string(p.Status))
		}
		if p.SessionID != "" {
			query.Set("session", p.SessionID)
		}
		if p.Limit > 0 {
			query.Set("limit", strconv.Itoa(p.Limit))
		}
		if p.Cursor != "" {
			query.Set("cursor", p.Cursor)
		}
	}

	var page types.RunPage
	if err := c.do(ctx, "GET", "/v1/runs", query, nil, &page); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list runs failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	for _, run := range page.Runs {
		c.observeRun(ctx, run)
	}
	return &page, nil
}

// CancelRun requests cancellation of a run and returns the updated
// snapshot. Canceling a run that already reached a terminal state is not an
// error; the server returns the final snapshot unchanged.
func (c *Client) CancelRun(ctx context.Context, runID string) (*types.Run, error) {
	if runID == "" {
		return nil, errors.New("asyncagent: run id is required")
	}
	ctx, span := c.tracer.Start(ctx, "asyncagent.runs.cancel", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var run types.Run
	if err := c.do(ctx, "POST", "/v1/runs/"+url.PathEscape(runID)+"/cancel", nil, nil, &run); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel run failed")
		return nil, wrapRunLookup(err)
	}
	span.SetStatus(codes.Ok, "")
	c.logger.Info(ctx, "run cancel requested", "runID", run.ID, "status", string(run.Status))
	c.observeRun(ctx, &run)
	return &run, nil
}

// WaitOptions tunes Wait polling. The zero value polls every second.
type WaitOptions struct {
	// Interval is the initial delay between polls.
	Interval time.Duration
	// MaxInterval caps the growing poll delay. Zero disables growth.
	MaxInterval time.Duration
}

// Wait polls the run until it reaches a terminal status (completed, failed,
// or canceled) and returns the final snapshot. The poll delay starts at
// opts.Interval and, when opts.MaxInterval is set, grows by half after each
// poll up to that cap. Bound the wait with a context deadline.
func (c *Client) Wait(ctx context.Context, runID string, opts WaitOptions) (*types.Run, error) {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	interval := opts.Interval
	for {
		run, err := c.GetRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		if run.Status.Terminal() {
			return run, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		if opts.MaxInterval > 0 {
			interval += interval / 2
			if interval > opts.MaxInterval {
				interval = opts.MaxInterval
			}
		}
	}
}

// validateInput checks structured data parts against the agent card's skill
// schemas, fetching the card on first use.
func (c *Client) validateInput(ctx context.Context, input *types.Message) error {
	if input == nil {
		return nil
	}
	needsCard := false
	for _, part := range input.Parts {
		if part != nil && part.Type == "data" && part.Skill != nil {
			needsCard = true
			break
		}
	}
	if !needsCard {
		return nil
	}
	if _, err := c.AgentCard(ctx); err != nil {
		return fmt.Errorf("asyncagent: fetch agent card for validation: %w", err)
	}
	return c.schemas.ValidateMessage(input)
}
