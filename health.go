package asyncagent

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ugmurthy/asyncAgent/types"
)

// Health probes the service liveness endpoint.
func (c *Client) Health(ctx context.Context) (*types.Health, error) {
	ctx, span := c.tracer.Start(ctx, "asyncagent.health", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var h types.Health
	if err := c.do(ctx, "GET", "/v1/healthz", nil, nil, &h); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "health check failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return &h, nil
}
