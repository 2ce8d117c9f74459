package asyncagent

import (
	"context"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ugmurthy/asyncAgent/policy"
	"github.com/ugmurthy/asyncAgent/types"
)

// AgentCard fetches the agent discovery document. The card is cached on the
// client after the first successful fetch; use RefreshAgentCard to force a
// refetch. Loading the card also (re)compiles the skill input schemas used
// by schema validation.
func (c *Client) AgentCard(ctx context.Context) (*types.AgentCard, error) {
	c.cardMu.Lock()
	cached := c.card
	c.cardMu.Unlock()
	if cached != nil {
		return cached, nil
	}
	return c.RefreshAgentCard(ctx)
}

// RefreshAgentCard fetches the agent card from the server, replacing any
// cached copy.
func (c *Client) RefreshAgentCard(ctx context.Context) (*types.AgentCard, error) {
	ctx, span := c.tracer.Start(ctx, "asyncagent.agent.card", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var card types.AgentCard
	if err := c.do(ctx, "GET", "/v1/agent", nil, nil, &card); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch agent card failed")
		return nil, err
	}
	if err := c.schemas.LoadCard(&card); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compile skill schemas failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")

	c.cardMu.Lock()
	c.card = &card
	c.cardMu.Unlock()
	return &card, nil
}

// Skills returns the identifiers of the skills the agent card declares,
// filtered by the policy attached to the context, if any.
func (c *Client) Skills(ctx context.Context) ([]string, error) {
	card, err := c.AgentCard(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(card.Skills))
	for _, s := range card.Skills {
		if s != nil {
			ids = append(ids, s.ID)
		}
	}
	return policy.FilterSkills(ids, policy.FromContext(ctx)), nil
}
