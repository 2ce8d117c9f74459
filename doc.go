// Package asyncagent is a typed Go client for the Async Agent API: an
// HTTP/JSON service that accepts agent run submissions, executes them
// asynchronously, and exposes run status, results, and a live event stream.
//
// A Client is built with New and configured with functional options:
//
//	client, err := asyncagent.New("https://agent.example.com",
//		asyncagent.WithBearerToken(token),
//		asyncagent.WithRetryConfig(retry.DefaultConfig()),
//	)
//
// Operations mirror the API one method per endpoint: CreateRun, GetRun,
// ListRuns, CancelRun, AgentCard, StreamEvents, Wait, and Health. All
// operations take a context; cancellation and deadlines propagate to the
// underlying transport. Retries only happen when a retry configuration is
// supplied; run submission carries an idempotency key so retried submits
// never create duplicate runs.
package asyncagent
