package asyncagent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/ugmurthy/asyncAgent/policy"
	"github.com/ugmurthy/asyncAgent/retry"
	"github.com/ugmurthy/asyncAgent/telemetry"
	"github.com/ugmurthy/asyncAgent/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(srv.URL, opts...)
	require.NoError(t, err)
	return client
}

func writeRun(t *testing.T, w http.ResponseWriter, run *types.Run) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(run))
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}

func TestNewRejectsBadEndpoints(t *testing.T) {
	_, err := New("")
	require.Error(t, err)

	_, err = New("ftp://agent.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme")
}

func TestCreateRunSendsPayloadAndCachesSnapshot(t *testing.T) {
	var gotPayload types.CreateRunPayload
	var gotIdemKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/v1/runs", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotIdemKey = r.Header.Get(IdempotencyKeyHeader)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		writeRun(t, w, &types.Run{ID: "run-1", AgentID: gotPayload.AgentID, Status: types.RunPending})
	})

	run, err := client.CreateRun(context.Background(), &types.CreateRunPayload{
		AgentID: "researcher",
		Input:   types.UserMessage("summarize the report"),
	})
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, types.RunPending, run.Status)

	assert.Equal(t, "researcher", gotPayload.AgentID)
	assert.NotEmpty(t, gotIdemKey, "client must generate an idempotency key")
	assert.Equal(t, gotPayload.IdempotencyKey, gotIdemKey)

	cached, err := client.RunStore().Load(context.Background(), "run-1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, types.RunPending, cached.Status)
}

func TestCreateRunKeepsCallerIdempotencyKey(t *testing.T) {
	var gotIdemKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotIdemKey = r.Header.Get(IdempotencyKeyHeader)
		writeRun(t, w, &types.Run{ID: "run-1", Status: types.RunPending})
	})

	_, err := client.CreateRun(context.Background(), &types.CreateRunPayload{
		AgentID:        "researcher",
		Input:          types.UserMessage("hi"),
		IdempotencyKey: "caller-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "caller-key", gotIdemKey)
}

func TestCreateRunValidatesBeforeSending(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := client.CreateRun(context.Background(), &types.CreateRunPayload{AgentID: "researcher"})
	require.Error(t, err)
	assert.Equal(t, int32(0), calls.Load(), "invalid payload must not hit the network")
}

func TestAuthAndStaticHeaders(t *testing.T) {
	var got http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&types.Health{Status: "ok"})
	},
		WithBearerToken("secret-token"),
		WithHeader("X-Tenant", "acme"),
		WithUserAgent("acme-tool/2.0"),
	)

	_, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", got.Get("Authorization"))
	assert.Equal(t, "acme", got.Get("X-Tenant"))
	assert.Equal(t, "acme-tool/2.0", got.Get("User-Agent"))
}

func TestAPIKeyHeader(t *testing.T) {
	var got string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&types.Health{Status: "ok"})
	}, WithAPIKey("key-123"))

	_, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "key-123", got)
}

func TestPolicyHeadersFromContext(t *testing.T) {
	var got http.Header
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		writeRun(t, w, &types.Run{ID: "run-1", Status: types.RunRunning})
	})

	ctx := policy.NewContext(context.Background(), &policy.Policy{
		AllowList: []string{"search", "summarize"},
		DenyList:  []string{"execute"},
	})
	_, err := client.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "search,summarize", got.Get(policy.AllowSkillsHeader))
	assert.Equal(t, "execute", got.Get(policy.DenySkillsHeader))
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeAPIError(w, http.StatusServiceUnavailable, "unavailable", "try later")
			return
		}
		writeRun(t, w, &types.Run{ID: "run-1", Status: types.RunRunning})
	}, WithRetryConfig(retry.Config{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
	}))

	run, err := client.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeAPIError(w, http.StatusBadRequest, "invalid_argument", "bad filter")
	}, WithRetryConfig(retry.Config{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2,
	}))

	_, err := client.ListRuns(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *types.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_argument", apiErr.Code)
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus())
}

func TestGetRunNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, "not_found", "no such run")
	})

	_, err := client.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunNotFound)

	var apiErr *types.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "not_found", apiErr.Code)
}

func TestGetRunRequiresID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request")
	})
	_, err := client.GetRun(context.Background(), "")
	require.Error(t, err)
}

func TestListRunsEncodesFilters(t *testing.T) {
	var gotQuery map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/runs", r.URL.Path)
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&types.RunPage{
			Runs:       []*types.Run{{ID: "run-1", Status: types.RunCompleted}},
			NextCursor: "cursor-2",
		})
	})

	page, err := client.ListRuns(context.Background(), &types.ListRunsPayload{
		Status:    types.RunCompleted,
		SessionID: "sess-1",
		Limit:     25,
		Cursor:    "cursor-1",
	})
	require.NoError(t, err)
	require.Len(t, page.Runs, 1)
	assert.Equal(t, "cursor-2", page.NextCursor)

	assert.Equal(t, []string{"completed"}, gotQuery["status"])
	assert.Equal(t, []string{"sess-1"}, gotQuery["session"])
	assert.Equal(t, []string{"25"}, gotQuery["limit"])
	assert.Equal(t, []string{"cursor-1"}, gotQuery["cursor"])
}

func TestCancelRun(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/v1/runs/run-1/cancel", r.URL.Path)
		writeRun(t, w, &types.Run{ID: "run-1", Status: types.RunCanceled})
	})

	run, err := client.CancelRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, types.RunCanceled, run.Status)
}

func TestWaitPollsUntilTerminal(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		status := types.RunRunning
		if calls.Add(1) >= 3 {
			status = types.RunCompleted
		}
		writeRun(t, w, &types.Run{ID: "run-1", Status: status})
	})

	run, err := client.Wait(context.Background(), "run-1", WaitOptions{
		Interval:    time.Millisecond,
		MaxInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, types.RunCompleted, run.Status)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestWaitHonorsContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeRun(t, w, &types.Run{ID: "run-1", Status: types.RunRunning})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Wait(ctx, "run-1", WaitOptions{Interval: time.Hour})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAgentCardCachedAfterFirstFetch(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/agent", r.URL.Path)
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&types.AgentCard{
			ProtocolVersion: "1.0",
			Name:            "researcher",
			URL:             "https://agent.example.com",
			Version:         "0.1.0",
			Skills: []*types.Skill{
				{ID: "search", Name: "Search"},
				{ID: "summarize", Name: "Summarize"},
			},
		})
	})

	ctx := context.Background()
	card, err := client.AgentCard(ctx)
	require.NoError(t, err)
	assert.Equal(t, "researcher", card.Name)

	again, err := client.AgentCard(ctx)
	require.NoError(t, err)
	assert.Same(t, card, again)
	assert.Equal(t, int32(1), calls.Load())

	_, err = client.RefreshAgentCard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSkillsFilteredByPolicy(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&types.AgentCard{
			ProtocolVersion: "1.0",
			Name:            "researcher",
			URL:             "https://agent.example.com",
			Version:         "0.1.0",
			Skills: []*types.Skill{
				{ID: "search"},
				{ID: "summarize"},
				{ID: "execute"},
			},
		})
	})

	ctx := policy.NewContext(context.Background(), &policy.Policy{DenyList: []string{"execute"}})
	ids, err := client.Skills(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"search", "summarize"}, ids)
}

func TestSchemaValidationRejectsBadInput(t *testing.T) {
	var runCalls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/agent":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(&types.AgentCard{
				ProtocolVersion: "1.0",
				Name:            "researcher",
				URL:             "https://agent.example.com",
				Version:         "0.1.0",
				Skills: []*types.Skill{{
					ID:   "search",
					Name: "Search",
					InputSchema: json.RawMessage(`{
						"type": "object",
						"properties": {"query": {"type": "string"}},
						"required": ["query"]
					}`),
				}},
			})
		case "/v1/runs":
			runCalls.Add(1)
			writeRun(t, w, &types.Run{ID: "run-1", Status: types.RunPending})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}, WithSchemaValidation())

	ctx := context.Background()
	_, err := client.CreateRun(ctx, &types.CreateRunPayload{
		AgentID: "researcher",
		Input: &types.Message{
			Role:  "user",
			Parts: []*types.MessagePart{types.DataPart("search", json.RawMessage(`{"query": 42}`))},
		},
	})
	require.Error(t, err)
	assert.Equal(t, int32(0), runCalls.Load(), "invalid input must be rejected before submission")

	run, err := client.CreateRun(ctx, &types.CreateRunPayload{
		AgentID: "researcher",
		Input: &types.Message{
			Role:  "user",
			Parts: []*types.MessagePart{types.DataPart("search", json.RawMessage(`{"query": "golang"}`))},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
}

func TestHealth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/healthz", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&types.Health{Status: "ok", Version: "1.2.3"})
	})

	h, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "1.2.3", h.Version)
}

func TestRunIDsEscapedOnce(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		writeRun(t, w, &types.Run{ID: "a b", Status: types.RunRunning})
	})

	_, err := client.GetRun(context.Background(), "a b")
	require.NoError(t, err)
	assert.Equal(t, "/v1/runs/a%20b", gotPath)

	_, err = client.CancelRun(context.Background(), "x/y")
	require.NoError(t, err)
	assert.Equal(t, "/v1/runs/x%2Fy/cancel", gotPath)
}

func TestStreamEventsEscapesRunID(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"type\":\"status\",\"runId\":\"a b\",\"status\":\"completed\",\"final\":true}\n\n"))
		w.(http.Flusher).Flush()
	})

	sub, err := client.StreamEvents(context.Background(), "a b")
	require.NoError(t, err)
	defer sub.Close()

	select {
	case ev := <-sub.Events():
		require.NotNil(t, ev)
		assert.Equal(t, types.RunCompleted, ev.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	assert.Equal(t, "/v1/runs/a%20b/events", gotPath)
}

// recordingMetrics counts metric emissions for assertions.
type recordingMetrics struct {
	mu       sync.Mutex
	counters map[string]float64
	timers   map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counters: make(map[string]float64), timers: make(map[string]int)}
}

func (m *recordingMetrics) IncCounter(name string, value float64, _ ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += value
}

func (m *recordingMetrics) RecordTimer(name string, _ time.Duration, _ ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timers[name]++
}

func (m *recordingMetrics) RecordGauge(string, float64, ...string) {}

func (m *recordingMetrics) counter(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

func (m *recordingMetrics) timer(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timers[name]
}

func TestRetryAndRateLimitWaitMetrics(t *testing.T) {
	rec := newRecordingMetrics()
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeAPIError(w, http.StatusServiceUnavailable, "unavailable", "try later")
			return
		}
		writeRun(t, w, &types.Run{ID: "run-1", Status: types.RunRunning})
	},
		WithRetryConfig(retry.Config{
			MaxAttempts:       3,
			InitialBackoff:    time.Millisecond,
			MaxBackoff:        5 * time.Millisecond,
			BackoffMultiplier: 2,
		}),
		WithRateLimit(6000, 6000),
		WithMetrics(rec),
	)

	_, err := client.GetRun(context.Background(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, 2.0, rec.counter("asyncagent.request.retries"))
	assert.Equal(t, 3, rec.timer("asyncagent.ratelimit.wait"))
	assert.Equal(t, 3.0, rec.counter("asyncagent.requests"))
}

// recordingTracer records started span names.
type recordingTracer struct {
	telemetry.NoopTracer
	mu    sync.Mutex
	spans []string
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, telemetry.Span) {
	t.mu.Lock()
	t.spans = append(t.spans, name)
	t.mu.Unlock()
	return t.NoopTracer.Start(ctx, name, opts...)
}

func TestHealthStartsSpan(t *testing.T) {
	tr := &recordingTracer{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&types.Health{Status: "ok"})
	}, WithTracer(tr))

	_, err := client.Health(context.Background())
	require.NoError(t, err)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Contains(t, tr.spans, "asyncagent.health")
}

func TestNonEnvelopeErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	_, err := client.Health(context.Background())
	require.Error(t, err)
	var apiErr *types.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.HTTPStatus())
	assert.Contains(t, apiErr.Message, "upstream exploded")
}
