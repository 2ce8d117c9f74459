// Package stream delivers real-time run execution updates to clients. The
// Async Agent API exposes run events over Server-Sent Events; this package
// parses the event stream into typed run events, tracks the last seen event
// id, and transparently reconnects with Last-Event-ID resumption so
// consumers observe an uninterrupted ordered sequence.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ugmurthy/asyncAgent/retry"
	"github.com/ugmurthy/asyncAgent/telemetry"
	"github.com/ugmurthy/asyncAgent/types"
)

// Connector opens one SSE connection to the event stream. The lastEventID
// is empty on the first connection and carries the resume position on
// reconnects. The returned response must have an open body; the
// subscription takes ownership and closes it.
type Connector func(ctx context.Context, lastEventID string) (*http.Response, error)

// Subscription is a live run event stream. Events are delivered in order on
// the Events channel; the channel closes after the final run event, when the
// context is canceled, or when reconnection attempts are exhausted. Err
// reports the terminal cause after the channel closes (nil on a clean
// final event).
type Subscription struct {
	events chan *types.RunEvent

	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Options configures a subscription.
type Options struct {
	// Reconnect governs automatic reconnection. The zero value uses
	// retry.DefaultStreamReconnectConfig.
	Reconnect retry.StreamReconnectConfig
	// Buffer is the Events channel capacity. Zero means unbuffered.
	Buffer int
	// Logger receives debug logging for connection lifecycle. Nil disables.
	Logger telemetry.Logger
	// Observer, when set, is invoked with each event before it is delivered
	// on the Events channel. It must not block.
	Observer func(*types.RunEvent)
}

// ErrReconnectExhausted is reported by Err when the stream dropped and all
// reconnection attempts failed.
var ErrReconnectExhausted = errors.New("stream: reconnect attempts exhausted")

// Subscribe opens the event stream and starts the delivery goroutine.
func Subscribe(ctx context.Context, connect Connector, opts Options) (*Subscription, error) {
	if connect == nil {
		return nil, errors.New("stream: connector is required")
	}
	if opts.Reconnect.MaxAttempts == 0 {
		opts.Reconnect = retry.DefaultStreamReconnectConfig()
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.NewNoopLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		events: make(chan *types.RunEvent, opts.Buffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go sub.run(ctx, connect, opts)
	return sub, nil
}

// Events returns the ordered run event channel.
func (s *Subscription) Events() <-chan *types.RunEvent {
	return s.events
}

// Err returns the terminal error after the Events channel closed. It is nil
// when the stream ended with a final run event.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the subscription. It is idempotent and safe to call
// concurrently with event consumption; the Events channel closes shortly
// after.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

func (s *Subscription) run(ctx context.Context, connect Connector, opts Options) {
	defer close(s.done)
	defer close(s.events)
	defer s.cancel()

	var state retry.StreamState

	for {
		resp, err := connect(ctx, state.LastEventID)
		if err == nil {
			err = checkStreamResponse(resp)
		}
		if err != nil {
			if !s.backoff(ctx, &state, opts, err) {
				return
			}
			continue
		}

		state.Reset()
		opts.Logger.Debug(ctx, "stream connected", "lastEventID", state.LastEventID)

		final, err := s.consume(ctx, resp.Body, &state, opts)
		if final || ctx.Err() != nil {
			if !final {
				s.setErr(ctx.Err())
			}
			return
		}
		if !s.backoff(ctx, &state, opts, err) {
			return
		}
	}
}

// consume reads events from one connection until it ends. It reports
// whether the final run event was seen.
func (s *Subscription) consume(ctx context.Context, body io.ReadCloser, state *retry.StreamState, opts Options) (bool, error) {
	defer func() { _ = body.Close() }()

	// Close the body when the context ends so the blocked read returns.
	watchdone := make(chan struct{})
	defer close(watchdone)
	go func() {
		select {
		case <-ctx.Done():
			_ = body.Close()
		case <-watchdone:
		}
	}()

	reader := bufio.NewReader(body)
	for {
		id, name, data, err := readEvent(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, errors.New("stream: connection closed")
			}
			return false, err
		}
		if opts.Reconnect.TrackLastEventID {
			state.UpdateLastEventID(id)
		}
		if name == "ping" || len(data) == 0 {
			continue
		}

		var event types.RunEvent
		if err := json.Unmarshal(data, &event); err != nil {
			opts.Logger.Warn(ctx, "stream: dropping malformed event", "err", err.Error())
			continue
		}
		if event.ID == "" {
			event.ID = id
		}
		if opts.Observer != nil {
			opts.Observer(&event)
		}

		select {
		case s.events <- &event:
		case <-ctx.Done():
			s.setErr(ctx.Err())
			return true, nil
		}
		if event.Final {
			return true, nil
		}
	}
}

// backoff sleeps before the next reconnect attempt. It reports false when
// the subscription should stop.
func (s *Subscription) backoff(ctx context.Context, state *retry.StreamState, opts Options, cause error) bool {
	if ctx.Err() != nil {
		s.setErr(ctx.Err())
		return false
	}
	state.ReconnectAttempts++
	if state.ReconnectAttempts >= opts.Reconnect.MaxAttempts {
		s.setErr(fmt.Errorf("%w: %v", ErrReconnectExhausted, cause))
		return false
	}

	delay := opts.Reconnect.InitialBackoff
	for i := 1; i < state.ReconnectAttempts; i++ {
		delay = time.Duration(float64(delay) * opts.Reconnect.BackoffMultiplier)
		if delay > opts.Reconnect.MaxBackoff {
			delay = opts.Reconnect.MaxBackoff
			break
		}
	}
	opts.Logger.Debug(ctx, "stream reconnecting", "attempt", state.ReconnectAttempts, "delay", delay.String(), "cause", cause.Error())

	select {
	case <-ctx.Done():
		s.setErr(ctx.Err())
		return false
	case <-time.After(delay):
		return true
	}
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// checkStreamResponse verifies the connection is a usable event stream and
// converts failures into API errors. It closes the body on failure.
func checkStreamResponse(resp *http.Response) error {
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return types.DecodeError(resp.StatusCode, raw)
	}
	if ct := strings.ToLower(resp.Header.Get("Content-Type")); ct != "" && !strings.HasPrefix(ct, "text/event-stream") {
		raw, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return fmt.Errorf("stream: unexpected content type %q: %s", resp.Header.Get("Content-Type"), string(raw))
	}
	return nil
}

// readEvent parses one SSE event from the reader. It returns the event id,
// event name, and accumulated data. Comment lines are skipped; multi-line
// data is joined with newlines per the SSE specification.
func readEvent(reader *bufio.Reader) (string, string, []byte, error) {
	var id, name string
	var data []byte
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", "", nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if name == "" && id == "" && len(data) == 0 {
				continue
			}
			return id, name, data, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if after, ok := strings.CutPrefix(line, "id:"); ok {
			id = strings.TrimSpace(after)
			continue
		}
		if after, ok := strings.CutPrefix(line, "event:"); ok {
			name = strings.TrimSpace(after)
			continue
		}
		if after, ok := strings.CutPrefix(line, "data:"); ok {
			chunk := strings.TrimPrefix(after, " ")
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, chunk...)
			continue
		}
	}
}
