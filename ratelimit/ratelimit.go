// Package ratelimit provides a process-local adaptive request limiter for
// the Async Agent API client. It applies an AIMD-style token bucket at the
// transport boundary: callers block until capacity is available, and the
// effective requests-per-minute budget shrinks in response to rate limiting
// signals from the server and recovers gradually on success.
package ratelimit

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter applies an adaptive requests-per-minute budget. Construct a single
// instance per process and let every client request pass through Wait/Observe.
type Limiter struct {
	mu sync.Mutex

	limiter *rate.Limiter

	currentRPM float64
	minRPM     float64
	maxRPM     float64

	recoveryRate float64
}

// statusCoder is implemented by errors carrying an HTTP status, such as
// types.Error.
type statusCoder interface {
	error
	HTTPStatus() int
}

// New constructs a Limiter with an initial requests-per-minute budget and an
// upper bound. When maxRPM is zero or less than initialRPM it is clamped to
// initialRPM. The budget never adapts below 10% of the initial value.
func New(initialRPM, maxRPM float64) *Limiter {
	if initialRPM <= 0 {
		// Conservative default when callers do not provide a budget.
		initialRPM = 600
	}
	if maxRPM <= 0 || maxRPM < initialRPM {
		maxRPM = initialRPM
	}
	minRPM := initialRPM * 0.1
	if minRPM < 1 {
		minRPM = 1
	}
	recoveryRate := initialRPM * 0.05
	if recoveryRate < 1 {
		recoveryRate = 1
	}
	lim := rate.NewLimiter(rate.Limit(initialRPM/60.0), int(initialRPM/6)+1)

	return &Limiter{
		limiter:      lim,
		currentRPM:   initialRPM,
		minRPM:       minRPM,
		maxRPM:       maxRPM,
		recoveryRate: recoveryRate,
	}
}

// Wait blocks until the limiter grants one request or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	lim := l.limiter
	l.mu.Unlock()
	return lim.Wait(ctx)
}

// Observe feeds the outcome of a request back into the limiter. A 429
// triggers multiplicative backoff; success adds the additive recovery
// increment. Other failures leave the budget untouched.
func (l *Limiter) Observe(err error) {
	if err == nil {
		l.probe()
		return
	}
	var sc statusCoder
	if errors.As(err, &sc) && sc.HTTPStatus() == 429 {
		l.backoff()
	}
}

// RPM returns the current effective requests-per-minute budget.
func (l *Limiter) RPM() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentRPM
}

func (l *Limiter) backoff() {
	l.mu.Lock()
	defer l.mu.Unlock()

	newRPM := l.currentRPM * 0.5
	if newRPM < l.minRPM {
		newRPM = l.minRPM
	}
	if newRPM == l.currentRPM {
		return
	}
	l.setRPM(newRPM)
}

func (l *Limiter) probe() {
	l.mu.Lock()
	defer l.mu.Unlock()

	newRPM := l.currentRPM + l.recoveryRate
	if newRPM > l.maxRPM {
		newRPM = l.maxRPM
	}
	if newRPM == l.currentRPM {
		return
	}
	l.setRPM(newRPM)
}

// setRPM updates the bucket in place. Callers must hold l.mu.
func (l *Limiter) setRPM(rpm float64) {
	l.currentRPM = rpm
	l.limiter.SetLimit(rate.Limit(rpm / 60.0))
	burst := int(rpm/6) + 1
	l.limiter.SetBurst(burst)
}
