// Package resilience guards calls to external services that may be down.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without invoking the call while the breaker is
// rejecting traffic.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker trips after a run of consecutive failures and rejects calls until a
// cooldown deadline passes. The first call after the deadline runs as a lone
// probe: its outcome decides whether the breaker closes again or re-arms the
// cooldown. Safe for concurrent use.
type Breaker struct {
	mu          sync.Mutex
	state       breakerState
	failures    int
	maxFailures int
	cooldown    time.Duration
	reopenAt    time.Time
	probing     bool
	clock       func() time.Time
}

// NewBreaker creates a breaker that opens after maxFailures consecutive
// failures and stays open for cooldown before probing.
func NewBreaker(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		clock:       time.Now,
	}
}

// Execute runs fn unless the breaker is rejecting calls, in which case it
// returns ErrCircuitOpen and fn is never invoked. fn's error passes through
// unwrapped.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.preflight(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// State names the current position of the breaker, for log lines.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}

// preflight decides whether the next call may proceed, moving the breaker to
// half-open when the cooldown has lapsed. In half-open only one probe may be
// in flight; everything else is rejected until the probe settles.
func (b *Breaker) preflight() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateOpen:
		if b.clock().Before(b.reopenAt) {
			return ErrCircuitOpen
		}
		b.state = stateHalfOpen
		b.probing = true
		return nil
	case stateHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// record applies a call outcome.
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateHalfOpen {
		b.probing = false
		if err != nil {
			b.trip()
			return
		}
		b.state = stateClosed
		b.failures = 0
		return
	}

	if err != nil {
		b.failures++
		if b.failures >= b.maxFailures {
			b.trip()
		}
		return
	}
	b.failures = 0
}

// trip opens the breaker and arms the cooldown. Caller holds mu.
func (b *Breaker) trip() {
	b.state = stateOpen
	b.failures = 0
	b.reopenAt = b.clock().Add(b.cooldown)
}
