// Package resilience provides fault tolerance patterns for frame sources and
// the session store.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State is a breaker position.
type State uint8

const (
	Closed   State = iota // calls flow
	Open                  // calls rejected with ErrOpen
	HalfOpen              // probing after ResetTimeout
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker open")

// Breaker counts consecutive failures of a dependency and stops calling it
// once Threshold is reached. Unless ManualReset is set it lets probe calls
// through after ResetTimeout and closes again after HalfOpenSuccesses of them
// succeed.
type Breaker struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
}

// New creates a closed breaker.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg.withDefaults(), now: time.Now}
}

// Allow returns nil if a call may proceed, ErrOpen otherwise.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return nil
	}
	if b.cfg.ManualReset || b.now().Sub(b.openedAt) < b.cfg.ResetTimeout {
		return ErrOpen
	}
	b.setLocked(HalfOpen)
	return nil
}

// Success records a call that worked.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state != HalfOpen {
		return
	}
	b.successes++
	if b.successes >= b.cfg.HalfOpenSuccesses {
		b.setLocked(Closed)
	}
}

// Failure records a call that failed. A failed probe reopens immediately.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == HalfOpen || (b.state == Closed && b.failures >= b.cfg.Threshold) {
		b.setLocked(Open)
	}
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset closes the breaker and forgets past failures.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.setLocked(Closed)
}

func (b *Breaker) setLocked(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.successes = 0

	log := slog.With("breaker", b.cfg.Name, "from", from.String())
	switch to {
	case Open:
		b.openedAt = b.now()
		log.Warn("circuit breaker opened", "failures", b.failures, "manual_reset", b.cfg.ManualReset)
	case HalfOpen:
		log.Info("circuit breaker probing")
	case Closed:
		log.Info("circuit breaker closed")
	}
}

// Execute runs fn unless the breaker is open and records its outcome.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		b.Failure()
		return err
	}
	b.Success()
	return nil
}

// ExecuteWithResult is Execute for calls that return a value.
func ExecuteWithResult[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if err := b.Allow(); err != nil {
		return zero, err
	}
	v, err := fn()
	if err != nil {
		b.Failure()
		return zero, err
	}
	b.Success()
	return v, nil
}
