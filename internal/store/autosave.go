package store

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/resilience"
	"github.com/GriffinCanCode/snapshot/internal/session"
	"github.com/GriffinCanCode/snapshot/internal/trace"
)

// Autosaver debounces session saves: a burst of changes produces one write
// after the burst has been quiet for the configured delay.
type Autosaver struct {
	store    SessionStore
	snapshot func() session.State
	delay    time.Duration
	retry    resilience.RetryConfig
	breaker  *resilience.Breaker

	mu      sync.Mutex
	timer   *time.Timer
	dirty   bool
	stopped bool
	lastErr error

	saveMu sync.Mutex // serializes writes
}

// AutosaveOption configures an Autosaver.
type AutosaveOption func(*Autosaver)

// WithBreaker replaces the breaker that pauses saving after repeated
// failures.
func WithBreaker(b *resilience.Breaker) AutosaveOption {
	return func(a *Autosaver) { a.breaker = b }
}

// NewAutosaver creates an autosaver that persists snapshot() into store.
func NewAutosaver(store SessionStore, snapshot func() session.State, delay time.Duration, opts ...AutosaveOption) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	a := &Autosaver{
		store:    store,
		snapshot: snapshot,
		delay:    delay,
		retry:    resilience.StoreRetryConfig(),
		breaker:  resilience.New(resilience.StoreConfig(DefaultFailureThreshold)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Touch records a change and (re)arms the save timer.
func (a *Autosaver) Touch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}

	a.dirty = true
	if a.timer == nil {
		a.timer = time.AfterFunc(a.delay, a.timerFlush)
	} else {
		a.timer.Reset(a.delay)
	}
}

func (a *Autosaver) timerFlush() {
	_ = a.flush(context.Background())
}

// Flush saves immediately if there are unsaved changes.
func (a *Autosaver) Flush(ctx context.Context) error {
	return a.flush(ctx)
}

func (a *Autosaver) flush(ctx context.Context) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	a.mu.Lock()
	if !a.dirty {
		a.mu.Unlock()
		return nil
	}
	a.dirty = false
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	ctx, span := trace.StartSpan(ctx, "autosave_flush")
	defer span.End()

	st := a.snapshot()
	span.SetAttr("records", len(st.Records))
	err := a.breaker.Execute(func() error {
		return resilience.Retry(ctx, a.retry, func() error {
			return a.store.Save(ctx, st)
		})
	})
	if errors.Is(err, resilience.ErrOpen) {
		err = apperrors.Wrap(err, apperrors.StoreFailed, "saving paused after repeated failures")
	}

	a.mu.Lock()
	a.lastErr = err
	if err != nil {
		a.dirty = true // try again on the next flush
	}
	a.mu.Unlock()

	log := trace.Logger(ctx)
	if err != nil {
		span.RecordError(err)
		log.Warn("autosave failed", "error", err, "span", span)
		return err
	}
	log.Debug("autosaved", "span", span)
	return nil
}

// Err returns the result of the most recent save.
func (a *Autosaver) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Stop cancels the timer and flushes pending changes, waiting for an
// in-flight timer save first. Touch is ignored afterwards.
func (a *Autosaver) Stop(ctx context.Context) error {
	a.mu.Lock()
	a.stopped = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	return a.flush(ctx)
}
