package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/resilience"
	"github.com/GriffinCanCode/snapshot/internal/session"
)

type fakeStore struct {
	mu       sync.Mutex
	saves    []session.State
	attempts int
	failN    int
	failAs   apperrors.ErrorCode
}

func (f *fakeStore) Save(_ context.Context, st session.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failN > 0 {
		f.failN--
		return apperrors.New(f.failAs, "injected")
	}
	f.saves = append(f.saves, st)
	return nil
}

func (f *fakeStore) Load(context.Context) (session.State, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saves) == 0 {
		return session.State{}, false, nil
	}
	return f.saves[len(f.saves)-1], true, nil
}

func (f *fakeStore) setFailures(n int) {
	f.mu.Lock()
	f.failN = n
	f.mu.Unlock()
}

func (f *fakeStore) tries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func snap(selected int) func() session.State {
	return func() session.State { return session.State{Selected: selected} }
}

func TestAutosaverDebounces(t *testing.T) {
	fs := &fakeStore{}
	a := NewAutosaver(fs, snap(3), 20*time.Millisecond)

	for i := 0; i < 5; i++ {
		a.Touch()
	}
	assert.Equal(t, 0, fs.count(), "saved before delay")

	require.Eventually(t, func() bool { return fs.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 1, fs.count(), "burst should produce one save")
	assert.NoError(t, a.Err())
}

func TestAutosaverFlush(t *testing.T) {
	fs := &fakeStore{}
	a := NewAutosaver(fs, snap(1), time.Hour)

	require.NoError(t, a.Flush(context.Background()))
	assert.Equal(t, 0, fs.count(), "nothing dirty, nothing saved")

	a.Touch()
	require.NoError(t, a.Flush(context.Background()))
	assert.Equal(t, 1, fs.count())

	st, found, _ := fs.Load(context.Background())
	assert.True(t, found)
	assert.Equal(t, 1, st.Selected)
}

func TestAutosaverRetriesBusy(t *testing.T) {
	fs := &fakeStore{failN: 2, failAs: apperrors.StoreBusy}
	a := NewAutosaver(fs, snap(0), time.Hour)

	a.Touch()
	require.NoError(t, a.Flush(context.Background()))
	assert.Equal(t, 1, fs.count())
}

func TestAutosaverKeepsDirtyOnFailure(t *testing.T) {
	fs := &fakeStore{failN: 1, failAs: apperrors.StoreFailed}
	a := NewAutosaver(fs, snap(0), time.Hour)

	a.Touch()
	err := a.Flush(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.StoreFailed))
	assert.Equal(t, err, a.Err())

	require.NoError(t, a.Flush(context.Background()))
	assert.Equal(t, 1, fs.count())
	assert.NoError(t, a.Err())
}

func TestAutosaverPausesAfterRepeatedFailures(t *testing.T) {
	fs := &fakeStore{failN: 100, failAs: apperrors.StoreFailed}
	b := resilience.New(resilience.Config{Name: "store", Threshold: 2, ResetTimeout: 30 * time.Millisecond, HalfOpenSuccesses: 1})
	a := NewAutosaver(fs, snap(0), time.Hour, WithBreaker(b))
	ctx := context.Background()

	a.Touch()
	for i := 0; i < 2; i++ {
		require.Error(t, a.Flush(ctx))
	}
	require.Equal(t, resilience.Open, b.State())
	tries := fs.tries()

	err := a.Flush(ctx)
	assert.ErrorIs(t, err, resilience.ErrOpen)
	assert.True(t, apperrors.IsCode(err, apperrors.StoreFailed))
	assert.Equal(t, tries, fs.tries(), "open breaker must not touch the store")

	fs.setFailures(0)
	time.Sleep(40 * time.Millisecond)
	require.NoError(t, a.Flush(ctx), "probe save after the reset timeout")
	assert.Equal(t, 1, fs.count())
	assert.Equal(t, resilience.Closed, b.State())
}

func TestAutosaverStop(t *testing.T) {
	fs := &fakeStore{}
	a := NewAutosaver(fs, snap(0), time.Hour)

	a.Touch()
	require.NoError(t, a.Stop(context.Background()))
	assert.Equal(t, 1, fs.count())

	a.Touch()
	require.NoError(t, a.Flush(context.Background()))
	assert.Equal(t, 1, fs.count(), "touch after stop must be ignored")
}

func TestAutosaverWithSQLite(t *testing.T) {
	s := openTemp(t)
	sess := session.New()
	a := NewAutosaver(s, sess.Snapshot, time.Hour)

	_ = sess.SetTab(session.HistogramView)
	a.Touch()
	require.NoError(t, a.Stop(context.Background()))

	st, found, err := s.Load(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, session.HistogramView, st.Tab)
}
