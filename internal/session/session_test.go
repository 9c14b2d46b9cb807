package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/export"
	"github.com/GriffinCanCode/snapshot/internal/frame"
	"github.com/GriffinCanCode/snapshot/internal/histogram"
)

var base = time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

func record(i int) *frame.Record {
	return frame.New(2, 2, make([]byte, 16), base.Add(time.Duration(i)*time.Second))
}

func filled(t *testing.T, n int) *Session {
	t.Helper()
	s := New()
	for i := 0; i < n; i++ {
		_, _, err := s.Append(record(i))
		require.NoError(t, err)
	}
	return s
}

func TestSelectWraps(t *testing.T) {
	s := filled(t, 3)

	tests := []struct {
		in, want int
	}{
		{0, 0}, {2, 2}, {3, 0}, {4, 1}, {-1, 2}, {-4, 2}, {7, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Select(tt.in), "Select(%d)", tt.in)
		assert.Equal(t, tt.want, s.Selected())
	}
}

func TestSelectEmptyIsNoop(t *testing.T) {
	s := New()
	assert.Equal(t, 0, s.Select(5))
	assert.Equal(t, 0, s.Next())
	_, ok := s.Active()
	assert.False(t, ok)
}

// Advancing Len times returns to the starting record.
func TestNextCyclesBack(t *testing.T) {
	for n := 1; n <= 6; n++ {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			s := filled(t, n)
			for start := 0; start < n; start++ {
				s.Select(start)
				for i := 0; i < n; i++ {
					s.Next()
				}
				assert.Equal(t, start, s.Selected())
				for i := 0; i < n; i++ {
					s.Prev()
				}
				assert.Equal(t, start, s.Selected())
			}
		})
	}
}

func TestDeleteLifecycle(t *testing.T) {
	s := filled(t, 3)
	target, err := s.At(1)
	require.NoError(t, err)

	require.NoError(t, s.MarkDelete(1))
	rec, _ := s.At(1)
	assert.True(t, rec.PendingDeletion())
	assert.Equal(t, 3, s.Len(), "mark must not remove")

	require.NoError(t, s.CancelDelete(1))
	rec, _ = s.At(1)
	assert.Equal(t, frame.Active, rec.State)

	require.NoError(t, s.MarkDelete(1))
	require.NoError(t, s.ConfirmDelete(1))

	assert.Equal(t, 2, s.Len())
	for _, r := range s.Records() {
		assert.NotEqual(t, target.Label, r.Label)
	}
}

func TestConfirmDeleteRequiresPending(t *testing.T) {
	s := filled(t, 2)

	err := s.ConfirmDelete(0)
	assert.True(t, apperrors.IsCode(err, apperrors.InvalidState), "got %v", err)
	assert.Equal(t, 2, s.Len())

	err = s.CancelDelete(0)
	assert.True(t, apperrors.IsCode(err, apperrors.InvalidState), "got %v", err)
}

func TestCancelDeleteOnActiveRecord(t *testing.T) {
	s := filled(t, 1)

	err := s.CancelDelete(0)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.InvalidState), "got %v", err)

	rec, err := s.At(0)
	require.NoError(t, err)
	assert.Equal(t, frame.Active, rec.State)
}

func TestMarkDeleteTwiceIsNoop(t *testing.T) {
	s := filled(t, 1)
	calls := 0
	s.onChange = func() { calls++ }

	require.NoError(t, s.MarkDelete(0))
	require.NoError(t, s.MarkDelete(0))
	assert.Equal(t, 1, calls)

	require.NoError(t, s.CancelDelete(0))
	err := s.CancelDelete(0)
	assert.True(t, apperrors.IsCode(err, apperrors.InvalidState), "got %v", err)
}

func TestConcurrentNextStepsOnce(t *testing.T) {
	s := filled(t, 7) // selection starts on the last record
	const steps = 50

	var wg sync.WaitGroup
	for i := 0; i < steps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Next()
		}()
	}
	wg.Wait()

	assert.Equal(t, (6+steps)%7, s.Selected())

	for i := 0; i < steps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Prev()
		}()
	}
	wg.Wait()
	assert.Equal(t, 6, s.Selected())
}

func TestOutOfRange(t *testing.T) {
	s := filled(t, 1)
	for _, err := range []error{
		s.MarkDelete(5),
		s.ConfirmDelete(-1),
		s.SetMarked(1, true),
	} {
		assert.True(t, apperrors.IsCode(err, apperrors.NotFound), "got %v", err)
	}
	_, err := s.At(9)
	assert.True(t, apperrors.IsCode(err, apperrors.NotFound))
}

func TestConfirmDeleteReclampsSelection(t *testing.T) {
	s := filled(t, 3)
	s.Select(2)
	require.NoError(t, s.MarkDelete(2))
	require.NoError(t, s.ConfirmDelete(2))
	assert.Equal(t, 1, s.Selected())

	require.NoError(t, s.MarkDelete(0))
	require.NoError(t, s.ConfirmDelete(0))
	require.NoError(t, s.MarkDelete(0))
	require.NoError(t, s.ConfirmDelete(0))
	assert.Equal(t, 0, s.Selected())
	assert.Zero(t, s.Len())
}

func TestMarkedAndExportable(t *testing.T) {
	s := filled(t, 4)
	require.NoError(t, s.SetMarked(0, true))
	require.NoError(t, s.SetMarked(2, true))
	require.NoError(t, s.SetMarked(3, true))
	require.NoError(t, s.MarkDelete(3))

	assert.Equal(t, 2, s.MarkedCount())
	out := s.Exportable()
	require.Len(t, out, 2)
	recs := s.Records()
	assert.Equal(t, recs[0].ID, out[0].ID)
	assert.Equal(t, recs[2].ID, out[1].ID)
}

func TestAppendRejectsCorrupt(t *testing.T) {
	s := New()
	_, _, err := s.Append(frame.New(4, 4, make([]byte, 3), base))
	assert.True(t, apperrors.IsCode(err, apperrors.InvalidRecord))
	assert.Zero(t, s.Len())
}

func TestAppendNearDuplicate(t *testing.T) {
	s := New(WithMaxHashDistance(4))

	a, b, c := record(0), record(1), record(2)
	a.Hash = 0xF0F0F0F0F0F0F0F0
	b.Hash = 0xF0F0F0F0F0F0F0F1
	c.Hash = 0x0F0F0F0F0F0F0F0F

	_, dup, err := s.Append(a)
	require.NoError(t, err)
	assert.False(t, dup)
	_, dup, _ = s.Append(b)
	assert.True(t, dup)
	_, dup, _ = s.Append(c)
	assert.False(t, dup)
}

func TestRecordsAreCopies(t *testing.T) {
	s := filled(t, 1)
	recs := s.Records()
	recs[0].Marked = true
	recs[0].State = frame.PendingDeletion

	got, _ := s.At(0)
	assert.False(t, got.Marked)
	assert.Equal(t, frame.Active, got.State)
}

func TestLivePreviewNotPersisted(t *testing.T) {
	s := New()
	assert.Nil(t, s.Live())

	live := record(9)
	s.SetLive(live)
	assert.Same(t, live, s.Live())
	assert.Equal(t, uint64(1), s.LiveVersion())

	st := s.Snapshot()
	assert.Empty(t, st.Records)

	s.Restore(st)
	assert.Nil(t, s.Live())
}

func TestSnapshotRestore(t *testing.T) {
	s := filled(t, 3)
	require.NoError(t, s.SetMarked(1, true))
	require.NoError(t, s.MarkDelete(2))
	require.NoError(t, s.SetTab(SavePhoto))
	s.SetExportOptions(export.Options{JPEG: true, PNG: true, Quality: 80})
	s.SetHistogramMode(histogram.OkLab)
	s.Select(1)

	st := s.Snapshot()

	other := New()
	other.Restore(st)
	assert.Equal(t, st, other.Snapshot())
	assert.Equal(t, SavePhoto, other.Tab())
	assert.Equal(t, histogram.OkLab, other.HistogramMode())
	assert.True(t, other.ExportOptions().PNG)
}

func TestRestoreClampsSelection(t *testing.T) {
	s := New()
	s.Restore(State{Selected: 7, Tab: Tab(42), Records: []*frame.Record{record(0), record(1)}})
	assert.Equal(t, 1, s.Selected())
	assert.Equal(t, TakePhoto, s.Tab())
}

func TestOnChange(t *testing.T) {
	var calls atomic.Int32
	s := New(OnChange(func() { calls.Add(1) }))

	_, _, _ = s.Append(record(0))
	_ = s.SetMarked(0, true)
	s.SetLive(record(1))
	_ = s.SetTab(HistogramView)

	assert.Equal(t, int32(3), calls.Load())
}

func TestFind(t *testing.T) {
	s := filled(t, 3)
	recs := s.Records()

	i, ok := s.Find(recs[2].ID)
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	i, ok = s.Find(recs[1].Label)
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = s.Find("nope")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	s := filled(t, 5)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); s.Next() }()
		go func() { defer wg.Done(); _ = s.Snapshot() }()
		go func(i int) { defer wg.Done(); _ = s.SetMarked(i%5, i%2 == 0) }(i)
	}
	wg.Wait()
	assert.Equal(t, 5, s.Len())
}

func TestParseTab(t *testing.T) {
	for _, tab := range Tabs {
		got, err := ParseTab(tab.String())
		require.NoError(t, err)
		assert.Equal(t, tab, got)
	}
	_, err := ParseTab("settings")
	assert.True(t, apperrors.IsCode(err, apperrors.InvalidArgument))
	assert.False(t, Tab(9).Valid())
}
