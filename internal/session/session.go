// Package session owns the state of one capture session: the durable record
// collection, selection, options and the live preview.
package session

import (
	"sync"

	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/export"
	"github.com/GriffinCanCode/snapshot/internal/frame"
	"github.com/GriffinCanCode/snapshot/internal/histogram"
	"github.com/GriffinCanCode/snapshot/internal/syncx"
)

// State is an immutable copy of everything a SessionStore persists.
// The live preview is never part of it.
type State struct {
	Tab      Tab
	Export   export.Options
	Selected int
	Mode     histogram.Space
	Records  []*frame.Record
}

// Session is safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	records  []*frame.Record
	selected int
	tab      Tab
	export   export.Options
	mode     histogram.Space
	maxDist  int
	onChange func()

	live *syncx.RWGuard[*frame.Record]
}

// Option configures a Session.
type Option func(*Session)

// WithMaxHashDistance sets the near-duplicate threshold used by Append.
func WithMaxHashDistance(d int) Option {
	return func(s *Session) { s.maxDist = d }
}

// WithExportOptions sets the initial export options.
func WithExportOptions(o export.Options) Option {
	return func(s *Session) { s.export = o }
}

// OnChange registers fn to be called after every persisted-state mutation.
// fn runs without the session lock held.
func OnChange(fn func()) Option {
	return func(s *Session) { s.onChange = fn }
}

// New creates an empty session on the TakePhoto tab.
func New(opts ...Option) *Session {
	s := &Session{
		export:  export.DefaultOptions(),
		mode:    histogram.RGB,
		maxDist: DefaultMaxHashDistance,
		live:    syncx.NewGuard[*frame.Record](nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Len returns the number of durable records, pending deletions included.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// clampLocked keeps selected inside [0, len-1], or 0 when empty.
func (s *Session) clampLocked() {
	switch {
	case len(s.records) == 0:
		s.selected = 0
	case s.selected < 0:
		s.selected = 0
	case s.selected >= len(s.records):
		s.selected = len(s.records) - 1
	}
}

// Selected returns the clamped selection index.
func (s *Session) Selected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clampLocked()
	return s.selected
}

// Select moves the selection to i modulo the record count; negative values
// count from the end. It is a no-op on an empty collection.
func (s *Session) Select(i int) int {
	s.mu.Lock()
	n := len(s.records)
	if n == 0 {
		s.selected = 0
		s.mu.Unlock()
		return 0
	}
	s.selected = ((i % n) + n) % n
	sel := s.selected
	s.mu.Unlock()
	s.changed()
	return sel
}

// Next advances the selection by one, wrapping.
func (s *Session) Next() int { return s.step(1) }

// Prev moves the selection back by one, wrapping.
func (s *Session) Prev() int { return s.step(-1) }

func (s *Session) step(delta int) int {
	s.mu.Lock()
	n := len(s.records)
	if n == 0 {
		s.selected = 0
		s.mu.Unlock()
		return 0
	}
	s.clampLocked()
	s.selected = ((s.selected+delta)%n + n) % n
	sel := s.selected
	s.mu.Unlock()
	s.changed()
	return sel
}

// Active returns a copy of the selected record.
func (s *Session) Active() (*frame.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clampLocked()
	if len(s.records) == 0 {
		return nil, false
	}
	return shallow(s.records[s.selected]), true
}

// At returns a copy of the record at i.
func (s *Session) At(i int) (*frame.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkLocked(i); err != nil {
		return nil, err
	}
	return shallow(s.records[i]), nil
}

// Find returns the index of the record whose ID or label equals key.
func (s *Session) Find(key string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, r := range s.records {
		if r.ID == key || r.Label == key {
			return i, true
		}
	}
	return -1, false
}

// Records returns copies of all durable records in order.
func (s *Session) Records() []*frame.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*frame.Record, len(s.records))
	for i, r := range s.records {
		out[i] = shallow(r)
	}
	return out
}

// Append adds a durable record at the end of the collection and returns its
// index. dup reports a near duplicate of the previous record.
func (s *Session) Append(rec *frame.Record) (index int, dup bool, err error) {
	if err := rec.Validate(); err != nil {
		return 0, false, err
	}
	rec.State = frame.Active

	s.mu.Lock()
	if n := len(s.records); n > 0 {
		if d, ok := frame.Distance(s.records[n-1], rec); ok && d <= s.maxDist {
			dup = true
		}
	}
	s.records = append(s.records, rec)
	index = len(s.records) - 1
	s.mu.Unlock()

	s.changed()
	return index, dup, nil
}

// SetMarked sets the export mark of record i.
func (s *Session) SetMarked(i int, marked bool) error {
	s.mu.Lock()
	if err := s.checkLocked(i); err != nil {
		s.mu.Unlock()
		return err
	}
	s.records[i].Marked = marked
	s.mu.Unlock()
	s.changed()
	return nil
}

// MarkedCount returns how many records would be exported.
func (s *Session) MarkedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.records {
		if r.Exportable() {
			n++
		}
	}
	return n
}

// Exportable returns copies of the marked, active records in order.
func (s *Session) Exportable() []*frame.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*frame.Record
	for _, r := range s.records {
		if r.Exportable() {
			out = append(out, shallow(r))
		}
	}
	return out
}

// MarkDelete flags record i for deletion. The record stays in the
// collection until ConfirmDelete. Marking a pending record again is a no-op.
func (s *Session) MarkDelete(i int) error {
	return s.transition(i, frame.Active, frame.PendingDeletion)
}

// CancelDelete returns a pending record to Active. Any other state is
// INVALID_STATE.
func (s *Session) CancelDelete(i int) error {
	return s.transition(i, frame.PendingDeletion, frame.Active)
}

// ConfirmDelete removes a pending record and re-clamps the selection.
func (s *Session) ConfirmDelete(i int) error {
	s.mu.Lock()
	if err := s.checkLocked(i); err != nil {
		s.mu.Unlock()
		return err
	}
	rec := s.records[i]
	if rec.State != frame.PendingDeletion {
		s.mu.Unlock()
		return stateError(rec, frame.PendingDeletion)
	}
	rec.State = frame.Removed
	s.records = append(s.records[:i:i], s.records[i+1:]...)
	s.clampLocked()
	s.mu.Unlock()

	s.changed()
	return nil
}

func (s *Session) transition(i int, from, to frame.State) error {
	s.mu.Lock()
	if err := s.checkLocked(i); err != nil {
		s.mu.Unlock()
		return err
	}
	rec := s.records[i]
	if rec.State == to && to == frame.PendingDeletion {
		s.mu.Unlock()
		return nil
	}
	if rec.State != from {
		s.mu.Unlock()
		return stateError(rec, from)
	}
	rec.State = to
	s.mu.Unlock()

	s.changed()
	return nil
}

func (s *Session) checkLocked(i int) error {
	if i < 0 || i >= len(s.records) {
		return apperrors.Newf(apperrors.NotFound, "no record at index %d of %d", i, len(s.records))
	}
	return nil
}

func stateError(rec *frame.Record, want frame.State) error {
	return apperrors.Newf(apperrors.InvalidState, "record is %s, want %s", rec.State, want).
		WithMetadata("label", rec.Label)
}

// Tab returns the active tab.
func (s *Session) Tab() Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tab
}

// SetTab switches the active tab.
func (s *Session) SetTab(t Tab) error {
	if !t.Valid() {
		return apperrors.Newf(apperrors.InvalidArgument, "invalid tab %d", uint8(t))
	}
	s.mu.Lock()
	s.tab = t
	s.mu.Unlock()
	s.changed()
	return nil
}

// ExportOptions returns the export options.
func (s *Session) ExportOptions() export.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.export
}

// SetExportOptions replaces the export options.
func (s *Session) SetExportOptions(o export.Options) {
	s.mu.Lock()
	s.export = o
	s.mu.Unlock()
	s.changed()
}

// HistogramMode returns the colour space used for histograms.
func (s *Session) HistogramMode() histogram.Space {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetHistogramMode switches the histogram colour space.
func (s *Session) SetHistogramMode(sp histogram.Space) {
	s.mu.Lock()
	s.mode = sp
	s.mu.Unlock()
	s.changed()
}

// Live returns the current live preview, nil before the first capture.
func (s *Session) Live() *frame.Record {
	return s.live.Get()
}

// LiveVersion counts live preview updates.
func (s *Session) LiveVersion() uint64 {
	return s.live.Version()
}

// SetLive replaces the live preview. It does not trigger OnChange.
func (s *Session) SetLive(rec *frame.Record) {
	s.live.Set(rec)
}

// Snapshot returns an immutable copy of the persisted state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clampLocked()
	recs := make([]*frame.Record, len(s.records))
	for i, r := range s.records {
		recs[i] = shallow(r)
	}
	return State{
		Tab:      s.tab,
		Export:   s.export,
		Selected: s.selected,
		Mode:     s.mode,
		Records:  recs,
	}
}

// Restore replaces the session state with st. The live preview is cleared.
func (s *Session) Restore(st State) {
	recs := make([]*frame.Record, 0, len(st.Records))
	for _, r := range st.Records {
		if r != nil && r.State != frame.Removed {
			recs = append(recs, shallow(r))
		}
	}

	s.mu.Lock()
	s.records = recs
	s.selected = st.Selected
	s.tab = st.Tab
	if !s.tab.Valid() {
		s.tab = TakePhoto
	}
	s.export = st.Export
	s.mode = st.Mode
	s.clampLocked()
	s.mu.Unlock()

	s.live.Set(nil)
}

// shallow copies the record header. Pixel buffers are never mutated after
// capture, so they are shared.
func shallow(r *frame.Record) *frame.Record {
	c := *r
	return &c
}
