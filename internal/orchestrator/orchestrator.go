// Package orchestrator drives the capture session: it refreshes the live
// preview every tick, renders the active tab into a View and runs the
// one-shot take and export actions.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/snapshot/internal/capture"
	"github.com/GriffinCanCode/snapshot/internal/deliver"
	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/export"
	"github.com/GriffinCanCode/snapshot/internal/frame"
	"github.com/GriffinCanCode/snapshot/internal/histogram"
	"github.com/GriffinCanCode/snapshot/internal/resilience"
	"github.com/GriffinCanCode/snapshot/internal/session"
	"github.com/GriffinCanCode/snapshot/internal/trace"
)

// View is what a front-end draws for one tick.
type View struct {
	Tab        session.Tab      `json:"tab"`
	Texture    *frame.Record    `json:"-"`
	Live       bool             `json:"live"` // Texture is the live preview
	Histogram  []histogram.Line `json:"histogram,omitempty"`
	Position   string           `json:"position,omitempty"` // "i/n" on the save tab
	Marked     bool             `json:"marked"`
	Pending    bool             `json:"pending_deletion"`
	Exportable int              `json:"exportable"`
	Status     string           `json:"status"`
	Diagnostic string           `json:"diagnostic,omitempty"`
	Degraded   bool             `json:"degraded"` // capture breaker open
}

// handler renders one tab.
type handler func(o *Orchestrator, ctx context.Context, v *View)

var handlers = map[session.Tab]handler{
	session.TakePhoto:     (*Orchestrator).tickTakePhoto,
	session.HistogramView: (*Orchestrator).tickHistogram,
	session.SavePhoto:     (*Orchestrator).tickSavePhoto,
}

// ExportResult describes a delivered archive.
type ExportResult struct {
	Filename string `json:"filename"`
	Records  int    `json:"records"`
	Bytes    int    `json:"bytes"`
}

// Orchestrator owns the tick loop. Tick and the actions are serialized.
type Orchestrator struct {
	sess     *session.Session
	capturer *capture.Capturer
	out      deliver.Deliverer
	breaker  *resilience.Breaker
	hist     *histogram.Histogram
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	frames uint64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFailureThreshold sets how many consecutive capture failures stop the
// live preview until Reload.
func WithFailureThreshold(n int) Option {
	return func(o *Orchestrator) { o.breaker = resilience.New(resilience.CaptureConfig(n)) }
}

// WithTickInterval sets the Run period.
func WithTickInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithClock overrides the clock used for archive names.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an orchestrator over sess.
func New(sess *session.Session, capturer *capture.Capturer, out deliver.Deliverer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sess:     sess,
		capturer: capturer,
		out:      out,
		breaker:  resilience.New(resilience.CaptureConfig(DefaultFailureThreshold)),
		hist:     histogram.New(histogram.RGB),
		interval: DefaultTickInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Session returns the session being driven.
func (o *Orchestrator) Session() *session.Session { return o.sess }

// Degraded reports whether the capture breaker is open.
func (o *Orchestrator) Degraded() bool { return o.breaker.State() == resilience.Open }

// Tick refreshes the live preview as the active tab requires and renders it.
func (o *Orchestrator) Tick(ctx context.Context) View {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frames++

	v := View{Tab: o.sess.Tab(), Exportable: o.sess.MarkedCount()}
	h, ok := handlers[v.Tab]
	if !ok {
		v.Diagnostic = fmt.Sprintf("no handler for tab %s", v.Tab)
		return v
	}
	h(o, ctx, &v)
	return v
}

func (o *Orchestrator) tickTakePhoto(ctx context.Context, v *View) {
	o.refreshLive(ctx, v)
	v.Status = fmt.Sprintf("%d photos", o.sess.Len())
}

func (o *Orchestrator) tickHistogram(ctx context.Context, v *View) {
	o.refreshLive(ctx, v)
	o.hist.Space = o.sess.HistogramMode()
	v.Status = o.hist.Space.String()
	if v.Texture == nil {
		return
	}
	if err := o.hist.Update(v.Texture); err != nil {
		v.Diagnostic = err.Error()
		return
	}
	v.Histogram = o.hist.Lines()
}

func (o *Orchestrator) tickSavePhoto(ctx context.Context, v *View) {
	rec, ok := o.sess.Active()
	if !ok {
		o.refreshLive(ctx, v)
		v.Status = StatusNoPhotos
		return
	}
	v.Texture = rec
	v.Position = fmt.Sprintf("%d/%d", o.sess.Selected()+1, o.sess.Len())
	v.Marked = rec.Marked
	v.Pending = rec.PendingDeletion()
	v.Status = rec.Label
	if v.Pending {
		v.Status = StatusConfirm
	}
}

// refreshLive grabs a reduced-quality frame. A failed grab keeps the
// previous texture and reports the error in the view.
func (o *Orchestrator) refreshLive(ctx context.Context, v *View) {
	v.Live = true
	defer func() { v.Texture = o.sess.Live() }()

	rec, err := o.capture(ctx, false)
	switch {
	case errors.Is(err, resilience.ErrOpen):
		v.Degraded = true
		v.Diagnostic = StatusReloadHint
	case err != nil:
		v.Diagnostic = err.Error()
		v.Degraded = o.Degraded()
		trace.Logger(ctx).Debug("live capture failed", "error", err, "failures", o.breaker.Failures())
	default:
		o.sess.SetLive(rec)
	}
}

// capture grabs a frame through the capture breaker.
func (o *Orchestrator) capture(ctx context.Context, fullQuality bool) (*frame.Record, error) {
	return resilience.ExecuteWithResult(o.breaker, func() (*frame.Record, error) {
		return o.capturer.Capture(ctx, fullQuality)
	})
}

// TakePhoto captures a full-quality frame and appends it to the session.
// dup reports that it looks like the previous photo.
func (o *Orchestrator) TakePhoto(ctx context.Context) (rec *frame.Record, dup bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, span := trace.StartSpan(ctx, "take_photo")
	defer span.End()
	log := trace.Logger(ctx)

	rec, err = o.capture(ctx, true)
	if errors.Is(err, resilience.ErrOpen) {
		return nil, false, apperrors.Wrap(err, apperrors.CaptureDeviceUnavailable, StatusReloadHint)
	}
	if err != nil {
		span.RecordError(err)
		log.Warn("photo capture failed", "error", err, "span", span)
		return nil, false, err
	}

	idx, dup, err := o.sess.Append(rec)
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	span.SetAttr("index", idx)
	span.SetAttr("label", rec.Label)
	if dup {
		log.Warn("photo looks like the previous one", "label", rec.Label)
	}
	log.Info("photo taken", "span", span)
	return rec, dup, nil
}

// Export packs the marked records and hands the archive to the deliverer.
// Nothing is delivered when encoding fails.
func (o *Orchestrator) Export(ctx context.Context) (ExportResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, span := trace.StartSpan(ctx, "export_photos")
	defer span.End()

	if o.out == nil {
		return ExportResult{}, apperrors.New(apperrors.DeliveryTargetUnavailable, "no delivery target configured")
	}

	records := o.sess.Exportable()
	data, err := export.New(o.sess.ExportOptions()).Export(ctx, records)
	if err != nil {
		span.RecordError(err)
		return ExportResult{}, err
	}

	res := ExportResult{Filename: export.ArchiveName(o.now()), Records: len(records), Bytes: len(data)}
	if err := o.out.Deliver(ctx, data, res.Filename, export.MIMEType); err != nil {
		span.RecordError(err)
		return ExportResult{}, err
	}
	span.SetAttr("filename", res.Filename)
	span.SetAttr("records", res.Records)
	trace.Logger(ctx).Info("photos exported", "span", span)
	return res, nil
}

// Reload clears the capture failure state so the next tick grabs again.
func (o *Orchestrator) Reload() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.breaker.Reset()
	trace.Logger(context.Background()).Info("capture reloaded")
}

// Frames returns the number of ticks run so far.
func (o *Orchestrator) Frames() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frames
}

// Run ticks until ctx is done or maxFrames ticks have run (0 means no
// limit), passing every view to render.
func (o *Orchestrator) Run(ctx context.Context, maxFrames int, render func(View)) error {
	ctx, _ = trace.EnsureContext(ctx)
	log := trace.Logger(ctx)
	log.Info("tick loop started", "interval", o.interval, "max_frames", maxFrames)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for n := 0; maxFrames <= 0 || n < maxFrames; n++ {
		select {
		case <-ctx.Done():
			log.Info("tick loop stopped", "frames", n)
			return nil
		case <-ticker.C:
			v := o.Tick(ctx)
			if render != nil {
				render(v)
			}
		}
	}
	log.Info("tick loop finished", "frames", maxFrames)
	return nil
}
