package capture

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nfnt/resize"

	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/frame"
)

// Capturer reads frames from a Source and builds records from them.
// It never touches a record collection; callers decide what to keep.
type Capturer struct {
	src     Source
	divisor int
	now     func() time.Time
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithPreviewDivisor sets the downsample factor used for preview captures.
func WithPreviewDivisor(d int) Option {
	return func(c *Capturer) {
		if d > 0 {
			c.divisor = d
		}
	}
}

// WithClock overrides the timestamp source used for labels.
func WithClock(now func() time.Time) Option {
	return func(c *Capturer) { c.now = now }
}

// NewCapturer creates a capturer over src.
func NewCapturer(src Source, opts ...Option) *Capturer {
	c := &Capturer{src: src, divisor: DefaultPreviewDivisor, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the underlying frame source.
func (c *Capturer) Source() Source { return c.src }

// Capture grabs one frame.
//
// With fullQuality false the frame is downsampled by the preview divisor,
// clamped so neither dimension reaches zero. Full-quality captures are kept
// at native resolution and get a perceptual hash.
func (c *Capturer) Capture(ctx context.Context, fullQuality bool) (*frame.Record, error) {
	if c.src == nil {
		return nil, apperrors.New(apperrors.CaptureDeviceUnavailable, "no frame source configured")
	}

	w, h, pix, err := c.src.Grab(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSurface) {
			return nil, apperrors.Wrap(err, apperrors.CaptureDeviceUnavailable, "capture surface unavailable")
		}
		return nil, apperrors.Wrap(err, apperrors.CaptureReadFailed, "frame readback failed")
	}
	if w == 0 || h == 0 {
		return nil, apperrors.Newf(apperrors.CaptureDeviceUnavailable, "capture surface is %dx%d", w, h)
	}

	rec := frame.New(w, h, pix, c.now())
	if err := rec.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CaptureReadFailed, "frame readback returned a short buffer")
	}

	if fullQuality {
		if _, err := rec.Fingerprint(); err != nil {
			slog.Debug("fingerprint failed", "label", rec.Label, "error", err)
		}
		return rec, nil
	}
	return c.downsample(rec)
}

// downsample shrinks rec by the preview divisor.
func (c *Capturer) downsample(rec *frame.Record) (*frame.Record, error) {
	d := PreviewDivisor(c.divisor, rec.Width, rec.Height)
	if d == 1 {
		return rec, nil
	}

	img, err := rec.ToImage()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CaptureReadFailed, "frame readback returned a short buffer")
	}
	small := resize.Resize(uint(rec.Width/d), uint(rec.Height/d), img, resize.Bilinear)
	out := frame.FromImage(small, rec.CapturedAt)
	out.ID, out.Label = rec.ID, rec.Label
	return out, nil
}

// PreviewDivisor clamps divisor so that width/d and height/d are both at least 1.
func PreviewDivisor(divisor int, width, height uint32) uint32 {
	d := uint32(max(divisor, 1))
	d = min(d, max(width, 1), max(height, 1))
	return d
}
