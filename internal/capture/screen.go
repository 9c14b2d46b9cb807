package capture

import (
	"context"
	"fmt"

	"github.com/kbinani/screenshot"
)

// ScreenSource grabs one display of the desktop.
type ScreenSource struct {
	display int
}

// NewScreenSource creates a source for the given display index (0 is primary).
func NewScreenSource(display int) *ScreenSource {
	return &ScreenSource{display: display}
}

// Grab captures the display at its native resolution.
func (s *ScreenSource) Grab(ctx context.Context) (uint32, uint32, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, nil, fmt.Errorf("screen grab: %w", err)
	}
	if n := screenshot.NumActiveDisplays(); s.display < 0 || s.display >= n {
		return 0, 0, nil, fmt.Errorf("display %d of %d: %w", s.display, n, ErrNoSurface)
	}

	bounds := screenshot.GetDisplayBounds(s.display)
	if bounds.Empty() {
		return 0, 0, nil, fmt.Errorf("display %d has empty bounds: %w", s.display, ErrNoSurface)
	}

	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("capture display %d: %w", s.display, err)
	}
	w, h, pix := rgbaBytes(img)
	return w, h, pix, nil
}
