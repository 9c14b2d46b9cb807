package capture

import (
	"context"
	"fmt"
	"sync/atomic"
)

// PatternSource produces a deterministic test card that shifts one pixel per grab.
type PatternSource struct {
	width, height uint32
	tick          atomic.Uint32
}

// NewPatternSource creates a synthetic source. Zero dimensions fall back to defaults.
func NewPatternSource(width, height uint32) *PatternSource {
	if width == 0 {
		width = DefaultPatternWidth
	}
	if height == 0 {
		height = DefaultPatternHeight
	}
	return &PatternSource{width: width, height: height}
}

// Grab renders the next pattern frame.
func (p *PatternSource) Grab(ctx context.Context) (uint32, uint32, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, nil, fmt.Errorf("pattern grab: %w", err)
	}
	off := p.tick.Add(1) - 1
	w, h := p.width, p.height
	pix := make([]byte, int(w)*int(h)*4)
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			i := int(x+y*w) * 4
			pix[i] = byte((x + off) * 255 / max(w, 1))
			pix[i+1] = byte(y * 255 / max(h, 1))
			pix[i+2] = byte(((x/16 + y/16 + off/8) % 2) * 255)
			pix[i+3] = 255
		}
	}
	return w, h, pix, nil
}
