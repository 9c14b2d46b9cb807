// Package histogram computes binned colour distributions over a frame.
package histogram

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/frame"
)

// Space selects the colour space used for binning.
type Space uint8

const (
	RGB   Space = iota // Raw sRGB channel intensities
	OkLab              // Perceptual lightness plus two opponent axes
)

// Spaces lists every supported space in display order.
var Spaces = []Space{RGB, OkLab}

func (s Space) String() string {
	switch s {
	case RGB:
		return "rgb"
	case OkLab:
		return "oklab"
	default:
		return "unknown"
	}
}

// ParseSpace resolves a space from its name.
func ParseSpace(name string) (Space, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rgb":
		return RGB, nil
	case "oklab", "lab", "perceptual":
		return OkLab, nil
	}
	return RGB, apperrors.Newf(apperrors.InvalidArgument, "unknown histogram space %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Space) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Space) UnmarshalText(b []byte) error {
	v, err := ParseSpace(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Histogram is a 64-bin, 3-series distribution.
//
// In RGB mode the series are R, G and B. In OkLab mode they are the a axis,
// the b axis and lightness, in that order.
type Histogram struct {
	Space Space
	Bins  [Bins][Series]float32
}

// New returns an empty histogram for space.
func New(space Space) *Histogram {
	return &Histogram{Space: space}
}

// Update recomputes the histogram from scratch for rec.
//
// Values are normalized to [0, 1/Headroom]. A record with no pixels leaves
// every bin at zero. A corrupt record returns its validation error and also
// leaves the bins zeroed.
func (h *Histogram) Update(rec *frame.Record) error {
	h.Bins = [Bins][Series]float32{}
	if err := rec.Validate(); err != nil {
		return err
	}

	// Counted in integers: a float32 bin stops growing past 2^24.
	var counts [Bins][Series]uint32
	px := rec.Pixels
	switch h.Space {
	case RGB:
		for i := 0; i+3 < len(px); i += frame.BytesPerPixel {
			counts[px[i]/4][0]++
			counts[px[i+1]/4][1]++
			counts[px[i+2]/4][2]++
		}
	case OkLab:
		for i := 0; i+3 < len(px); i += frame.BytesPerPixel {
			l, a, b := okLab(px[i], px[i+1], px[i+2])
			counts[binIndex((a+0.5)*Bins)][0]++
			counts[binIndex((b+0.5)*Bins)][1]++
			counts[binIndex(l*(Bins-1))][2]++
		}
	default:
		return apperrors.Newf(apperrors.InvalidArgument, "unsupported histogram space %d", h.Space)
	}

	h.normalize(&counts)
	return nil
}

// normalize scales counts so the tallest bin sits at 1/Headroom.
// Lightness in OkLab mode is scaled by its own maximum.
func (h *Histogram) normalize(counts *[Bins][Series]uint32) {
	var max, lightMax uint32
	for _, bin := range counts {
		for ch, v := range bin {
			if v > max {
				max = v
			}
			if ch == 2 && v > lightMax {
				lightMax = v
			}
		}
	}

	for i := range counts {
		for ch, v := range counts[i] {
			div := max
			if h.Space == OkLab && ch == 2 {
				div = lightMax
			}
			if div == 0 {
				continue
			}
			h.Bins[i][ch] = float32(float64(v) / (float64(div) * Headroom))
		}
	}
}

// Peak returns the tallest bin of a series. Ties resolve to the lowest bin.
func (h *Histogram) Peak(series int) (bin int, value float32) {
	for i := range h.Bins {
		if v := h.Bins[i][series]; v > value {
			bin, value = i, v
		}
	}
	return bin, value
}

// Point is one plotted sample.
type Point struct {
	X int     `json:"x"`
	Y float32 `json:"y"`
}

// Line is a plottable series.
type Line struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Lines returns the histogram as plot lines.
//
// RGB yields one line per channel. OkLab splits each opponent axis at the
// neutral bin so negative and positive halves can be coloured separately,
// and adds lightness as one line.
func (h *Histogram) Lines() []Line {
	collect := func(name string, series, from, to int) Line {
		l := Line{Name: name, Points: make([]Point, 0, to-from+1)}
		for i := from; i <= to; i++ {
			l.Points = append(l.Points, Point{X: i, Y: h.Bins[i][series]})
		}
		return l
	}

	if h.Space == OkLab {
		mid := Bins / 2
		return []Line{
			collect("a-", 0, 0, mid),
			collect("b-", 1, 0, mid),
			collect("l", 2, 0, Bins-1),
			collect("a+", 0, mid, Bins-1),
			collect("b+", 1, mid, Bins-1),
		}
	}
	return []Line{
		collect("r", 0, 0, Bins-1),
		collect("g", 1, 0, Bins-1),
		collect("b", 2, 0, Bins-1),
	}
}

// SeriesNames returns the three series names for the histogram's space.
func (h *Histogram) SeriesNames() [Series]string {
	if h.Space == OkLab {
		return [Series]string{"a", "b", "l"}
	}
	return [Series]string{"r", "g", "b"}
}

// String renders the non-empty bins as a fixed-width table.
func (h *Histogram) String() string {
	var sb strings.Builder
	names := h.SeriesNames()
	fmt.Fprintf(&sb, "space: %s\n", h.Space)
	fmt.Fprintf(&sb, "bin  %6s  %6s  %6s\n", names[0], names[1], names[2])
	for i, bin := range h.Bins {
		if bin[0] == 0 && bin[1] == 0 && bin[2] == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%3d  %.4f  %.4f  %.4f\n", i, bin[0], bin[1], bin[2])
	}
	return sb.String()
}

// okLab converts an 8-bit sRGB triple.
func okLab(r, g, b uint8) (l, a, bb float64) {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	return c.OkLab()
}

func binIndex(v float64) int {
	i := int(math.Floor(v))
	if i < 0 {
		return 0
	}
	if i >= Bins {
		return Bins - 1
	}
	return i
}
