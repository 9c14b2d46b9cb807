// Package frame defines the in-memory representation of a captured frame.
package frame

import (
	"image"
	"image/draw"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
)

// State is the deletion lifecycle of a durable record.
type State uint8

const (
	Active          State = iota // Normal, visible record
	PendingDeletion              // Delete requested, awaiting confirmation
	Removed                      // Confirmed; no longer in any collection
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case PendingDeletion:
		return "pending-deletion"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Record is one captured frame.
//
// Pixels holds interleaved, non-premultiplied RGBA bytes in row-major order;
// len(Pixels) must equal Width*Height*4 (see Validate).
type Record struct {
	ID         string
	Label      string
	Width      uint32
	Height     uint32
	Pixels     []byte
	Marked     bool
	State      State
	CapturedAt time.Time
	Hash       uint64 // perceptual hash, 0 when not computed
}

// New builds a record from raw RGBA bytes captured at t.
// The caller owns the returned record; pixels are not copied.
func New(width, height uint32, pixels []byte, t time.Time) *Record {
	return &Record{
		ID:         uuid.NewString(),
		Label:      Label(t),
		Width:      width,
		Height:     height,
		Pixels:     pixels,
		CapturedAt: t,
	}
}

// Label formats a capture timestamp as a human readable record label.
func Label(t time.Time) string {
	return t.Format(LabelLayout)
}

// Validate checks the pixel buffer invariant.
func (r *Record) Validate() error {
	if r == nil {
		return apperrors.New(apperrors.InvalidRecord, "nil record")
	}
	want := uint64(r.Width) * uint64(r.Height) * BytesPerPixel
	if uint64(len(r.Pixels)) != want {
		return apperrors.Newf(apperrors.InvalidRecord,
			"pixel buffer is %d bytes, want %d for %dx%d", len(r.Pixels), want, r.Width, r.Height).
			WithMetadata("label", r.Label)
	}
	return nil
}

// PendingDeletion reports whether a delete is awaiting confirmation.
func (r *Record) PendingDeletion() bool {
	return r.State == PendingDeletion
}

// Exportable reports whether the record should go into an archive.
func (r *Record) Exportable() bool {
	return r.Marked && r.State == Active
}

// PixelOffset returns the byte offset of pixel (x, y). Rows are Width pixels long.
func (r *Record) PixelOffset(x, y int) int {
	return (x + y*int(r.Width)) * BytesPerPixel
}

// ToImage reinterprets the pixel buffer as a Width x Height grid.
// The returned image shares no memory with the record.
func (r *Record) ToImage() (*image.NRGBA, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	w, h := int(r.Width), int(r.Height)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := r.Pixels[r.PixelOffset(0, y):r.PixelOffset(w, y)]
		copy(img.Pix[y*img.Stride:y*img.Stride+w*BytesPerPixel], src)
	}
	return img, nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Pixels = append([]byte(nil), r.Pixels...)
	return &c
}

// FromImage converts any image into a record captured at t.
func FromImage(img image.Image, t time.Time) *Record {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) || nrgba.Stride != b.Dx()*BytesPerPixel {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}
	return New(uint32(b.Dx()), uint32(b.Dy()), nrgba.Pix[:b.Dx()*b.Dy()*BytesPerPixel], t)
}
