// Package capture grabs raw frames from a frame source and turns them into records.
package capture

import (
	"context"
	"errors"
)

// ErrNoSurface is returned by a Source when there is nothing to capture from:
// no device, no display, an empty directory, or a zero-sized surface.
var ErrNoSurface = errors.New("capture surface unavailable")

// Source yields raw RGBA pixel buffers on demand.
//
// Grab returns the native size of the surface and its pixels as interleaved,
// row-major, non-premultiplied RGBA. Implementations return an error wrapping
// ErrNoSurface when the surface cannot be located or sized; any other error
// means the pixel readback itself failed.
type Source interface {
	Grab(ctx context.Context) (width, height uint32, rgba []byte, err error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (uint32, uint32, []byte, error)

// Grab calls f.
func (f SourceFunc) Grab(ctx context.Context) (uint32, uint32, []byte, error) {
	return f(ctx)
}

// Closer is implemented by sources that hold resources.
type Closer interface {
	Close() error
}

// Close releases src if it holds resources.
func Close(src Source) error {
	if c, ok := src.(Closer); ok {
		return c.Close()
	}
	return nil
}
