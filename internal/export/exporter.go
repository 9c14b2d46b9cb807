// Package export packs marked records into a zip archive of encoded images.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/frame"
	"github.com/GriffinCanCode/snapshot/internal/trace"
)

// Options selects the encodings written for each record.
type Options struct {
	JPEG    bool
	PNG     bool
	Quality int // JPEG quality 1-100, 0 means DefaultQuality
}

// DefaultOptions writes JPEG only.
func DefaultOptions() Options {
	return Options{JPEG: true, Quality: DefaultQuality}
}

// Exporter builds archives. It holds no state between calls.
type Exporter struct {
	opts Options
}

// New creates an exporter.
func New(opts Options) *Exporter {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	return &Exporter{opts: opts}
}

// Options returns the effective options.
func (e *Exporter) Options() Options { return e.opts }

// ArchiveName returns the download filename for an export made at t.
func ArchiveName(t time.Time) string {
	return t.Format(ArchiveLayout) + ArchiveSuffix
}

// Export encodes every marked, active record in order and returns the archive
// bytes. On any failure no bytes are returned. With both encodings disabled
// the result is a valid empty archive.
func (e *Exporter) Export(ctx context.Context, records []*frame.Record) ([]byte, error) {
	ctx, span := trace.StartSpan(ctx, "export")
	defer span.End()
	log := trace.Logger(ctx)

	if !e.opts.JPEG && !e.opts.PNG {
		log.Warn("export requested with every format disabled, archive will be empty")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := newNamer()
	entries := 0

	for _, rec := range records {
		if rec == nil || !rec.Exportable() {
			continue
		}
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			return nil, apperrors.Wrap(err, apperrors.ExportWriteFailed, "export cancelled")
		}

		img, err := rec.ToImage()
		if err != nil {
			span.RecordError(err)
			return nil, apperrors.Wrap(err, apperrors.ExportEncodeFailed, "record cannot be encoded").
				WithMetadata("label", rec.Label)
		}

		if e.opts.JPEG {
			if err := e.writeEntry(zw, names.next(rec.Label, extJPEG), rec.CapturedAt, func(w io.Writer) error {
				return jpeg.Encode(w, opaque(img), &jpeg.Options{Quality: e.opts.Quality})
			}); err != nil {
				span.RecordError(err)
				return nil, err
			}
			entries++
		}
		if e.opts.PNG {
			if err := e.writeEntry(zw, names.next(rec.Label, extPNG), rec.CapturedAt, func(w io.Writer) error {
				return png.Encode(w, img)
			}); err != nil {
				span.RecordError(err)
				return nil, err
			}
			entries++
		}
	}

	if err := zw.Close(); err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.ExportWriteFailed, "failed to finalize archive")
	}

	span.SetAttr("entries", entries)
	span.SetAttr("bytes", buf.Len())
	log.Info("archive built", "span", span)
	return buf.Bytes(), nil
}

// writeEntry encodes into a scratch buffer first so an encoder failure is
// reported as such and never leaves a half-written entry behind.
func (e *Exporter) writeEntry(zw *zip.Writer, name string, modified time.Time, encode func(io.Writer) error) error {
	var enc bytes.Buffer
	if err := encode(&enc); err != nil {
		return apperrors.Wrapf(err, apperrors.ExportEncodeFailed, "failed to encode %s", name)
	}

	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
	if !modified.IsZero() {
		hdr.Modified = modified
	}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ExportWriteFailed, "failed to create entry %s", name)
	}
	if _, err := enc.WriteTo(w); err != nil {
		return apperrors.Wrapf(err, apperrors.ExportWriteFailed, "failed to write entry %s", name)
	}
	return nil
}

// opaque drops the alpha channel: JPEG has none, and encoding an NRGBA image
// directly would premultiply translucent pixels toward black.
func opaque(img *image.NRGBA) *image.RGBA {
	out := image.NewRGBA(img.Rect)
	for i := 0; i < len(img.Pix); i += 4 {
		out.Pix[i] = img.Pix[i]
		out.Pix[i+1] = img.Pix[i+1]
		out.Pix[i+2] = img.Pix[i+2]
		out.Pix[i+3] = 0xff
	}
	return out
}

// namer hands out unique entry names.
type namer struct {
	seen map[string]int
}

func newNamer() *namer { return &namer{seen: make(map[string]int)} }

func (n *namer) next(label, ext string) string {
	base := sanitize(label)
	if base == "" {
		base = "photo"
	}
	name := base + ext
	for n.seen[name] > 0 {
		n.seen[base+ext]++
		name = fmt.Sprintf("%s (%d)%s", base, n.seen[base+ext], ext)
	}
	n.seen[name]++
	return name
}

var unsafeChars = strings.NewReplacer("/", "_", "\\", "_", ":", "-")

func sanitize(label string) string {
	return strings.TrimSpace(unsafeChars.Replace(label))
}
