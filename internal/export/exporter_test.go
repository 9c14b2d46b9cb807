package export

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/GriffinCanCode/snapshot/internal/errors"
	"github.com/GriffinCanCode/snapshot/internal/frame"
	"github.com/GriffinCanCode/snapshot/internal/histogram"
)

var t0 = time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)

func solidRecord(w, h uint32, r, g, b byte, at time.Time) *frame.Record {
	pix := make([]byte, int(w)*int(h)*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, 255
	}
	rec := frame.New(w, h, pix, at)
	rec.Marked = true
	return rec
}

func openZip(t *testing.T, data []byte) *zip.Reader {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return zr
}

func readEntry(t *testing.T, f *zip.File) []byte {
	t.Helper()
	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return b
}

func TestExportNothingMarked(t *testing.T) {
	rec := solidRecord(4, 4, 1, 2, 3, t0)
	rec.Marked = false

	data, err := New(DefaultOptions()).Export(context.Background(), []*frame.Record{rec})
	require.NoError(t, err)
	assert.Empty(t, openZip(t, data).File)
}

func TestExportEmptyInput(t *testing.T) {
	data, err := New(DefaultOptions()).Export(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, openZip(t, data).File)
}

func TestExportJPEGEntries(t *testing.T) {
	recs := []*frame.Record{
		solidRecord(8, 6, 255, 0, 0, t0),
		solidRecord(10, 4, 0, 255, 0, t0.Add(time.Second)),
		solidRecord(3, 3, 0, 0, 255, t0.Add(2*time.Second)),
	}
	recs[2].Marked = false

	data, err := New(DefaultOptions()).Export(context.Background(), recs)
	require.NoError(t, err)

	zr := openZip(t, data)
	require.Len(t, zr.File, 2)
	for i, f := range zr.File {
		assert.Equal(t, recs[i].Label+".jpg", f.Name)
		assert.Equal(t, zip.Deflate, f.Method)

		img, err := jpeg.Decode(bytes.NewReader(readEntry(t, f)))
		require.NoError(t, err)
		assert.Equal(t, int(recs[i].Width), img.Bounds().Dx())
		assert.Equal(t, int(recs[i].Height), img.Bounds().Dy())
	}
}

func TestExportSkipsPendingDeletion(t *testing.T) {
	rec := solidRecord(2, 2, 9, 9, 9, t0)
	rec.State = frame.PendingDeletion

	data, err := New(DefaultOptions()).Export(context.Background(), []*frame.Record{rec})
	require.NoError(t, err)
	assert.Empty(t, openZip(t, data).File)
}

// A wide record with a distinct left and right half. Indexing rows by Height
// instead of Width would smear the halves together.
func TestExportNonSquareStride(t *testing.T) {
	const w, h = 16, 4
	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (x + y*w) * 4
			if x < w/2 {
				pix[i] = 255
			} else {
				pix[i+2] = 255
			}
			pix[i+3] = 255
		}
	}
	rec := frame.New(w, h, pix, t0)
	rec.Marked = true

	data, err := New(Options{PNG: true}).Export(context.Background(), []*frame.Record{rec})
	require.NoError(t, err)

	zr := openZip(t, data)
	require.Len(t, zr.File, 1)
	img, err := png.Decode(bytes.NewReader(readEntry(t, zr.File[0])))
	require.NoError(t, err)

	require.Equal(t, image.Rect(0, 0, w, h), img.Bounds())
	for y := 0; y < h; y++ {
		r, _, b, _ := img.At(1, y).RGBA()
		assert.Equal(t, uint32(0xffff), r, "left half red at row %d", y)
		assert.Zero(t, b)
		r, _, b, _ = img.At(w-2, y).RGBA()
		assert.Zero(t, r, "right half blue at row %d", y)
		assert.Equal(t, uint32(0xffff), b)
	}
}

func TestExportCorruptRecord(t *testing.T) {
	good := solidRecord(2, 2, 1, 1, 1, t0)
	bad := solidRecord(4, 4, 1, 1, 1, t0)
	bad.Pixels = bad.Pixels[:10]

	data, err := New(DefaultOptions()).Export(context.Background(), []*frame.Record{good, bad})
	require.Error(t, err)
	assert.Nil(t, data)
	assert.True(t, apperrors.IsCode(err, apperrors.ExportEncodeFailed), "got %v", err)
}

func TestExportBothFormats(t *testing.T) {
	rec := solidRecord(5, 5, 10, 20, 30, t0)

	data, err := New(Options{JPEG: true, PNG: true}).Export(context.Background(), []*frame.Record{rec})
	require.NoError(t, err)

	zr := openZip(t, data)
	require.Len(t, zr.File, 2)
	assert.Equal(t, rec.Label+".jpg", zr.File[0].Name)
	assert.Equal(t, rec.Label+".png", zr.File[1].Name)

	img, err := png.Decode(bytes.NewReader(readEntry(t, zr.File[1])))
	require.NoError(t, err)
	r, g, b, _ := img.At(2, 2).RGBA()
	assert.Equal(t, []uint32{10, 20, 30}, []uint32{r >> 8, g >> 8, b >> 8})
}

func TestExportNoFormats(t *testing.T) {
	rec := solidRecord(2, 2, 1, 1, 1, t0)
	data, err := New(Options{}).Export(context.Background(), []*frame.Record{rec})
	require.NoError(t, err)
	assert.Empty(t, openZip(t, data).File)
}

func TestExportDuplicateLabels(t *testing.T) {
	a := solidRecord(2, 2, 1, 1, 1, t0)
	b := solidRecord(2, 2, 2, 2, 2, t0)
	c := solidRecord(2, 2, 3, 3, 3, t0)

	data, err := New(DefaultOptions()).Export(context.Background(), []*frame.Record{a, b, c})
	require.NoError(t, err)

	zr := openZip(t, data)
	require.Len(t, zr.File, 3)
	assert.Equal(t, a.Label+".jpg", zr.File[0].Name)
	assert.Equal(t, a.Label+" (2).jpg", zr.File[1].Name)
	assert.Equal(t, a.Label+" (3).jpg", zr.File[2].Name)
}

func TestExportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data, err := New(DefaultOptions()).Export(ctx, []*frame.Record{solidRecord(2, 2, 1, 1, 1, t0)})
	assert.Nil(t, data)
	assert.True(t, apperrors.IsCode(err, apperrors.ExportWriteFailed))
}

// Decoding an exported JPEG and rebuilding the histogram lands the dominant
// bin within one of the source colour.
func TestExportRoundTripDominantBin(t *testing.T) {
	rec := solidRecord(32, 24, 200, 40, 120, t0)

	data, err := New(DefaultOptions()).Export(context.Background(), []*frame.Record{rec})
	require.NoError(t, err)
	zr := openZip(t, data)
	require.Len(t, zr.File, 1)

	img, err := jpeg.Decode(bytes.NewReader(readEntry(t, zr.File[0])))
	require.NoError(t, err)
	back := frame.FromImage(img, t0)

	hist := histogram.New(histogram.RGB)
	require.NoError(t, hist.Update(back))

	for ch, v := range []int{200, 40, 120} {
		bin, _ := hist.Peak(ch)
		assert.InDelta(t, v/4, bin, 1, "channel %d", ch)
	}
}

func TestNewClampsQuality(t *testing.T) {
	assert.Equal(t, DefaultQuality, New(Options{JPEG: true, Quality: 0}).Options().Quality)
	assert.Equal(t, DefaultQuality, New(Options{JPEG: true, Quality: 101}).Options().Quality)
	assert.Equal(t, 90, New(Options{JPEG: true, Quality: 90}).Options().Quality)
}

func TestArchiveName(t *testing.T) {
	at := time.Date(2023, 11, 2, 14, 5, 9, 0, time.Local)
	assert.Equal(t, "2023-11-02 14-05-09 Photos.zip", ArchiveName(at))
}

func TestNamerSanitizes(t *testing.T) {
	n := newNamer()
	assert.Equal(t, "a_b-c.png", n.next("a/b:c", extPNG))
	assert.Equal(t, "photo.jpg", n.next("  ", extJPEG))
}
