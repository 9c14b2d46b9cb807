package capture

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
)

// DirSource replays still images from a directory in lexical order, looping.
type DirSource struct {
	dir  string
	next atomic.Uint64
}

// NewDirSource creates a source over dir. The directory is listed on every grab
// so files can be added while running.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Grab decodes the next image.
func (d *DirSource) Grab(ctx context.Context) (uint32, uint32, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, nil, fmt.Errorf("dir grab: %w", err)
	}

	files, err := d.list()
	if err != nil {
		return 0, 0, nil, fmt.Errorf("list %s: %w: %v", d.dir, ErrNoSurface, err)
	}
	if len(files) == 0 {
		return 0, 0, nil, fmt.Errorf("no images in %s: %w", d.dir, ErrNoSurface)
	}

	path := files[int((d.next.Add(1)-1)%uint64(len(files)))]
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	w, h, pix := rgbaBytes(img)
	return w, h, pix, nil
}

func (d *DirSource) list() ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(d.dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// rgbaBytes flattens img into tightly packed non-premultiplied RGBA.
func rgbaBytes(img image.Image) (uint32, uint32, []byte) {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return uint32(b.Dx()), uint32(b.Dy()), dst.Pix
}
