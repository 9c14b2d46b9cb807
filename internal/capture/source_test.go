package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestPatternSourceShifts(t *testing.T) {
	p := NewPatternSource(32, 16)
	ctx := context.Background()

	w, h, a, err := p.Grab(ctx)
	if err != nil {
		t.Fatalf("Grab: %v", err)
	}
	if w != 32 || h != 16 || len(a) != 32*16*4 {
		t.Fatalf("got %dx%d with %d bytes", w, h, len(a))
	}
	_, _, b, _ := p.Grab(ctx)
	if bytes.Equal(a, b) {
		t.Error("consecutive pattern frames are identical")
	}
}

func TestPatternSourceDefaults(t *testing.T) {
	w, h, _, err := NewPatternSource(0, 0).Grab(context.Background())
	if err != nil {
		t.Fatalf("Grab: %v", err)
	}
	if w != DefaultPatternWidth || h != DefaultPatternHeight {
		t.Errorf("size = %dx%d", w, h)
	}
}

func TestPatternSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, _, err := NewPatternSource(4, 4).Grab(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestDirSourceLoops(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 3, 2, color.NRGBA{R: 255, A: 255})
	writePNG(t, filepath.Join(dir, "b.png"), 5, 4, color.NRGBA{B: 255, A: 255})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewDirSource(dir)
	ctx := context.Background()
	wantW := []uint32{3, 5, 3}
	for i, want := range wantW {
		w, h, pix, err := src.Grab(ctx)
		if err != nil {
			t.Fatalf("grab %d: %v", i, err)
		}
		if w != want {
			t.Errorf("grab %d width = %d, want %d", i, w, want)
		}
		if len(pix) != int(w*h*4) {
			t.Errorf("grab %d: %d bytes for %dx%d", i, len(pix), w, h)
		}
	}
}

func TestDirSourceNoSurface(t *testing.T) {
	tests := []struct {
		name string
		dir  string
	}{
		{"empty", t.TempDir()},
		{"missing", filepath.Join(t.TempDir(), "gone")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := NewDirSource(tt.dir).Grab(context.Background())
			if !errors.Is(err, ErrNoSurface) {
				t.Errorf("err = %v, want ErrNoSurface", err)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SourceConfig
		wantErr bool
	}{
		{"default", SourceConfig{}, false},
		{"pattern", SourceConfig{Kind: KindPattern, Width: 8, Height: 8}, false},
		{"dir", SourceConfig{Kind: KindDir, Dir: "/tmp"}, false},
		{"dir without path", SourceConfig{Kind: KindDir}, true},
		{"screen", SourceConfig{Kind: KindScreen}, false},
		{"unknown", SourceConfig{Kind: "webcam"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Open(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && src == nil {
				t.Error("nil source")
			}
		})
	}
}
