package imaging

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func samplePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode sample: %v", err)
	}
	return buf.Bytes()
}

func TestResizeKeepsAspectRatio(t *testing.T) {
	r := NewResizer()
	res, err := r.Resize(context.Background(), samplePNG(t, 200, 100), Options{Width: 50, Quality: 80, Format: "jpeg"})
	if err != nil {
		t.Fatalf("Resize error: %v", err)
	}
	if res.Width != 50 || res.Height != 25 {
		t.Fatalf("unexpected size %dx%d", res.Width, res.Height)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(res.Data))
	if err != nil {
		t.Fatalf("output is not a jpeg: %v", err)
	}
	if cfg.Width != 50 || cfg.Height != 25 {
		t.Fatalf("encoded size %dx%d", cfg.Width, cfg.Height)
	}
}

func TestResizeNeverUpscales(t *testing.T) {
	res, err := NewResizer().Resize(context.Background(), samplePNG(t, 40, 30), Options{Width: 400, Height: 400, Format: "png"})
	if err != nil {
		t.Fatalf("Resize error: %v", err)
	}
	if res.Width != 40 || res.Height != 30 {
		t.Fatalf("unexpected size %dx%d", res.Width, res.Height)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(res.Data)); err != nil {
		t.Fatalf("output is not a png: %v", err)
	}
}

func TestThumbnailBoundsLongEdge(t *testing.T) {
	res, err := NewResizer().Thumbnail(context.Background(), samplePNG(t, 60, 120), 30, "jpeg", 70)
	if err != nil {
		t.Fatalf("Thumbnail error: %v", err)
	}
	if res.Width != 15 || res.Height != 30 {
		t.Fatalf("unexpected thumbnail size %dx%d", res.Width, res.Height)
	}
}

func TestBadInputClassification(t *testing.T) {
	r := NewResizer()
	tests := []struct {
		name string
		src  []byte
		opts Options
	}{
		{name: "empty", src: nil, opts: Options{Width: 10, Format: "jpeg"}},
		{name: "garbage", src: []byte("not an image"), opts: Options{Width: 10, Format: "jpeg"}},
		{name: "format", src: samplePNG(t, 4, 4), opts: Options{Width: 2, Format: "gif"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resize(context.Background(), tt.src, tt.opts)
			if !IsBadInput(err) {
				t.Fatalf("expected bad input, got %v", err)
			}
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *Error, got %T", err)
			}
		})
	}
}

func TestCancelledContextIsTransient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewResizer().Resize(ctx, samplePNG(t, 4, 4), Options{Width: 2, Format: "png"})
	if !errors.Is(err, ErrTransient) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected transient cancellation, got %v", err)
	}
}
