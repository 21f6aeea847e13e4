package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	// Extra source formats found in media libraries.
	_ "image/gif"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"

	"mediacache/internal/domain"
)

// Options describes one output rendition. A zero Width or Height keeps the
// source aspect ratio on that axis.
type Options struct {
	Width   int
	Height  int
	Quality int
	Format  string
}

// Result is an encoded rendition and its final dimensions.
type Result struct {
	Data   []byte
	Width  int
	Height int
}

// Processor produces cache images and thumbnails from source bytes.
type Processor interface {
	Resize(ctx context.Context, src []byte, opts Options) (Result, error)
	Thumbnail(ctx context.Context, src []byte, size int, format string, quality int) (Result, error)
}

// Resizer is the x/image backed Processor. Cache images use Catmull-Rom,
// thumbnails the cheaper bilinear approximation.
type Resizer struct {
	Scaler      draw.Scaler
	ThumbScaler draw.Scaler
}

func NewResizer() *Resizer {
	return &Resizer{Scaler: draw.CatmullRom, ThumbScaler: draw.ApproxBiLinear}
}

func (r *Resizer) Resize(ctx context.Context, src []byte, opts Options) (Result, error) {
	img, err := decode(ctx, src)
	if err != nil {
		return Result{}, err
	}
	b := img.Bounds()
	cfg := domain.GenerationConfig{Width: opts.Width, Height: opts.Height}
	w, h := cfg.TargetSize(b.Dx(), b.Dy())
	return r.render(ctx, img, w, h, r.Scaler, opts.Format, opts.Quality)
}

// Thumbnail renders an image bounded by size on its long edge.
func (r *Resizer) Thumbnail(ctx context.Context, src []byte, size int, format string, quality int) (Result, error) {
	if size <= 0 {
		return Result{}, badInput("thumbnail", fmt.Errorf("size must be positive, got %d", size))
	}
	img, err := decode(ctx, src)
	if err != nil {
		return Result{}, err
	}
	b := img.Bounds()
	cfg := domain.GenerationConfig{ThumbnailSize: size}
	w, h := cfg.ThumbnailTarget(b.Dx(), b.Dy())
	return r.render(ctx, img, w, h, r.ThumbScaler, format, quality)
}

func (r *Resizer) render(ctx context.Context, img image.Image, w, h int, scaler draw.Scaler, format string, quality int) (Result, error) {
	format = domain.NormalizeFormat(format)
	if format != domain.FormatJPEG && format != domain.FormatPNG {
		return Result{}, badInput("encode", fmt.Errorf("unsupported output format %q", format))
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if format == domain.FormatJPEG {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	}
	scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	if err := ctx.Err(); err != nil {
		return Result{}, transient("resize", err)
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case domain.FormatPNG:
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		err = enc.Encode(&buf, dst)
	default:
		if quality <= 0 || quality > 100 {
			quality = domain.DefaultQuality
		}
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return Result{}, transient("encode", err)
	}
	return Result{Data: buf.Bytes(), Width: w, Height: h}, nil
}

func decode(ctx context.Context, src []byte) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, transient("decode", err)
	}
	if len(src) == 0 {
		return nil, badInput("decode", errors.New("empty source"))
	}
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, badInput("decode", err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, badInput("decode", fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy()))
	}
	return img, nil
}

var _ Processor = (*Resizer)(nil)
