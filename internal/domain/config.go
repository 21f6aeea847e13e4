package domain

import (
	"fmt"
	"strings"
)

const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"

	DefaultQuality = 85
	MaxDimension   = 16384
	MaxThumbnail   = 2048
)

// GenerationConfig holds the per-job target settings for cache artifacts.
// A zero Width or Height preserves the source aspect ratio on that axis.
type GenerationConfig struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Quality       int    `json:"quality"`
	Format        string `json:"format"`
	ThumbnailSize int    `json:"thumbnail_size"`
	Force         bool   `json:"force"`
}

// Normalize applies defaults and canonical spellings.
func (c GenerationConfig) Normalize() GenerationConfig {
	c.Format = NormalizeFormat(c.Format)
	if c.Quality == 0 {
		c.Quality = DefaultQuality
	}
	return c
}

// Validate checks the configuration after normalization.
func (c GenerationConfig) Validate() error {
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("%w: dimensions must not be negative", ErrInvalidConfig)
	}
	if c.Width == 0 && c.Height == 0 {
		return fmt.Errorf("%w: width or height is required", ErrInvalidConfig)
	}
	if c.Width > MaxDimension || c.Height > MaxDimension {
		return fmt.Errorf("%w: dimensions exceed %d", ErrInvalidConfig, MaxDimension)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("%w: quality must be between 1 and 100", ErrInvalidConfig)
	}
	switch c.Format {
	case FormatJPEG, FormatPNG:
	default:
		return fmt.Errorf("%w: unsupported format %q", ErrInvalidConfig, c.Format)
	}
	if c.ThumbnailSize < 0 || c.ThumbnailSize > MaxThumbnail {
		return fmt.Errorf("%w: thumbnail size must be between 0 and %d", ErrInvalidConfig, MaxThumbnail)
	}
	return nil
}

// TargetSize resolves the output dimensions for a source image, keeping the
// aspect ratio on any axis left at zero and never upscaling.
func (c GenerationConfig) TargetSize(srcWidth, srcHeight int) (int, int) {
	return fitWithin(srcWidth, srcHeight, c.Width, c.Height)
}

// ThumbnailTarget resolves thumbnail dimensions bounded by ThumbnailSize on the long edge.
func (c GenerationConfig) ThumbnailTarget(srcWidth, srcHeight int) (int, int) {
	if c.ThumbnailSize <= 0 {
		return 0, 0
	}
	if srcWidth >= srcHeight {
		return fitWithin(srcWidth, srcHeight, c.ThumbnailSize, 0)
	}
	return fitWithin(srcWidth, srcHeight, 0, c.ThumbnailSize)
}

// Extension returns the file extension for the configured format.
func (c GenerationConfig) Extension() string {
	if c.Format == FormatPNG {
		return ".png"
	}
	return ".jpg"
}

// NormalizeFormat canonicalizes format names.
func NormalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "jpg", "jpeg", "image/jpeg":
		return FormatJPEG
	case "png", "image/png":
		return FormatPNG
	default:
		return strings.ToLower(strings.TrimSpace(format))
	}
}

func fitWithin(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return maxW, maxH
	}
	if maxW <= 0 && maxH <= 0 {
		return srcW, srcH
	}
	scale := 1.0
	if maxW > 0 {
		scale = float64(maxW) / float64(srcW)
	}
	if maxH > 0 {
		if s := float64(maxH) / float64(srcH); maxW <= 0 || s < scale {
			scale = s
		}
	}
	if scale >= 1 {
		return srcW, srcH
	}
	w := int(float64(srcW)*scale + 0.5)
	h := int(float64(srcH)*scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
