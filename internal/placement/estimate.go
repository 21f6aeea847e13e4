package placement

import "mediacache/internal/domain"

const encoderOverhead = 2 << 10

// EstimateSize derives a conservative byte estimate for an image's cache
// artifact and thumbnail. fallback is used when the output size cannot be
// resolved before decoding.
func EstimateSize(cfg domain.GenerationConfig, src domain.SourceImage, fallback int64) int64 {
	w, h := cfg.TargetSize(src.Width, src.Height)
	if w <= 0 || h <= 0 {
		return fallback
	}
	total := encodedBytes(w, h, cfg)
	if tw, th := cfg.ThumbnailTarget(src.Width, src.Height); tw > 0 && th > 0 {
		total += encodedBytes(tw, th, cfg)
	}
	return total
}

func encodedBytes(w, h int, cfg domain.GenerationConfig) int64 {
	pixels := int64(w) * int64(h)
	if cfg.Format == domain.FormatPNG {
		return pixels*3 + encoderOverhead
	}
	q := cfg.Quality
	if q <= 0 {
		q = domain.DefaultQuality
	}
	// Bits per pixel grow roughly linearly with JPEG quality, 0.5 to 4.
	bits := pixels * int64(50+350*q/100) / 100
	return bits/8 + encoderOverhead
}
