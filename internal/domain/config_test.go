package domain

import (
	"errors"
	"testing"
)

func TestGenerationConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  GenerationConfig
		ok   bool
	}{
		{name: "defaults", cfg: GenerationConfig{Width: 800}, ok: true},
		{name: "png", cfg: GenerationConfig{Width: 800, Height: 600, Format: "PNG", Quality: 90}, ok: true},
		{name: "no dimensions", cfg: GenerationConfig{}, ok: false},
		{name: "negative", cfg: GenerationConfig{Width: -1, Height: 10}, ok: false},
		{name: "too large", cfg: GenerationConfig{Width: MaxDimension + 1}, ok: false},
		{name: "quality", cfg: GenerationConfig{Width: 10, Quality: 101}, ok: false},
		{name: "format", cfg: GenerationConfig{Width: 10, Format: "gif"}, ok: false},
		{name: "thumbnail", cfg: GenerationConfig{Width: 10, ThumbnailSize: MaxThumbnail + 1}, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Normalize().Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestGenerationConfigNormalize(t *testing.T) {
	cfg := GenerationConfig{Width: 10, Format: " JPG "}.Normalize()
	if cfg.Format != FormatJPEG {
		t.Fatalf("format = %q, want %q", cfg.Format, FormatJPEG)
	}
	if cfg.Quality != DefaultQuality {
		t.Fatalf("quality = %d, want %d", cfg.Quality, DefaultQuality)
	}
	if cfg.Extension() != ".jpg" {
		t.Fatalf("extension = %q", cfg.Extension())
	}
}

func TestGenerationConfigTargetSize(t *testing.T) {
	cases := []struct {
		cfg        GenerationConfig
		srcW, srcH int
		w, h       int
	}{
		{GenerationConfig{Width: 800}, 1600, 1200, 800, 600},
		{GenerationConfig{Height: 300}, 1600, 1200, 400, 300},
		{GenerationConfig{Width: 800, Height: 800}, 1600, 400, 800, 200},
		{GenerationConfig{Width: 4000}, 1600, 1200, 1600, 1200},
		{GenerationConfig{Width: 100, Height: 50}, 0, 0, 100, 50},
	}
	for _, tc := range cases {
		w, h := tc.cfg.TargetSize(tc.srcW, tc.srcH)
		if w != tc.w || h != tc.h {
			t.Fatalf("TargetSize(%d,%d) with %+v = %dx%d, want %dx%d", tc.srcW, tc.srcH, tc.cfg, w, h, tc.w, tc.h)
		}
	}
}

func TestGenerationConfigThumbnailTarget(t *testing.T) {
	cfg := GenerationConfig{ThumbnailSize: 200}
	if w, h := cfg.ThumbnailTarget(1000, 500); w != 200 || h != 100 {
		t.Fatalf("landscape thumbnail = %dx%d", w, h)
	}
	if w, h := cfg.ThumbnailTarget(500, 1000); w != 100 || h != 200 {
		t.Fatalf("portrait thumbnail = %dx%d", w, h)
	}
	if w, h := (GenerationConfig{}).ThumbnailTarget(500, 1000); w != 0 || h != 0 {
		t.Fatalf("disabled thumbnail = %dx%d", w, h)
	}
}
