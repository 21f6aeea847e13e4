package placement

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"mediacache/internal/adapter/memory"
	"mediacache/internal/domain"
)

func addFolder(t *testing.T, repo *memory.FolderStore, name string, priority int, max, used int64, active bool) domain.CacheFolder {
	t.Helper()
	ctx := context.Background()
	f := &domain.CacheFolder{Name: name, Path: "/mnt/" + name, Priority: priority, MaxSize: max, IsActive: active}
	if err := repo.Create(ctx, f); err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if used > 0 {
		if err := repo.IncrementSize(ctx, f.ID, used); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	return *f
}

func TestChoosePicksOnlyFittingPriority(t *testing.T) {
	repo := memory.NewFolderStore()
	// Registered out of priority order on purpose.
	addFolder(t, repo, "p3", 3, 1000, 1000, true)
	p2 := addFolder(t, repo, "p2", 2, 1000, 0, true)
	addFolder(t, repo, "p1", 1, 1000, 950, true)

	got, err := New(repo, zerolog.Nop()).Choose(context.Background(), 100, "")
	if err != nil {
		t.Fatalf("Choose error: %v", err)
	}
	if got.ID != p2.ID {
		t.Fatalf("expected priority 2 folder, got %s (priority %d)", got.Name, got.Priority)
	}
}

func TestChooseRejectsOverfullFolder(t *testing.T) {
	repo := memory.NewFolderStore()
	addFolder(t, repo, "main", 1, 1000, 900, true)
	policy := New(repo, zerolog.Nop())

	_, err := policy.Choose(context.Background(), 150, "")
	if !errors.Is(err, domain.ErrNoCapacity) {
		t.Fatalf("expected ErrNoCapacity, got %v", err)
	}

	next := addFolder(t, repo, "spill", 2, 1000, 0, true)
	got, err := policy.Choose(context.Background(), 150, "")
	if err != nil {
		t.Fatalf("Choose error: %v", err)
	}
	if got.ID != next.ID {
		t.Fatalf("expected fall-through to next priority, got %s", got.Name)
	}

	got, err = policy.Choose(context.Background(), 100, "")
	if err != nil || got.Name != "main" {
		t.Fatalf("estimate equal to free space should fit, got %v / %v", got.Name, err)
	}
}

func TestChoosePrefersBoundFolder(t *testing.T) {
	repo := memory.NewFolderStore()
	addFolder(t, repo, "fast", 1, 1000, 0, true)
	bound := addFolder(t, repo, "bound", 5, 1000, 0, true)
	policy := New(repo, zerolog.Nop())

	got, err := policy.Choose(context.Background(), 10, bound.ID)
	if err != nil || got.ID != bound.ID {
		t.Fatalf("expected sticky placement, got %v / %v", got.Name, err)
	}

	bound.IsActive = false
	if err := repo.UpdateSettings(context.Background(), &bound); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = policy.Choose(context.Background(), 10, bound.ID)
	if err != nil || got.Name != "fast" {
		t.Fatalf("inactive preferred folder must be skipped, got %v / %v", got.Name, err)
	}

	got, err = policy.Choose(context.Background(), 10, "unknown")
	if err != nil || got.Name != "fast" {
		t.Fatalf("unknown preferred folder must be ignored, got %v / %v", got.Name, err)
	}
}

func TestChooseNoActiveFolder(t *testing.T) {
	repo := memory.NewFolderStore()
	addFolder(t, repo, "off", 1, 1000, 0, false)
	_, err := New(repo, zerolog.Nop()).Choose(context.Background(), 1, "")
	if !errors.Is(err, domain.ErrNoActiveFolder) {
		t.Fatalf("expected ErrNoActiveFolder, got %v", err)
	}
}

func TestEstimateSize(t *testing.T) {
	src := domain.SourceImage{Width: 4000, Height: 3000}
	jpeg := domain.GenerationConfig{Width: 1600, Quality: 85, Format: domain.FormatJPEG}
	withThumb := jpeg
	withThumb.ThumbnailSize = 256
	png := domain.GenerationConfig{Width: 1600, Quality: 85, Format: domain.FormatPNG}

	base := EstimateSize(jpeg, src, 1)
	if base <= encoderOverhead {
		t.Fatalf("estimate too small: %d", base)
	}
	if got := EstimateSize(withThumb, src, 1); got <= base {
		t.Fatalf("thumbnail must add to the estimate: %d <= %d", got, base)
	}
	if got := EstimateSize(png, src, 1); got <= base {
		t.Fatalf("png should estimate larger than jpeg: %d <= %d", got, base)
	}
	if got := EstimateSize(jpeg, domain.SourceImage{}, 777); got != 777 {
		t.Fatalf("unknown source dimensions should use the fallback, got %d", got)
	}
}
