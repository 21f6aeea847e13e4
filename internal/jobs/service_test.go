package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mediacache/internal/adapter/memory"
	"mediacache/internal/domain"
)

var base = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	jobs      *memory.JobStore
	folders   *memory.FolderStore
	artifacts *memory.ArtifactStore
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		jobs:      memory.NewJobStore(),
		folders:   memory.NewFolderStore(),
		artifacts: memory.NewArtifactStore(),
		now:       base,
	}
	clock := func() time.Time { return f.now }
	f.jobs.Now = clock
	library := memory.NewLibrary()
	library.AddCollection(domain.Collection{ID: "col-1", Name: "Trip"},
		domain.SourceImage{ID: "a"}, domain.SourceImage{ID: "b"})
	f.svc = NewService(f.jobs, f.folders, f.artifacts, library, zerolog.Nop()).WithClock(clock)
	return f
}

func validConfig() domain.GenerationConfig {
	return domain.GenerationConfig{Width: 800, Format: "jpg"}
}

func TestEnqueue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	job, err := f.svc.Enqueue(ctx, EnqueueRequest{CollectionID: "col-1", Config: validConfig()})
	if err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}
	if job.Status != domain.JobStatusPending || job.TotalImages != 2 || job.CollectionName != "Trip" {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.Config.Format != domain.FormatJPEG || job.Config.Quality != domain.DefaultQuality {
		t.Fatalf("config not normalized: %+v", job.Config)
	}

	if _, err := f.svc.Enqueue(ctx, EnqueueRequest{JobID: job.JobID, CollectionID: "col-1", Config: validConfig()}); !errors.Is(err, domain.ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestEnqueueValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tests := []struct {
		name string
		req  EnqueueRequest
		want error
	}{
		{"missing collection id", EnqueueRequest{Config: validConfig()}, domain.ErrInvalidConfig},
		{"bad config", EnqueueRequest{CollectionID: "col-1", Config: domain.GenerationConfig{Format: "jpeg"}}, domain.ErrInvalidConfig},
		{"unknown collection", EnqueueRequest{CollectionID: "nope", Config: validConfig()}, domain.ErrCollectionNotFound},
		{"unknown folder", EnqueueRequest{CollectionID: "col-1", TargetFolderID: "x", Config: validConfig()}, domain.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Enqueue(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPauseResumeCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job, err := f.svc.Enqueue(ctx, EnqueueRequest{CollectionID: "col-1", Config: validConfig()})
	if err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}
	if _, err := f.jobs.Claim(ctx, job.JobID); err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if _, err := f.jobs.IncrementCompleted(ctx, job.JobID, "a", 10); err != nil {
		t.Fatalf("increment: %v", err)
	}

	paused, err := f.svc.Pause(ctx, job.JobID)
	if err != nil || paused.Status != domain.JobStatusPaused {
		t.Fatalf("Pause = %v, %v", paused, err)
	}
	resumed, err := f.svc.Resume(ctx, job.JobID)
	if err != nil || resumed.Status != domain.JobStatusPending {
		t.Fatalf("Resume = %v, %v", resumed, err)
	}
	if !resumed.HasImage("a") || resumed.CompletedImages != 1 {
		t.Fatalf("resume must keep progress, got %+v", resumed)
	}
	if _, err := f.svc.Resume(ctx, job.JobID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("resuming a pending job should fail, got %v", err)
	}

	cancelled, err := f.svc.Cancel(ctx, job.JobID)
	if err != nil || cancelled.Status != domain.JobStatusFailed || cancelled.CanResume {
		t.Fatalf("Cancel = %+v, %v", cancelled, err)
	}
	if _, err := f.svc.Resume(ctx, job.JobID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("cancelled job must not resume, got %v", err)
	}
	if _, err := f.svc.Pause(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStaleJobsAndRelease(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	old, _ := f.svc.Enqueue(ctx, EnqueueRequest{CollectionID: "col-1", Config: validConfig()})
	recent, _ := f.svc.Enqueue(ctx, EnqueueRequest{CollectionID: "col-1", Config: validConfig()})

	f.now = base.Add(-45 * time.Minute)
	if _, err := f.jobs.Claim(ctx, old.JobID); err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	f.now = base.Add(-10 * time.Minute)
	if _, err := f.jobs.Claim(ctx, recent.JobID); err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	f.now = base

	stale, err := f.svc.StaleJobs(ctx, 30*time.Minute)
	if err != nil {
		t.Fatalf("StaleJobs error: %v", err)
	}
	if len(stale) != 1 || stale[0].JobID != old.JobID {
		t.Fatalf("expected only the 45 minute old job, got %+v", stale)
	}

	released, err := f.svc.ReleaseStale(ctx, 30*time.Minute, false)
	if err != nil || len(released) != 1 {
		t.Fatalf("ReleaseStale = %v, %v", released, err)
	}
	got, _ := f.svc.Get(ctx, old.JobID)
	if got.Status != domain.JobStatusPaused || !got.CanResume {
		t.Fatalf("stale job should be paused, got %s", got.Status)
	}

	f.now = base.Add(time.Hour)
	released, err = f.svc.ReleaseStale(ctx, 30*time.Minute, true)
	if err != nil || len(released) != 1 || released[0] != recent.JobID {
		t.Fatalf("ReleaseStale requeue = %v, %v", released, err)
	}
	got, _ = f.svc.Get(ctx, recent.JobID)
	if got.Status != domain.JobStatusPending {
		t.Fatalf("requeued job should be pending, got %s", got.Status)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	folder := &domain.CacheFolder{Name: "ssd", Path: "/mnt/ssd", Priority: 1, MaxSize: 1000, IsActive: true}
	if err := f.folders.Create(ctx, folder); err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if err := f.folders.IncrementSize(ctx, folder.ID, 250); err != nil {
		t.Fatalf("increment: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		err := f.artifacts.Put(ctx, &domain.ArtifactEntry{ImageID: id, CachePath: "/mnt/ssd/" + id, CacheSize: 100, ThumbnailSize: 25, IsValid: true, ExpiresAt: base.Add(time.Hour)})
		if err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	if _, err := f.svc.Enqueue(ctx, EnqueueRequest{CollectionID: "col-1", Config: validConfig()}); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}

	stats, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.TotalSize != 250 || stats.ItemCount != 2 || stats.IncompleteJobs != 1 {
		t.Fatalf("unexpected totals %+v", stats)
	}
	if len(stats.Folders) != 1 || stats.Folders[0].UsagePercent != 25 || stats.Folders[0].FreeSpace != 750 {
		t.Fatalf("unexpected folder breakdown %+v", stats.Folders)
	}
}
