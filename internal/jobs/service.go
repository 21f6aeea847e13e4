package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediacache/internal/domain"
)

const defaultRecentLimit = 50

// Service is the operator-facing job surface: enqueue, inspect and control
// cache-generation jobs.
type Service struct {
	jobs      domain.JobRepository
	folders   domain.FolderRepository
	artifacts domain.ArtifactRepository
	images    domain.ImageSource
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(jobs domain.JobRepository, folders domain.FolderRepository, artifacts domain.ArtifactRepository, images domain.ImageSource, logger zerolog.Logger) *Service {
	return &Service{
		jobs:      jobs,
		folders:   folders,
		artifacts: artifacts,
		images:    images,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type EnqueueRequest struct {
	JobID          string                  `json:"job_id"`
	CollectionID   string                  `json:"collection_id"`
	TargetFolderID string                  `json:"target_folder_id"`
	Config         domain.GenerationConfig `json:"config"`
}

// Enqueue validates the request and stores a Pending checkpoint.
func (s *Service) Enqueue(ctx context.Context, req EnqueueRequest) (*domain.JobCheckpoint, error) {
	req.CollectionID = strings.TrimSpace(req.CollectionID)
	if req.CollectionID == "" {
		return nil, fmt.Errorf("%w: collection id is required", domain.ErrInvalidConfig)
	}
	cfg := req.Config.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	collection, err := s.images.GetCollection(ctx, req.CollectionID)
	if err != nil {
		return nil, err
	}
	total, err := s.images.CountCollectionImages(ctx, collection.ID)
	if err != nil {
		return nil, fmt.Errorf("count images: %w", err)
	}

	job := &domain.JobCheckpoint{
		JobID:          strings.TrimSpace(req.JobID),
		CollectionID:   collection.ID,
		CollectionName: collection.Name,
		TotalImages:    total,
		Config:         cfg,
	}
	if req.TargetFolderID != "" {
		folder, err := s.folders.GetByID(ctx, req.TargetFolderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown target folder %s", domain.ErrInvalidConfig, req.TargetFolderID)
			}
			return nil, err
		}
		job.TargetFolderID = folder.ID
		job.TargetFolderPath = folder.Path
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info().Str("job_id", job.JobID).Str("collection_id", job.CollectionID).Int("total", total).Msg("jobs: enqueued")
	return job, nil
}

func (s *Service) Get(ctx context.Context, jobID string) (*domain.JobCheckpoint, error) {
	return s.jobs.GetByJobID(ctx, jobID)
}

func (s *Service) ListIncomplete(ctx context.Context) ([]domain.JobCheckpoint, error) {
	return s.jobs.GetIncompleteJobs(ctx)
}

func (s *Service) ListPaused(ctx context.Context) ([]domain.JobCheckpoint, error) {
	return s.jobs.GetPausedJobs(ctx)
}

func (s *Service) ListRecent(ctx context.Context, limit int) ([]domain.JobCheckpoint, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultRecentLimit
	}
	return s.jobs.ListRecent(ctx, limit)
}

// Pause asks the worker to stop after its in-flight images.
func (s *Service) Pause(ctx context.Context, jobID string) (*domain.JobCheckpoint, error) {
	return s.transition(ctx, jobID, domain.JobStatusPaused, "paused by operator", true)
}

// Resume requeues a Paused or resumable Failed job. Its processed and failed
// sets are kept, so only outstanding images run again.
func (s *Service) Resume(ctx context.Context, jobID string) (*domain.JobCheckpoint, error) {
	return s.transition(ctx, jobID, domain.JobStatusPending, "", true)
}

// Cancel fails the job permanently.
func (s *Service) Cancel(ctx context.Context, jobID string) (*domain.JobCheckpoint, error) {
	return s.transition(ctx, jobID, domain.JobStatusFailed, "cancelled by operator", false)
}

func (s *Service) transition(ctx context.Context, jobID string, to domain.JobStatus, msg string, canResume bool) (*domain.JobCheckpoint, error) {
	if err := s.jobs.UpdateStatus(ctx, jobID, to, msg, canResume); err != nil {
		return nil, err
	}
	s.logger.Info().Str("job_id", jobID).Str("status", string(to)).Msg("jobs: status changed")
	return s.jobs.GetByJobID(ctx, jobID)
}

// StaleJobs lists Running jobs without progress for longer than period.
func (s *Service) StaleJobs(ctx context.Context, period time.Duration) ([]domain.JobCheckpoint, error) {
	return s.jobs.GetStaleJobs(ctx, s.now().Add(-period))
}

// ReleaseStale forces stale jobs back to Paused, and to Pending when requeue
// is set, so another worker can claim them. It returns the released job ids.
func (s *Service) ReleaseStale(ctx context.Context, period time.Duration, requeue bool) ([]string, error) {
	stale, err := s.StaleJobs(ctx, period)
	if err != nil {
		return nil, err
	}
	released := make([]string, 0, len(stale))
	for _, job := range stale {
		msg := fmt.Sprintf("released after %s without progress", period)
		if err := s.jobs.UpdateStatus(ctx, job.JobID, domain.JobStatusPaused, msg, true); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				continue
			}
			return released, fmt.Errorf("release job %s: %w", job.JobID, err)
		}
		if requeue {
			if err := s.jobs.UpdateStatus(ctx, job.JobID, domain.JobStatusPending, msg, true); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
				return released, fmt.Errorf("requeue job %s: %w", job.JobID, err)
			}
		}
		s.logger.Warn().Str("job_id", job.JobID).Bool("requeued", requeue).Msg("jobs: released stale job")
		released = append(released, job.JobID)
	}
	return released, nil
}

type FolderStats struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Path         string     `json:"path"`
	Priority     int        `json:"priority"`
	IsActive     bool       `json:"is_active"`
	MaxSize      int64      `json:"max_size"`
	CurrentSize  int64      `json:"current_size"`
	FileCount    int64      `json:"file_count"`
	FreeSpace    int64      `json:"free_space"`
	UsagePercent float64    `json:"usage_percent"`
	Collections  int        `json:"collections"`
	LastCleanup  *time.Time `json:"last_cleanup_at,omitempty"`
}

type Stats struct {
	TotalSize      int64         `json:"total_size"`
	ItemCount      int64         `json:"item_count"`
	IncompleteJobs int           `json:"incomplete_jobs"`
	Folders        []FolderStats `json:"folders"`
}

// Stats aggregates catalog totals with a per-folder breakdown.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	var err error
	if out.TotalSize, err = s.artifacts.TotalSize(ctx); err != nil {
		return Stats{}, fmt.Errorf("total size: %w", err)
	}
	if out.ItemCount, err = s.artifacts.Count(ctx); err != nil {
		return Stats{}, fmt.Errorf("count artifacts: %w", err)
	}
	incomplete, err := s.jobs.GetIncompleteJobs(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("incomplete jobs: %w", err)
	}
	out.IncompleteJobs = len(incomplete)
	folders, err := s.folders.ListAll(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list folders: %w", err)
	}
	out.Folders = make([]FolderStats, 0, len(folders))
	for _, f := range folders {
		out.Folders = append(out.Folders, NewFolderStats(f))
	}
	return out, nil
}

func NewFolderStats(f domain.CacheFolder) FolderStats {
	fs := FolderStats{
		ID:          f.ID,
		Name:        f.Name,
		Path:        f.Path,
		Priority:    f.Priority,
		IsActive:    f.IsActive,
		MaxSize:     f.MaxSize,
		CurrentSize: f.CurrentSize,
		FileCount:   f.FileCount,
		FreeSpace:   f.FreeSpace(),
		Collections: len(f.CachedCollections),
		LastCleanup: f.LastCleanupAt,
	}
	if f.MaxSize > 0 {
		fs.UsagePercent = float64(f.CurrentSize) / float64(f.MaxSize) * 100
	}
	return fs
}

// ListFolders returns every registered folder with usage figures.
func (s *Service) ListFolders(ctx context.Context) ([]FolderStats, error) {
	folders, err := s.folders.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]FolderStats, 0, len(folders))
	for _, f := range folders {
		out = append(out, NewFolderStats(f))
	}
	return out, nil
}
