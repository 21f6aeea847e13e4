package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mediacache/internal/domain"
)

// Remover deletes artifact bytes given the registered folders and an
// absolute artifact path.
type Remover interface {
	RemoveArtifact(ctx context.Context, folders []domain.CacheFolder, artifactPath string) error
}

type Options struct {
	// MaxAge invalidates entries cached longer ago than this. Zero disables it.
	MaxAge time.Duration
	// JobRetention is how long terminal jobs are kept.
	JobRetention time.Duration
	BatchSize    int
	Now          func() time.Time
}

// Service expires artifacts, reconciles folder counters and prunes old jobs.
// Every step is idempotent and safe to run next to generation workers.
type Service struct {
	artifacts domain.ArtifactRepository
	folders   domain.FolderRepository
	jobs      domain.JobRepository
	images    domain.ImageSource
	remover   Remover
	logger    zerolog.Logger
	opts      Options
}

func NewService(artifacts domain.ArtifactRepository, folders domain.FolderRepository, jobs domain.JobRepository, images domain.ImageSource, remover Remover, logger zerolog.Logger, opts Options) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.JobRetention <= 0 {
		opts.JobRetention = 7 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		artifacts: artifacts,
		folders:   folders,
		jobs:      jobs,
		images:    images,
		remover:   remover,
		logger:    logger,
		opts:      opts,
	}
}

type Report struct {
	Invalidated       int   `json:"invalidated"`
	Expired           int   `json:"expired"`
	Orphans           int   `json:"orphans"`
	RemoveFailures    int   `json:"remove_failures"`
	FoldersReconciled int   `json:"folders_reconciled"`
	JobsPurged        int64 `json:"jobs_purged"`
}

// Run performs one full pass. A failing step does not prevent the others.
func (s *Service) Run(ctx context.Context) (Report, error) {
	var report Report
	var errs []error
	if err := s.ExpireArtifacts(ctx, &report); err != nil {
		errs = append(errs, fmt.Errorf("expire artifacts: %w", err))
	}
	if err := s.PurgeOrphans(ctx, &report); err != nil {
		errs = append(errs, fmt.Errorf("purge orphans: %w", err))
	}
	n, err := s.ReconcileFolders(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("reconcile folders: %w", err))
	}
	report.FoldersReconciled = n
	purged, err := s.PurgeJobs(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("purge jobs: %w", err))
	}
	report.JobsPurged = purged
	return report, errors.Join(errs...)
}

// Loop runs a pass immediately and then on every interval until ctx ends.
func (s *Service) Loop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		report, err := s.Run(ctx)
		event := s.logger.Info()
		if err != nil {
			event = s.logger.Error().Err(err)
		}
		event.Int("expired", report.Expired).Int("invalidated", report.Invalidated).Int("orphans", report.Orphans).
			Int("folders", report.FoldersReconciled).Int64("jobs_purged", report.JobsPurged).Msg("cleanup: pass finished")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ExpireArtifacts invalidates entries past MaxAge, then removes the bytes and
// entries of everything expired or invalid.
func (s *Service) ExpireArtifacts(ctx context.Context, report *Report) error {
	now := s.opts.Now()
	if s.opts.MaxAge > 0 {
		old, err := s.artifacts.GetOlderThan(ctx, now.Add(-s.opts.MaxAge), s.opts.BatchSize)
		if err != nil {
			return err
		}
		for _, e := range old {
			if !e.IsValid {
				continue
			}
			if err := s.artifacts.Invalidate(ctx, e.ImageID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			report.Invalidated++
		}
	}

	folders, err := s.folders.ListAll(ctx)
	if err != nil {
		return err
	}
	var cursor domain.ExpiryCursor
	for {
		batch, err := s.artifacts.GetExpired(ctx, now, cursor, s.opts.BatchSize)
		if err != nil {
			return err
		}
		for _, e := range batch {
			if !s.removeFiles(ctx, folders, e, report) {
				continue
			}
			deleted, err := s.artifacts.DeleteExpired(ctx, e.ImageID, now)
			if err != nil {
				return err
			}
			if deleted {
				report.Expired++
			}
		}
		if len(batch) < s.opts.BatchSize {
			return nil
		}
		// Entries whose files could not be removed are retried next pass.
		cursor = domain.CursorAt(batch[len(batch)-1])
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// PurgeOrphans deletes entries whose source image no longer exists.
func (s *Service) PurgeOrphans(ctx context.Context, report *Report) error {
	folders, err := s.folders.ListAll(ctx)
	if err != nil {
		return err
	}
	after := ""
	for {
		ids, err := s.artifacts.ListImageIDs(ctx, after, s.opts.BatchSize)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		existing, err := s.images.ExistingImageIDs(ctx, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if existing[id] {
				continue
			}
			entry, err := s.artifacts.GetByImageID(ctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !s.removeFiles(ctx, folders, *entry, report) {
				continue
			}
			if err := s.artifacts.Delete(ctx, id); err != nil {
				return err
			}
			report.Orphans++
		}
		if len(ids) < s.opts.BatchSize {
			return nil
		}
		after = ids[len(ids)-1]
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// removeFiles deletes the entry's bytes and reports whether the entry may now
// be dropped from the catalog.
func (s *Service) removeFiles(ctx context.Context, folders []domain.CacheFolder, e domain.ArtifactEntry, report *Report) bool {
	for _, p := range []string{e.CachePath, e.ThumbnailPath} {
		if p == "" {
			continue
		}
		if err := s.remover.RemoveArtifact(ctx, folders, p); err != nil {
			s.logger.Warn().Err(err).Str("image_id", e.ImageID).Str("path", p).Msg("cleanup: remove file failed")
			report.RemoveFailures++
			return false
		}
	}
	return true
}

// ReconcileFolders recomputes every folder's size and file count from the
// valid entries stored under its path. Entries of nested folders count only
// towards the innermost one.
//
// Worker increments landing between a folder's sum and its SetStats are
// overwritten, so the folder undercounts until the next pass. Like placement
// capacity, the counters are allowed to drift softly.
func (s *Service) ReconcileFolders(ctx context.Context) (int, error) {
	now := s.opts.Now()
	folders, err := s.folders.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	type totals struct{ bytes, files int64 }
	sums := make([]totals, len(folders))
	for i, f := range folders {
		b, n, err := s.artifacts.SumByPathPrefix(ctx, f.Path, now)
		if err != nil {
			return 0, fmt.Errorf("sum folder %s: %w", f.ID, err)
		}
		sums[i] = totals{b, n}
	}
	own := make([]totals, len(folders))
	copy(own, sums)
	for i := range folders {
		if parent := nearestAncestor(folders, i); parent >= 0 {
			own[parent].bytes -= sums[i].bytes
			own[parent].files -= sums[i].files
		}
	}

	reconciled := 0
	for i, f := range folders {
		size, files := max(own[i].bytes, 0), max(own[i].files, 0)
		if size != f.CurrentSize || files != f.FileCount {
			s.logger.Info().Str("folder_id", f.ID).Int64("was_size", f.CurrentSize).Int64("size", size).
				Int64("was_files", f.FileCount).Int64("files", files).Msg("cleanup: folder drift corrected")
		}
		if err := s.folders.SetStats(ctx, f.ID, size, files, now); err != nil {
			return reconciled, fmt.Errorf("set stats %s: %w", f.ID, err)
		}
		if files == 0 {
			for _, c := range f.CachedCollections {
				if err := s.folders.RemoveCachedCollection(ctx, f.ID, c); err != nil {
					return reconciled, err
				}
			}
		}
		reconciled++
	}
	return reconciled, nil
}

// nearestAncestor returns the index of the deepest other folder containing
// folders[i], or -1.
func nearestAncestor(folders []domain.CacheFolder, i int) int {
	best := -1
	for j := range folders {
		if j == i || folders[j].Path == folders[i].Path || !folders[j].Contains(folders[i].Path) {
			continue
		}
		if best < 0 || len(folders[j].Path) > len(folders[best].Path) {
			best = j
		}
	}
	return best
}

// PurgeJobs deletes terminal jobs older than the retention window.
func (s *Service) PurgeJobs(ctx context.Context) (int64, error) {
	return s.jobs.DeleteOldCompletedJobs(ctx, s.opts.Now().Add(-s.opts.JobRetention))
}
