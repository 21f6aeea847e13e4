package generation

import (
	"context"
	"errors"
	"fmt"

	"mediacache/internal/domain"
	"mediacache/internal/imaging"
	"mediacache/internal/placement"
	"mediacache/internal/storage"
)

// itemError is a per-item failure: it is recorded on the job and the run
// moves on.
type itemError struct {
	stage string
	err   error
}

func (e *itemError) Error() string { return e.stage + ": " + e.err.Error() }
func (e *itemError) Unwrap() error { return e.err }

func itemFailure(stage string, err error) error {
	return &itemError{stage: stage, err: err}
}

type rendition struct {
	main  imaging.Result
	thumb *imaging.Result
}

// processItem runs the pipeline for one image. Only repository failures are
// returned; everything else is counted against the image.
func (r *run) processItem(ctx context.Context, img domain.SourceImage) error {
	deps := r.w.deps
	logger := r.logger.With().Str("image_id", img.ID).Logger()

	seen, err := deps.Jobs.IsImageProcessed(ctx, r.job.JobID, img.ID)
	if err != nil {
		return fmt.Errorf("%w: check image %s: %v", errInfrastructure, img.ID, err)
	}
	if seen {
		return nil
	}

	if !r.cfg.Force {
		entry, err := r.alreadyCached(ctx, img)
		if err != nil {
			return err
		}
		if entry != nil && r.producedByJob(entry) {
			// Written by an earlier attempt of this job that stopped before
			// counting it.
			if _, err := deps.Jobs.IncrementCompleted(ctx, r.job.JobID, img.ID, entry.TotalBytes()); err != nil {
				return fmt.Errorf("%w: count completed %s: %v", errInfrastructure, img.ID, err)
			}
			logger.Debug().Msg("worker: artifact from interrupted attempt, completed")
			return nil
		}
		if entry != nil {
			if _, err := deps.Jobs.IncrementSkipped(ctx, r.job.JobID, img.ID); err != nil {
				return fmt.Errorf("%w: count skipped %s: %v", errInfrastructure, img.ID, err)
			}
			logger.Debug().Msg("worker: valid artifact exists, skipped")
			return nil
		}
	}

	size, err := r.generate(ctx, img)
	var itemErr *itemError
	switch {
	case errors.As(err, &itemErr):
		logger.Warn().Err(err).Msg("worker: image failed")
		if _, err := deps.Jobs.IncrementFailed(ctx, r.job.JobID, img.ID, itemErr.Error()); err != nil {
			return fmt.Errorf("%w: count failed %s: %v", errInfrastructure, img.ID, err)
		}
		return nil
	case err != nil:
		return err
	}

	counted, err := deps.Jobs.IncrementCompleted(ctx, r.job.JobID, img.ID, size)
	if err != nil {
		return fmt.Errorf("%w: count completed %s: %v", errInfrastructure, img.ID, err)
	}
	if !counted {
		logger.Debug().Msg("worker: image already counted by another worker")
	}
	return nil
}

// alreadyCached returns the valid entry of img produced with the same
// settings, or nil when the image has to be generated.
func (r *run) alreadyCached(ctx context.Context, img domain.SourceImage) (*domain.ArtifactEntry, error) {
	entry, err := r.w.deps.Artifacts.GetValidByImageID(ctx, img.ID, r.w.opts.Now())
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup artifact %s: %v", errInfrastructure, img.ID, err)
	}
	w, h := r.cfg.TargetSize(img.Width, img.Height)
	if !entry.Matches(r.cfg, w, h) {
		return nil, nil
	}
	return entry, nil
}

// producedByJob reports whether entry was cached after the job first
// started. StartedAt survives reclaims, so this covers every earlier attempt.
func (r *run) producedByJob(entry *domain.ArtifactEntry) bool {
	started := r.job.StartedAt
	return started != nil && !entry.CachedAt.Before(*started)
}

// generate produces, stores and catalogs the artifact of img, returning the
// bytes written. Ordering is bytes, catalog, then folder counters, so a crash
// at any point leaves at worst an overwritable file.
func (r *run) generate(ctx context.Context, img domain.SourceImage) (int64, error) {
	deps := r.w.deps
	estimate := placement.EstimateSize(r.cfg, img, r.w.opts.DefaultEstimate)
	folder, err := deps.Placement.Choose(ctx, estimate, r.preferredID())
	switch {
	case errors.Is(err, domain.ErrNoCapacity), errors.Is(err, domain.ErrNoActiveFolder):
		return 0, itemFailure("placement", err)
	case err != nil:
		return 0, fmt.Errorf("%w: placement: %v", errInfrastructure, err)
	}

	out, err := r.render(ctx, img)
	if err != nil {
		return 0, err
	}

	store, err := deps.Stores.For(folder)
	if err != nil {
		return 0, itemFailure("open store", err)
	}
	ext := r.cfg.Extension()
	key, err := store.Write(ctx, storage.ArtifactKey(r.collection.ID, r.collection.Name, img.ID, ext), out.main.Data)
	if err != nil {
		return 0, itemFailure("write artifact", err)
	}
	now := r.w.opts.Now()
	entry := &domain.ArtifactEntry{
		ImageID:    img.ID,
		CachePath:  folder.JoinPath(key),
		CacheSize:  int64(len(out.main.Data)),
		Quality:    r.cfg.Quality,
		Format:     r.cfg.Format,
		Dimensions: domain.FormatDimensions(out.main.Width, out.main.Height),
		CachedAt:   now,
		ExpiresAt:  now.Add(r.w.opts.ArtifactTTL),
		IsValid:    true,
	}
	if out.thumb != nil {
		thumbKey, err := store.Write(ctx, storage.ThumbnailKey(r.collection.ID, r.collection.Name, img.ID, ext), out.thumb.Data)
		if err != nil {
			return 0, itemFailure("write thumbnail", err)
		}
		entry.ThumbnailPath = folder.JoinPath(thumbKey)
		entry.ThumbnailSize = int64(len(out.thumb.Data))
	}

	previous, err := deps.Artifacts.GetByImageID(ctx, img.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, fmt.Errorf("%w: lookup artifact %s: %v", errInfrastructure, img.ID, err)
	}
	if err := deps.Artifacts.Put(ctx, entry); err != nil {
		return 0, fmt.Errorf("%w: put artifact %s: %v", errInfrastructure, img.ID, err)
	}
	if err := deps.Folders.IncrementSize(ctx, folder.ID, entry.TotalBytes()); err != nil {
		return 0, fmt.Errorf("%w: folder size %s: %v", errInfrastructure, folder.ID, err)
	}
	if err := deps.Folders.IncrementFileCount(ctx, folder.ID, entry.FileCount()); err != nil {
		return 0, fmt.Errorf("%w: folder files %s: %v", errInfrastructure, folder.ID, err)
	}
	if previous != nil {
		if err := r.release(ctx, previous, entry); err != nil {
			return 0, err
		}
	}
	if err := deps.Folders.AddCachedCollection(ctx, folder.ID, r.collection.ID); err != nil {
		return 0, fmt.Errorf("%w: folder collection %s: %v", errInfrastructure, folder.ID, err)
	}
	if err := deps.Jobs.SetTargetFolder(ctx, r.job.JobID, folder.ID, folder.Path); err != nil {
		return 0, fmt.Errorf("%w: target folder: %v", errInfrastructure, err)
	}
	r.stick(folder.ID)
	return entry.TotalBytes(), nil
}

func (r *run) render(ctx context.Context, img domain.SourceImage) (rendition, error) {
	deps := r.w.deps
	src, err := deps.Sources.ReadSource(ctx, img)
	if err != nil {
		return rendition{}, itemFailure("read source", err)
	}
	main, err := deps.Processor.Resize(ctx, src, imaging.Options{
		Width:   r.cfg.Width,
		Height:  r.cfg.Height,
		Quality: r.cfg.Quality,
		Format:  r.cfg.Format,
	})
	if err != nil {
		return rendition{}, itemFailure("resize", err)
	}
	out := rendition{main: main}
	if r.cfg.ThumbnailSize > 0 {
		thumb, err := deps.Processor.Thumbnail(ctx, src, r.cfg.ThumbnailSize, r.cfg.Format, r.cfg.Quality)
		if err != nil {
			return rendition{}, itemFailure("thumbnail", err)
		}
		out.thumb = &thumb
	}
	return out, nil
}

// release takes the superseded entry's bytes off its folder's counters and
// deletes files the new entry did not overwrite.
func (r *run) release(ctx context.Context, previous, current *domain.ArtifactEntry) error {
	deps := r.w.deps
	folders, err := deps.Folders.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: list folders: %v", errInfrastructure, err)
	}
	owner, ok := domain.FolderForPath(folders, previous.CachePath)
	if !ok {
		r.logger.Warn().Str("path", previous.CachePath).Msg("worker: superseded artifact outside known folders")
		return nil
	}
	clamped, err := deps.Folders.DecrementSize(ctx, owner.ID, previous.TotalBytes())
	if err != nil {
		return fmt.Errorf("%w: release size %s: %v", errInfrastructure, owner.ID, err)
	}
	filesClamped, err := deps.Folders.DecrementFileCount(ctx, owner.ID, previous.FileCount())
	if err != nil {
		return fmt.Errorf("%w: release files %s: %v", errInfrastructure, owner.ID, err)
	}
	if clamped || filesClamped {
		r.logger.Warn().Str("folder_id", owner.ID).Msg("worker: folder counters clamped at zero")
	}

	stale := make([]string, 0, 2)
	if previous.CachePath != current.CachePath {
		stale = append(stale, previous.CachePath)
	}
	if previous.ThumbnailPath != "" && previous.ThumbnailPath != current.ThumbnailPath {
		stale = append(stale, previous.ThumbnailPath)
	}
	if len(stale) == 0 {
		return nil
	}
	store, err := deps.Stores.For(*owner)
	if err != nil {
		r.logger.Warn().Err(err).Str("folder_id", owner.ID).Msg("worker: cannot open store of superseded artifact")
		return nil
	}
	for _, p := range stale {
		if err := store.Remove(ctx, owner.RelativeKey(p)); err != nil {
			r.logger.Warn().Err(err).Str("path", p).Msg("worker: remove superseded file failed")
		}
	}
	return nil
}
