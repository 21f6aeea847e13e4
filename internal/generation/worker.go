// Package generation drives cache-generation jobs: it walks a collection,
// produces artifacts for every image not yet accounted for and keeps the
// catalog, folder and job counters in step.
package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mediacache/internal/domain"
	"mediacache/internal/imaging"
	"mediacache/internal/placement"
	"mediacache/internal/storage"
)

// SourceReader loads original image bytes.
type SourceReader interface {
	ReadSource(ctx context.Context, img domain.SourceImage) ([]byte, error)
}

// StoreResolver returns the byte store behind a cache folder.
type StoreResolver interface {
	For(folder domain.CacheFolder) (storage.Store, error)
}

// Deps are the collaborators a Worker drives.
type Deps struct {
	Jobs      domain.JobRepository
	Folders   domain.FolderRepository
	Artifacts domain.ArtifactRepository
	Images    domain.ImageSource
	Sources   SourceReader
	Stores    StoreResolver
	Processor imaging.Processor
	Placement *placement.Policy
	Logger    zerolog.Logger
}

type Options struct {
	// Concurrency bounds how many images of one job are processed at once.
	Concurrency int
	// ArtifactTTL sets ExpiresAt of new catalog entries.
	ArtifactTTL time.Duration
	// DefaultEstimate is the placement estimate when output size is unknown.
	DefaultEstimate int64
	Now             func() time.Time
}

// Worker processes claimed jobs. It is safe to run several workers, in one
// process or many, against the same repositories.
type Worker struct {
	deps Deps
	opts Options
}

// errInfrastructure marks failures of the repositories themselves. They stop
// the job but leave it resumable.
var errInfrastructure = errors.New("infrastructure failure")

func NewWorker(deps Deps, opts Options) *Worker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.ArtifactTTL <= 0 {
		opts.ArtifactTTL = 30 * 24 * time.Hour
	}
	if opts.DefaultEstimate <= 0 {
		opts.DefaultEstimate = 512 << 10
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if deps.Placement == nil {
		deps.Placement = placement.New(deps.Folders, deps.Logger)
	}
	return &Worker{deps: deps, opts: opts}
}

type run struct {
	w          *Worker
	job        *domain.JobCheckpoint
	collection domain.Collection
	cfg        domain.GenerationConfig
	logger     zerolog.Logger

	mu        sync.Mutex
	preferred string

	stopped atomic.Bool
	infraMu sync.Mutex
	infra   error
}

// Run drives a job the caller has already claimed (status Running) until it
// completes, is paused or cancelled by an operator, hits a job-fatal
// condition, or ctx is cancelled. In-flight images always finish. The
// returned checkpoint is the job's persisted state after the run.
func (w *Worker) Run(ctx context.Context, job *domain.JobCheckpoint) (*domain.JobCheckpoint, error) {
	logger := w.deps.Logger.With().Str("job_id", job.JobID).Str("collection_id", job.CollectionID).Logger()
	// Final bookkeeping must land even when shutdown cancelled ctx.
	bg := context.WithoutCancel(ctx)

	collection, err := w.deps.Images.GetCollection(ctx, job.CollectionID)
	if err != nil {
		if errors.Is(err, domain.ErrCollectionNotFound) || errors.Is(err, domain.ErrNotFound) {
			return w.fail(bg, job, logger, fmt.Sprintf("collection %s not found", job.CollectionID), false)
		}
		return w.abort(bg, job, logger, fmt.Errorf("load collection: %w", err))
	}
	images, err := w.deps.Images.ListCollectionImages(ctx, job.CollectionID)
	if err != nil {
		return w.abort(bg, job, logger, fmt.Errorf("list images: %w", err))
	}
	if len(images) == 0 {
		return w.fail(bg, job, logger, "collection has no images", false)
	}
	if err := w.deps.Jobs.SetTotal(ctx, job.JobID, len(images)); err != nil {
		return w.abort(bg, job, logger, fmt.Errorf("set total: %w", err))
	}
	active, err := w.deps.Placement.HasActiveFolder(ctx)
	if err != nil {
		return w.abort(bg, job, logger, fmt.Errorf("list folders: %w", err))
	}
	if !active {
		return w.fail(bg, job, logger, domain.ErrNoActiveFolder.Error(), false)
	}

	r := &run{
		w:          w,
		job:        job,
		collection: *collection,
		cfg:        job.Config.Normalize(),
		logger:     logger,
		preferred:  w.preferredFolder(ctx, job),
	}
	pending := make([]domain.SourceImage, 0, len(images))
	for _, img := range images {
		if !job.HasImage(img.ID) {
			pending = append(pending, img)
		}
	}
	logger.Info().Int("total", len(images)).Int("pending", len(pending)).Msg("worker: processing job")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Concurrency)
	for _, img := range pending {
		if gctx.Err() != nil || r.stopped.Load() {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil || r.stopped.Load() || !r.stillRunning(bg) {
				r.stopped.Store(true)
				return nil
			}
			if err := r.processItem(bg, img); err != nil {
				r.setInfra(err)
				return err
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := r.infraErr(); err != nil {
		return w.abort(bg, job, logger, err)
	}
	if ctx.Err() != nil {
		logger.Info().Msg("worker: shutdown, pausing job")
		if err := w.deps.Jobs.UpdateStatus(bg, job.JobID, domain.JobStatusPaused, "worker shutdown", true); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
			return nil, err
		}
		return w.deps.Jobs.GetByJobID(bg, job.JobID)
	}
	return w.finish(bg, job, logger)
}

// finish marks the job Completed once every image is accounted for.
func (w *Worker) finish(ctx context.Context, job *domain.JobCheckpoint, logger zerolog.Logger) (*domain.JobCheckpoint, error) {
	current, err := w.deps.Jobs.GetByJobID(ctx, job.JobID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.JobStatusRunning {
		logger.Info().Str("status", string(current.Status)).Msg("worker: job stopped externally")
		return current, nil
	}
	if current.Remaining() > 0 {
		msg := fmt.Sprintf("%d images unaccounted for", current.Remaining())
		logger.Warn().Int("remaining", current.Remaining()).Msg("worker: pass ended early, pausing job")
		if err := w.deps.Jobs.UpdateStatus(ctx, job.JobID, domain.JobStatusPaused, msg, true); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
			return nil, err
		}
		return w.deps.Jobs.GetByJobID(ctx, job.JobID)
	}
	if err := w.deps.Jobs.UpdateStatus(ctx, job.JobID, domain.JobStatusCompleted, "", false); err != nil {
		if !errors.Is(err, domain.ErrInvalidTransition) {
			return nil, err
		}
		logger.Info().Msg("worker: job left running state before completion")
	} else {
		logger.Info().Int("completed", current.CompletedImages).Int("failed", current.FailedImages).
			Int("skipped", current.SkippedImages).Int64("total_size", current.TotalSizeBytes).Msg("worker: job completed")
	}
	return w.deps.Jobs.GetByJobID(ctx, job.JobID)
}

// fail records a job-fatal condition.
func (w *Worker) fail(ctx context.Context, job *domain.JobCheckpoint, logger zerolog.Logger, msg string, canResume bool) (*domain.JobCheckpoint, error) {
	logger.Error().Str("reason", msg).Bool("can_resume", canResume).Msg("worker: job failed")
	if err := w.deps.Jobs.UpdateStatus(ctx, job.JobID, domain.JobStatusFailed, msg, canResume); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		return nil, err
	}
	return w.deps.Jobs.GetByJobID(ctx, job.JobID)
}

// abort fails the job as resumable and returns the cause to the caller.
func (w *Worker) abort(ctx context.Context, job *domain.JobCheckpoint, logger zerolog.Logger, cause error) (*domain.JobCheckpoint, error) {
	final, err := w.fail(ctx, job, logger, cause.Error(), true)
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	return final, cause
}

// preferredFolder returns the folder a job should stick to: its recorded
// target, else the folder already holding the collection.
func (w *Worker) preferredFolder(ctx context.Context, job *domain.JobCheckpoint) string {
	if job.TargetFolderID != "" {
		return job.TargetFolderID
	}
	f, err := w.deps.Folders.FindByCollection(ctx, job.CollectionID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			w.deps.Logger.Warn().Err(err).Str("job_id", job.JobID).Msg("worker: lookup collection folder failed")
		}
		return ""
	}
	return f.ID
}

// stillRunning re-reads the job status so operator pause and cancel are
// observed between items.
func (r *run) stillRunning(ctx context.Context) bool {
	current, err := r.w.deps.Jobs.GetByJobID(ctx, r.job.JobID)
	if err != nil {
		r.setInfra(fmt.Errorf("reload job: %w", err))
		return false
	}
	if current.Status != domain.JobStatusRunning {
		r.logger.Info().Str("status", string(current.Status)).Msg("worker: job no longer running, stopping")
		return false
	}
	return true
}

func (r *run) setInfra(err error) {
	r.infraMu.Lock()
	defer r.infraMu.Unlock()
	if r.infra == nil {
		r.infra = err
	}
}

func (r *run) infraErr() error {
	r.infraMu.Lock()
	defer r.infraMu.Unlock()
	return r.infra
}

func (r *run) preferredID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.preferred
}

func (r *run) stick(folderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.preferred == "" {
		r.preferred = folderID
	}
}
