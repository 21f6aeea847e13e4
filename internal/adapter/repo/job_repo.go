package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mediacache/internal/domain"
	"mediacache/internal/infra"
	"mediacache/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository. Every counter update is a
// conditional single-row statement keyed on the id sets, so an image can be
// counted at most once no matter how many workers race on it.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a checkpoint store backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a Pending checkpoint. A reused JobID yields domain.ErrDuplicateJob.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.JobCheckpoint) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.JobID == "" {
		job.JobID = job.ID
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertCacheJob,
		job.ID,
		job.JobID,
		job.CollectionID,
		job.CollectionName,
		job.TotalImages,
		job.TargetFolderID,
		job.TargetFolderPath,
		job.Config.Width,
		job.Config.Height,
		job.Config.Quality,
		job.Config.Format,
		job.Config.ThumbnailSize,
		job.Config.Force,
	)
	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return domain.ErrDuplicateJob
		}
		return fmt.Errorf("insert cache job: %w", err)
	}
	job.Status = domain.JobStatusPending
	job.CanResume = true
	return nil
}

// GetByJobID fetches a checkpoint by its external job id.
func (r *JobRepositoryPG) GetByJobID(ctx context.Context, jobID string) (*domain.JobCheckpoint, error) {
	return r.getOne(ctx, sqlinline.QSelectCacheJob, jobID)
}

// Claim moves a Pending, Paused or resumable Failed job to Running. Only one
// of several racing callers can observe the prior status, so at most one wins.
func (r *JobRepositoryPG) Claim(ctx context.Context, jobID string) (*domain.JobCheckpoint, error) {
	job, err := r.getOne(ctx, sqlinline.QClaimCacheJob, jobID)
	if errors.Is(err, domain.ErrNotFound) {
		if _, getErr := r.GetByJobID(ctx, jobID); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrClaimConflict
	}
	return job, err
}

// ClaimNext claims the oldest Pending job, skipping rows locked by other workers.
func (r *JobRepositoryPG) ClaimNext(ctx context.Context) (*domain.JobCheckpoint, error) {
	job, err := r.getOne(ctx, sqlinline.QClaimNextCacheJob)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoJobAvailable
	}
	return job, err
}

// SetTotal updates the image total without dropping below the counted images.
func (r *JobRepositoryPG) SetTotal(ctx context.Context, jobID string, total int) error {
	return r.execOne(ctx, sqlinline.QSetCacheJobTotal, jobID, total)
}

// SetTargetFolder records the folder of the first placement. Later calls are no-ops.
func (r *JobRepositoryPG) SetTargetFolder(ctx context.Context, jobID, folderID, folderPath string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QSetCacheJobTargetFolder, jobID, folderID, folderPath)
	return err
}

// IsImageProcessed reports whether the image is in the processed or failed set.
func (r *JobRepositoryPG) IsImageProcessed(ctx context.Context, jobID, imageID string) (bool, error) {
	var seen bool
	if err := r.sql.QueryRow(ctx, sqlinline.QCacheJobHasImage, jobID, imageID).Scan(&seen); err != nil {
		if infra.IsNoRows(err) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return seen, nil
}

func (r *JobRepositoryPG) IncrementCompleted(ctx context.Context, jobID, imageID string, sizeBytes int64) (bool, error) {
	return r.count(ctx, sqlinline.QIncrementCacheJobCompleted, jobID, imageID, sizeBytes)
}

func (r *JobRepositoryPG) IncrementFailed(ctx context.Context, jobID, imageID, message string) (bool, error) {
	return r.count(ctx, sqlinline.QIncrementCacheJobFailed, jobID, imageID, message)
}

func (r *JobRepositoryPG) IncrementSkipped(ctx context.Context, jobID, imageID string) (bool, error) {
	return r.count(ctx, sqlinline.QIncrementCacheJobSkipped, jobID, imageID)
}

// UpdateStatus applies an explicit transition guarded by the state machine.
func (r *JobRepositoryPG) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, errMsg string, canResume bool) error {
	from := domain.AllowedFrom(status)
	if len(from) == 0 {
		return domain.ErrInvalidTransition
	}
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateCacheJobStatus, jobID, string(status), errMsg, canResume, allowed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByJobID(ctx, jobID); err != nil {
			return err
		}
		return domain.ErrInvalidTransition
	}
	return nil
}

func (r *JobRepositoryPG) GetIncompleteJobs(ctx context.Context) ([]domain.JobCheckpoint, error) {
	return queryList(ctx, r.sql, sqlinline.QListIncompleteCacheJobs, scanJob)
}

func (r *JobRepositoryPG) GetPausedJobs(ctx context.Context) ([]domain.JobCheckpoint, error) {
	return queryList(ctx, r.sql, sqlinline.QListPausedCacheJobs, scanJob)
}

func (r *JobRepositoryPG) ListRecent(ctx context.Context, limit int) ([]domain.JobCheckpoint, error) {
	return queryList(ctx, r.sql, sqlinline.QListRecentCacheJobs, scanJob, limit)
}

// GetStaleJobs lists Running jobs whose last progress predates cutoff.
func (r *JobRepositoryPG) GetStaleJobs(ctx context.Context, cutoff time.Time) ([]domain.JobCheckpoint, error) {
	return queryList(ctx, r.sql, sqlinline.QListStaleCacheJobs, scanJob, cutoff)
}

// DeleteOldCompletedJobs removes terminal jobs finished before olderThan.
func (r *JobRepositoryPG) DeleteOldCompletedJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteOldCacheJobs, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *JobRepositoryPG) count(ctx context.Context, query, jobID, imageID string, extra ...any) (bool, error) {
	args := append([]any{jobID, imageID}, extra...)
	tag, err := r.sql.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *JobRepositoryPG) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := r.sql.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *JobRepositoryPG) getOne(ctx context.Context, query string, args ...any) (*domain.JobCheckpoint, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, query, args...))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func scanJob(row rowScanner) (domain.JobCheckpoint, error) {
	var (
		j      domain.JobCheckpoint
		status string
	)
	err := row.Scan(
		&j.ID,
		&j.JobID,
		&j.CollectionID,
		&j.CollectionName,
		&status,
		&j.TotalImages,
		&j.CompletedImages,
		&j.FailedImages,
		&j.SkippedImages,
		&j.ProcessedImageIDs,
		&j.FailedImageIDs,
		&j.ItemErrors,
		&j.TargetFolderID,
		&j.TargetFolderPath,
		&j.Config.Width,
		&j.Config.Height,
		&j.Config.Quality,
		&j.Config.Format,
		&j.Config.ThumbnailSize,
		&j.Config.Force,
		&j.TotalSizeBytes,
		&j.StartedAt,
		&j.CompletedAt,
		&j.LastProgressAt,
		&j.ErrorMessage,
		&j.CanResume,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	j.Status = domain.JobStatus(status)
	return j, err
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
