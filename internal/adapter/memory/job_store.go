package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediacache/internal/domain"
)

type jobRecord struct {
	job domain.JobCheckpoint
	seq int64
}

// JobStore is an in-process JobRepository. Counter updates check the id sets
// and the total under the same lock, so an image is counted at most once.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*jobRecord
	seq  int64
	Now  Clock
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*jobRecord)}
}

func (s *JobStore) Create(_ context.Context, job *domain.JobCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.JobID == "" {
		job.JobID = job.ID
	}
	if _, ok := s.jobs[job.JobID]; ok {
		return domain.ErrDuplicateJob
	}
	now := s.Now.now()
	job.Status = domain.JobStatusPending
	job.CanResume = true
	job.CreatedAt = now
	job.UpdatedAt = now
	s.seq++
	s.jobs[job.JobID] = &jobRecord{job: cloneJob(*job), seq: s.seq}
	return nil
}

func (s *JobStore) GetByJobID(_ context.Context, jobID string) (*domain.JobCheckpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneJob(rec.job)
	return &out, nil
}

func (s *JobStore) Claim(_ context.Context, jobID string) (*domain.JobCheckpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !domain.CanTransition(rec.job.Status, rec.job.CanResume, domain.JobStatusRunning) {
		return nil, domain.ErrClaimConflict
	}
	s.start(rec)
	out := cloneJob(rec.job)
	return &out, nil
}

func (s *JobStore) ClaimNext(_ context.Context) (*domain.JobCheckpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next *jobRecord
	for _, rec := range s.jobs {
		if rec.job.Status != domain.JobStatusPending {
			continue
		}
		if next == nil || rec.job.CreatedAt.Before(next.job.CreatedAt) ||
			(rec.job.CreatedAt.Equal(next.job.CreatedAt) && rec.seq < next.seq) {
			next = rec
		}
	}
	if next == nil {
		return nil, domain.ErrNoJobAvailable
	}
	s.start(next)
	out := cloneJob(next.job)
	return &out, nil
}

func (s *JobStore) start(rec *jobRecord) {
	now := s.Now.now()
	rec.job.Status = domain.JobStatusRunning
	if rec.job.StartedAt == nil {
		rec.job.StartedAt = timePtr(now)
	}
	rec.job.LastProgressAt = timePtr(now)
	rec.job.ErrorMessage = ""
	rec.job.UpdatedAt = now
}

func (s *JobStore) SetTotal(_ context.Context, jobID string, total int) error {
	return s.update(jobID, func(j *domain.JobCheckpoint) bool {
		j.TotalImages = max(total, j.Processed())
		return true
	})
}

func (s *JobStore) SetTargetFolder(_ context.Context, jobID, folderID, folderPath string) error {
	err := s.update(jobID, func(j *domain.JobCheckpoint) bool {
		if j.TargetFolderID != "" {
			return false
		}
		j.TargetFolderID = folderID
		j.TargetFolderPath = folderPath
		return true
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

func (s *JobStore) IsImageProcessed(_ context.Context, jobID, imageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok {
		return false, domain.ErrNotFound
	}
	return rec.job.HasImage(imageID), nil
}

func (s *JobStore) IncrementCompleted(_ context.Context, jobID, imageID string, sizeBytes int64) (bool, error) {
	return s.count(jobID, imageID, func(j *domain.JobCheckpoint) {
		j.CompletedImages++
		j.ProcessedImageIDs = append(j.ProcessedImageIDs, imageID)
		j.TotalSizeBytes += sizeBytes
	})
}

func (s *JobStore) IncrementFailed(_ context.Context, jobID, imageID, message string) (bool, error) {
	return s.count(jobID, imageID, func(j *domain.JobCheckpoint) {
		j.FailedImages++
		j.FailedImageIDs = append(j.FailedImageIDs, imageID)
		if j.ItemErrors == nil {
			j.ItemErrors = make(map[string]string)
		}
		j.ItemErrors[imageID] = message
	})
}

func (s *JobStore) IncrementSkipped(_ context.Context, jobID, imageID string) (bool, error) {
	return s.count(jobID, imageID, func(j *domain.JobCheckpoint) {
		j.SkippedImages++
		j.ProcessedImageIDs = append(j.ProcessedImageIDs, imageID)
	})
}

// count returns false without an error when the job is unknown, matching the
// zero-rows result of the conditional update in PostgreSQL.
func (s *JobStore) count(jobID, imageID string, apply func(*domain.JobCheckpoint)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok {
		return false, nil
	}
	j := &rec.job
	if j.HasImage(imageID) || j.Processed() >= j.TotalImages {
		return false, nil
	}
	apply(j)
	now := s.Now.now()
	j.LastProgressAt = timePtr(now)
	j.UpdatedAt = now
	return true, nil
}

func (s *JobStore) UpdateStatus(_ context.Context, jobID string, status domain.JobStatus, errMsg string, canResume bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	j := &rec.job
	if !domain.CanTransition(j.Status, j.CanResume, status) {
		return domain.ErrInvalidTransition
	}
	now := s.Now.now()
	j.Status = status
	j.ErrorMessage = errMsg
	j.CanResume = canResume
	if status == domain.JobStatusCompleted || (status == domain.JobStatusFailed && !canResume) {
		j.CompletedAt = timePtr(now)
	}
	j.UpdatedAt = now
	return nil
}

func (s *JobStore) GetIncompleteJobs(_ context.Context) ([]domain.JobCheckpoint, error) {
	out := s.list(func(j domain.JobCheckpoint) bool { return !j.IsTerminal() })
	return out, nil
}

func (s *JobStore) GetPausedJobs(_ context.Context) ([]domain.JobCheckpoint, error) {
	out := s.list(func(j domain.JobCheckpoint) bool { return j.Status == domain.JobStatusPaused })
	return out, nil
}

func (s *JobStore) ListRecent(_ context.Context, limit int) ([]domain.JobCheckpoint, error) {
	out := s.list(func(domain.JobCheckpoint) bool { return true })
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetStaleJobs lists Running jobs with no progress since cutoff.
func (s *JobStore) GetStaleJobs(_ context.Context, cutoff time.Time) ([]domain.JobCheckpoint, error) {
	out := s.list(func(j domain.JobCheckpoint) bool {
		return j.Status == domain.JobStatusRunning && lastActivity(j).Before(cutoff)
	})
	return out, nil
}

func (s *JobStore) DeleteOldCompletedJobs(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.jobs {
		j := rec.job
		if !j.IsTerminal() {
			continue
		}
		finished := j.UpdatedAt
		if j.CompletedAt != nil {
			finished = *j.CompletedAt
		}
		if finished.Before(olderThan) {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}

func (s *JobStore) update(jobID string, fn func(*domain.JobCheckpoint) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if fn(&rec.job) {
		rec.job.UpdatedAt = s.Now.now()
	}
	return nil
}

// list returns matching checkpoints in creation order.
func (s *JobStore) list(keep func(domain.JobCheckpoint) bool) []domain.JobCheckpoint {
	s.mu.Lock()
	recs := make([]*jobRecord, 0, len(s.jobs))
	for _, rec := range s.jobs {
		if keep(rec.job) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	out := make([]domain.JobCheckpoint, 0, len(recs))
	for _, rec := range recs {
		out = append(out, cloneJob(rec.job))
	}
	s.mu.Unlock()
	return out
}

func lastActivity(j domain.JobCheckpoint) time.Time {
	switch {
	case j.LastProgressAt != nil:
		return *j.LastProgressAt
	case j.StartedAt != nil:
		return *j.StartedAt
	default:
		return j.UpdatedAt
	}
}

func cloneJob(j domain.JobCheckpoint) domain.JobCheckpoint {
	j.ProcessedImageIDs = cloneStrings(j.ProcessedImageIDs)
	j.FailedImageIDs = cloneStrings(j.FailedImageIDs)
	if j.ItemErrors != nil {
		errs := make(map[string]string, len(j.ItemErrors))
		for k, v := range j.ItemErrors {
			errs[k] = v
		}
		j.ItemErrors = errs
	}
	return j
}

var _ domain.JobRepository = (*JobStore)(nil)
