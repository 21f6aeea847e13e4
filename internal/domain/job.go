package domain

import "time"

// JobStatus enumerates checkpoint lifecycle states.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ParseJobStatus maps free-form input onto a known status.
func ParseJobStatus(s string) (JobStatus, bool) {
	switch JobStatus(s) {
	case JobStatusPending, JobStatusRunning, JobStatusPaused, JobStatusCompleted, JobStatusFailed:
		return JobStatus(s), true
	default:
		return "", false
	}
}

// ClaimableStatuses are the prior states a worker may claim a job from.
// Failed only qualifies while the checkpoint is resumable.
var ClaimableStatuses = []JobStatus{JobStatusPending, JobStatusPaused, JobStatusFailed}

// transitions lists the allowed prior states for every target state. Entering
// Running goes through Claim and is listed here for completeness.
var transitions = map[JobStatus][]JobStatus{
	JobStatusRunning:   {JobStatusPending, JobStatusPaused, JobStatusFailed},
	JobStatusPending:   {JobStatusPaused, JobStatusFailed},
	JobStatusPaused:    {JobStatusPending, JobStatusRunning},
	JobStatusCompleted: {JobStatusRunning},
	JobStatusFailed:    {JobStatusPending, JobStatusRunning, JobStatusPaused},
}

// AllowedFrom returns the states a checkpoint may be in before moving to status.
func AllowedFrom(to JobStatus) []JobStatus {
	return transitions[to]
}

// CanTransition reports whether a checkpoint in state from may move to state to.
// A failed checkpoint can only leave Failed while canResume is set.
func CanTransition(from JobStatus, canResume bool, to JobStatus) bool {
	if from == JobStatusFailed && !canResume {
		return false
	}
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// JobCheckpoint is the persisted, resumable state of one bulk cache-generation run.
type JobCheckpoint struct {
	ID             string
	JobID          string
	CollectionID   string
	CollectionName string
	Status         JobStatus

	TotalImages     int
	CompletedImages int
	FailedImages    int
	SkippedImages   int

	ProcessedImageIDs []string
	FailedImageIDs    []string
	ItemErrors        map[string]string

	TargetFolderID   string
	TargetFolderPath string
	Config           GenerationConfig
	TotalSizeBytes   int64

	StartedAt      *time.Time
	CompletedAt    *time.Time
	LastProgressAt *time.Time
	ErrorMessage   string
	CanResume      bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Processed returns how many images are accounted for in the counters.
func (j *JobCheckpoint) Processed() int {
	return j.CompletedImages + j.FailedImages + j.SkippedImages
}

// Remaining returns the number of images not yet accounted for.
func (j *JobCheckpoint) Remaining() int {
	r := j.TotalImages - j.Processed()
	if r < 0 {
		return 0
	}
	return r
}

// Progress returns the completion percentage, 0 when the job has no images.
func (j *JobCheckpoint) Progress() float64 {
	if j.TotalImages <= 0 {
		return 0
	}
	return float64(j.Processed()) / float64(j.TotalImages) * 100
}

// IsTerminal reports whether no further transition is possible.
func (j *JobCheckpoint) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted:
		return true
	case JobStatusFailed:
		return !j.CanResume
	default:
		return false
	}
}

// Resumable reports whether the job can be claimed again to continue work.
func (j *JobCheckpoint) Resumable() bool {
	switch j.Status {
	case JobStatusPaused:
		return true
	case JobStatusFailed:
		return j.CanResume
	default:
		return false
	}
}

// HasImage reports whether imageID is already reflected in the counters.
func (j *JobCheckpoint) HasImage(imageID string) bool {
	for _, id := range j.ProcessedImageIDs {
		if id == imageID {
			return true
		}
	}
	for _, id := range j.FailedImageIDs {
		if id == imageID {
			return true
		}
	}
	return false
}
