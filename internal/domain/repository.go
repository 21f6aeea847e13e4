package domain

import (
	"context"
	"time"
)

// FolderRepository is the registry of cache folders. It owns CurrentSize and
// FileCount; every counter mutation is a single atomic update.
type FolderRepository interface {
	Create(ctx context.Context, folder *CacheFolder) error
	UpdateSettings(ctx context.Context, folder *CacheFolder) error
	GetByID(ctx context.Context, id string) (*CacheFolder, error)
	GetByPath(ctx context.Context, path string) (*CacheFolder, error)
	ListAll(ctx context.Context) ([]CacheFolder, error)
	ListActiveByPriority(ctx context.Context) ([]CacheFolder, error)
	FindByCollection(ctx context.Context, collectionID string) (*CacheFolder, error)
	IncrementSize(ctx context.Context, id string, bytes int64) error
	// DecrementSize subtracts bytes and reports whether the result was clamped at zero.
	DecrementSize(ctx context.Context, id string, bytes int64) (bool, error)
	IncrementFileCount(ctx context.Context, id string, n int64) error
	DecrementFileCount(ctx context.Context, id string, n int64) (bool, error)
	AddCachedCollection(ctx context.Context, id, collectionID string) error
	RemoveCachedCollection(ctx context.Context, id, collectionID string) error
	SetStats(ctx context.Context, id string, size, fileCount int64, cleanedAt time.Time) error
}

// ArtifactRepository is the per-image artifact catalog.
type ArtifactRepository interface {
	GetByImageID(ctx context.Context, imageID string) (*ArtifactEntry, error)
	GetValidByImageID(ctx context.Context, imageID string, now time.Time) (*ArtifactEntry, error)
	Put(ctx context.Context, entry *ArtifactEntry) error
	Delete(ctx context.Context, imageID string) error
	// DeleteExpired removes the entry only while it is still expired or invalid.
	DeleteExpired(ctx context.Context, imageID string, now time.Time) (bool, error)
	Invalidate(ctx context.Context, imageID string) error
	// GetExpired pages expired or invalid entries in (expires_at, image_id)
	// order, starting after the cursor.
	GetExpired(ctx context.Context, now time.Time, after ExpiryCursor, limit int) ([]ArtifactEntry, error)
	GetOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]ArtifactEntry, error)
	TotalSize(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
	SumByPathPrefix(ctx context.Context, prefix string, now time.Time) (bytes int64, files int64, err error)
	ListImageIDs(ctx context.Context, afterImageID string, limit int) ([]string, error)
}

// JobRepository persists job checkpoints. It exclusively owns the counters and
// the processed/failed id sets.
type JobRepository interface {
	Create(ctx context.Context, job *JobCheckpoint) error
	GetByJobID(ctx context.Context, jobID string) (*JobCheckpoint, error)
	Claim(ctx context.Context, jobID string) (*JobCheckpoint, error)
	ClaimNext(ctx context.Context) (*JobCheckpoint, error)
	SetTotal(ctx context.Context, jobID string, total int) error
	SetTargetFolder(ctx context.Context, jobID, folderID, folderPath string) error
	IsImageProcessed(ctx context.Context, jobID, imageID string) (bool, error)
	// Increment* return false when the image was already accounted for.
	IncrementCompleted(ctx context.Context, jobID, imageID string, sizeBytes int64) (bool, error)
	IncrementFailed(ctx context.Context, jobID, imageID, message string) (bool, error)
	IncrementSkipped(ctx context.Context, jobID, imageID string) (bool, error)
	UpdateStatus(ctx context.Context, jobID string, status JobStatus, errMsg string, canResume bool) error
	GetIncompleteJobs(ctx context.Context) ([]JobCheckpoint, error)
	GetPausedJobs(ctx context.Context) ([]JobCheckpoint, error)
	ListRecent(ctx context.Context, limit int) ([]JobCheckpoint, error)
	GetStaleJobs(ctx context.Context, cutoff time.Time) ([]JobCheckpoint, error)
	DeleteOldCompletedJobs(ctx context.Context, olderThan time.Time) (int64, error)
}

// ImageSource is the read-only view of the media library.
type ImageSource interface {
	GetCollection(ctx context.Context, collectionID string) (*Collection, error)
	ListCollectionImages(ctx context.Context, collectionID string) ([]SourceImage, error)
	CountCollectionImages(ctx context.Context, collectionID string) (int, error)
	GetImage(ctx context.Context, imageID string) (*SourceImage, error)
	// ExistingImageIDs returns the subset of ids that still exist.
	ExistingImageIDs(ctx context.Context, ids []string) (map[string]bool, error)
}
