package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mediacache/internal/domain"
	"mediacache/internal/infra"
	"mediacache/internal/sqlinline"
)

// ArtifactRepositoryPG implements domain.ArtifactRepository using PostgreSQL.
type ArtifactRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewArtifactRepository constructs the artifact catalog.
func NewArtifactRepository(sql infra.SQLExecutor) *ArtifactRepositoryPG {
	return &ArtifactRepositoryPG{sql: sql}
}

// GetByImageID returns the current entry regardless of validity.
func (r *ArtifactRepositoryPG) GetByImageID(ctx context.Context, imageID string) (*domain.ArtifactEntry, error) {
	return r.getOne(ctx, sqlinline.QSelectArtifactByImageID, imageID)
}

// GetValidByImageID returns the entry only when it is valid and unexpired at now.
func (r *ArtifactRepositoryPG) GetValidByImageID(ctx context.Context, imageID string, now time.Time) (*domain.ArtifactEntry, error) {
	return r.getOne(ctx, sqlinline.QSelectValidArtifactByImageID, imageID, now)
}

// Put creates or overwrites the single entry of entry.ImageID.
func (r *ArtifactRepositoryPG) Put(ctx context.Context, entry *domain.ArtifactEntry) error {
	if entry.ImageID == "" {
		return fmt.Errorf("artifact image id is required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	row := r.sql.QueryRow(ctx, sqlinline.QUpsertArtifact,
		entry.ID,
		entry.ImageID,
		entry.CachePath,
		entry.ThumbnailPath,
		entry.CacheSize,
		entry.ThumbnailSize,
		entry.Quality,
		entry.Format,
		entry.Dimensions,
		entry.CachedAt,
		entry.ExpiresAt,
		entry.IsValid,
	)
	if err := row.Scan(&entry.ID); err != nil {
		return fmt.Errorf("upsert artifact: %w", err)
	}
	return nil
}

func (r *ArtifactRepositoryPG) Delete(ctx context.Context, imageID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QDeleteArtifact, imageID)
	return err
}

func (r *ArtifactRepositoryPG) DeleteExpired(ctx context.Context, imageID string, now time.Time) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteExpiredArtifact, imageID, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ArtifactRepositoryPG) Invalidate(ctx context.Context, imageID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QInvalidateArtifact, imageID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetExpired pages entries past expiration or explicitly invalidated.
func (r *ArtifactRepositoryPG) GetExpired(ctx context.Context, now time.Time, after domain.ExpiryCursor, limit int) ([]domain.ArtifactEntry, error) {
	return queryList(ctx, r.sql, sqlinline.QListExpiredArtifacts, scanArtifact, now, after.ExpiresAt, after.ImageID, limit)
}

// GetOlderThan lists entries cached before cutoff.
func (r *ArtifactRepositoryPG) GetOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.ArtifactEntry, error) {
	return queryList(ctx, r.sql, sqlinline.QListArtifactsOlderThan, scanArtifact, cutoff, limit)
}

func (r *ArtifactRepositoryPG) TotalSize(ctx context.Context) (int64, error) {
	size, _, err := r.totals(ctx)
	return size, err
}

func (r *ArtifactRepositoryPG) Count(ctx context.Context) (int64, error) {
	_, count, err := r.totals(ctx)
	return count, err
}

// SumByPathPrefix totals bytes and files of valid entries stored under prefix.
func (r *ArtifactRepositoryPG) SumByPathPrefix(ctx context.Context, prefix string, now time.Time) (int64, int64, error) {
	var bytes, files int64
	if err := r.sql.QueryRow(ctx, sqlinline.QArtifactSumByPrefix, trimSlash(prefix), now).Scan(&bytes, &files); err != nil {
		return 0, 0, err
	}
	return bytes, files, nil
}

// ListImageIDs pages through catalogued image ids in ascending order.
func (r *ArtifactRepositoryPG) ListImageIDs(ctx context.Context, afterImageID string, limit int) ([]string, error) {
	return queryList(ctx, r.sql, sqlinline.QListArtifactImageIDs, func(row rowScanner) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	}, afterImageID, limit)
}

func (r *ArtifactRepositoryPG) totals(ctx context.Context) (int64, int64, error) {
	var size, count int64
	if err := r.sql.QueryRow(ctx, sqlinline.QArtifactTotals).Scan(&size, &count); err != nil {
		return 0, 0, err
	}
	return size, count, nil
}

func (r *ArtifactRepositoryPG) getOne(ctx context.Context, query string, args ...any) (*domain.ArtifactEntry, error) {
	entry, err := scanArtifact(r.sql.QueryRow(ctx, query, args...))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func scanArtifact(row rowScanner) (domain.ArtifactEntry, error) {
	var a domain.ArtifactEntry
	err := row.Scan(
		&a.ID,
		&a.ImageID,
		&a.CachePath,
		&a.ThumbnailPath,
		&a.CacheSize,
		&a.ThumbnailSize,
		&a.Quality,
		&a.Format,
		&a.Dimensions,
		&a.CachedAt,
		&a.ExpiresAt,
		&a.IsValid,
	)
	return a, err
}

func trimSlash(p string) string {
	for len(p) > 1 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}

var _ domain.ArtifactRepository = (*ArtifactRepositoryPG)(nil)
