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

// FolderRepositoryPG implements domain.FolderRepository. Counter mutations are
// single-statement updates, so concurrent workers across processes never lose
// an increment.
type FolderRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewFolderRepository creates a folder registry backed by PostgreSQL.
func NewFolderRepository(sql infra.SQLExecutor) *FolderRepositoryPG {
	return &FolderRepositoryPG{sql: sql}
}

// Create registers a new folder. Counters always start at zero.
func (r *FolderRepositoryPG) Create(ctx context.Context, folder *domain.CacheFolder) error {
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertCacheFolder,
		folder.ID,
		folder.Name,
		folder.Path,
		folder.Priority,
		folder.MaxSize,
		folder.IsActive,
	)
	if err := row.Scan(&folder.CreatedAt, &folder.UpdatedAt); err != nil {
		return fmt.Errorf("insert cache folder: %w", err)
	}
	folder.CurrentSize = 0
	folder.FileCount = 0
	return nil
}

// UpdateSettings changes name, priority, capacity and activity without touching counters.
func (r *FolderRepositoryPG) UpdateSettings(ctx context.Context, folder *domain.CacheFolder) error {
	if !validID(folder.ID) {
		return domain.ErrNotFound
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateCacheFolderSettings,
		folder.ID,
		folder.Name,
		folder.Priority,
		folder.MaxSize,
		folder.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID fetches a folder by identifier.
func (r *FolderRepositoryPG) GetByID(ctx context.Context, id string) (*domain.CacheFolder, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	return r.getOne(ctx, sqlinline.QSelectCacheFolderByID, id)
}

// GetByPath resolves a folder from its configured root path.
func (r *FolderRepositoryPG) GetByPath(ctx context.Context, path string) (*domain.CacheFolder, error) {
	return r.getOne(ctx, sqlinline.QSelectCacheFolderByPath, path)
}

// FindByCollection returns the folder currently holding artifacts of the collection.
func (r *FolderRepositoryPG) FindByCollection(ctx context.Context, collectionID string) (*domain.CacheFolder, error) {
	return r.getOne(ctx, sqlinline.QSelectCacheFolderByCollection, collectionID)
}

// ListAll returns every registered folder.
func (r *FolderRepositoryPG) ListAll(ctx context.Context) ([]domain.CacheFolder, error) {
	return queryList(ctx, r.sql, sqlinline.QListCacheFolders, scanFolder)
}

// ListActiveByPriority returns active folders ordered by priority, then by free space descending.
func (r *FolderRepositoryPG) ListActiveByPriority(ctx context.Context) ([]domain.CacheFolder, error) {
	return queryList(ctx, r.sql, sqlinline.QListActiveCacheFolders, scanFolder)
}

func (r *FolderRepositoryPG) IncrementSize(ctx context.Context, id string, bytes int64) error {
	return r.increment(ctx, sqlinline.QIncrementFolderSize, id, bytes)
}

func (r *FolderRepositoryPG) DecrementSize(ctx context.Context, id string, bytes int64) (bool, error) {
	return r.decrement(ctx, sqlinline.QDecrementFolderSize, id, bytes)
}

func (r *FolderRepositoryPG) IncrementFileCount(ctx context.Context, id string, n int64) error {
	return r.increment(ctx, sqlinline.QIncrementFolderFileCount, id, n)
}

func (r *FolderRepositoryPG) DecrementFileCount(ctx context.Context, id string, n int64) (bool, error) {
	return r.decrement(ctx, sqlinline.QDecrementFolderFileCount, id, n)
}

// AddCachedCollection records that the folder holds artifacts of collectionID. Idempotent.
func (r *FolderRepositoryPG) AddCachedCollection(ctx context.Context, id, collectionID string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	_, err := r.sql.Exec(ctx, sqlinline.QAddFolderCollection, id, collectionID)
	return err
}

// RemoveCachedCollection drops collectionID from the folder. Idempotent.
func (r *FolderRepositoryPG) RemoveCachedCollection(ctx context.Context, id, collectionID string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	_, err := r.sql.Exec(ctx, sqlinline.QRemoveFolderCollection, id, collectionID)
	return err
}

// SetStats overwrites counters with reconciled values.
func (r *FolderRepositoryPG) SetStats(ctx context.Context, id string, size, fileCount int64, cleanedAt time.Time) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	if size < 0 || fileCount < 0 {
		return fmt.Errorf("folder stats must not be negative")
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QSetFolderStats, id, size, fileCount, cleanedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *FolderRepositoryPG) increment(ctx context.Context, query, id string, delta int64) error {
	if delta < 0 {
		return fmt.Errorf("increment must not be negative: %d", delta)
	}
	if !validID(id) {
		return domain.ErrNotFound
	}
	tag, err := r.sql.Exec(ctx, query, id, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *FolderRepositoryPG) decrement(ctx context.Context, query, id string, delta int64) (bool, error) {
	if delta < 0 {
		return false, fmt.Errorf("decrement must not be negative: %d", delta)
	}
	if !validID(id) {
		return false, domain.ErrNotFound
	}
	var clamped bool
	if err := r.sql.QueryRow(ctx, query, id, delta).Scan(&clamped); err != nil {
		if infra.IsNoRows(err) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return clamped, nil
}

func (r *FolderRepositoryPG) getOne(ctx context.Context, query string, args ...any) (*domain.CacheFolder, error) {
	folder, err := scanFolder(r.sql.QueryRow(ctx, query, args...))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &folder, nil
}

func scanFolder(row rowScanner) (domain.CacheFolder, error) {
	var f domain.CacheFolder
	err := row.Scan(
		&f.ID,
		&f.Name,
		&f.Path,
		&f.Priority,
		&f.MaxSize,
		&f.CurrentSize,
		&f.FileCount,
		&f.IsActive,
		&f.LastCacheGeneratedAt,
		&f.LastCleanupAt,
		&f.CachedCollections,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	return f, err
}

var _ domain.FolderRepository = (*FolderRepositoryPG)(nil)
