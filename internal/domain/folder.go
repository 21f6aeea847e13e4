package domain

import (
	"strings"
	"time"
)

// CacheFolder is a storage location with a capacity budget and a placement priority.
// Lower Priority values are preferred.
type CacheFolder struct {
	ID                   string
	Name                 string
	Path                 string
	Priority             int
	MaxSize              int64
	CurrentSize          int64
	FileCount            int64
	IsActive             bool
	LastCacheGeneratedAt *time.Time
	LastCleanupAt        *time.Time
	CachedCollections    []string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// FreeSpace returns the remaining capacity, never negative.
func (f *CacheFolder) FreeSpace() int64 {
	free := f.MaxSize - f.CurrentSize
	if free < 0 {
		return 0
	}
	return free
}

// Fits reports whether an artifact of the estimated size can be placed here.
func (f *CacheFolder) Fits(estimate int64) bool {
	return f.IsActive && f.CurrentSize+estimate <= f.MaxSize
}

// HasCollection reports whether collectionID is currently cached in the folder.
func (f *CacheFolder) HasCollection(collectionID string) bool {
	for _, id := range f.CachedCollections {
		if id == collectionID {
			return true
		}
	}
	return false
}

// Contains reports whether path lives under the folder root.
func (f *CacheFolder) Contains(path string) bool {
	root := strings.TrimRight(f.Path, "/")
	if root == "" {
		return false
	}
	return path == root || strings.HasPrefix(path, root+"/")
}

// RelativeKey strips the folder root from an artifact path.
func (f *CacheFolder) RelativeKey(path string) string {
	root := strings.TrimRight(f.Path, "/")
	return strings.TrimPrefix(strings.TrimPrefix(path, root), "/")
}

// JoinPath builds the full artifact path for a folder-relative key.
func (f *CacheFolder) JoinPath(key string) string {
	return strings.TrimRight(f.Path, "/") + "/" + strings.TrimLeft(key, "/")
}

// FolderForPath returns the folder whose root contains path. When roots are
// nested the longest match wins.
func FolderForPath(folders []CacheFolder, path string) (*CacheFolder, bool) {
	var best *CacheFolder
	for i := range folders {
		f := &folders[i]
		if !f.Contains(path) {
			continue
		}
		if best == nil || len(f.Path) > len(best.Path) {
			best = f
		}
	}
	return best, best != nil
}
