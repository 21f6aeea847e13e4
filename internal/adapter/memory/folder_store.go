package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediacache/internal/domain"
)

// FolderStore is an in-process FolderRepository. A single mutex serializes
// every mutation, which gives the same atomicity as the single-statement
// updates of the PostgreSQL registry.
type FolderStore struct {
	mu      sync.Mutex
	folders map[string]domain.CacheFolder
	Now     Clock
}

func NewFolderStore() *FolderStore {
	return &FolderStore{folders: make(map[string]domain.CacheFolder)}
}

func (s *FolderStore) Create(_ context.Context, folder *domain.CacheFolder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.folders {
		if f.Path == folder.Path {
			return fmt.Errorf("cache folder path %q already registered", folder.Path)
		}
	}
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	now := s.Now.now()
	folder.CurrentSize = 0
	folder.FileCount = 0
	folder.CreatedAt = now
	folder.UpdatedAt = now
	s.folders[folder.ID] = cloneFolder(*folder)
	return nil
}

func (s *FolderStore) UpdateSettings(_ context.Context, folder *domain.CacheFolder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[folder.ID]
	if !ok {
		return domain.ErrNotFound
	}
	f.Name = folder.Name
	f.Priority = folder.Priority
	f.MaxSize = folder.MaxSize
	f.IsActive = folder.IsActive
	f.UpdatedAt = s.Now.now()
	s.folders[f.ID] = f
	return nil
}

func (s *FolderStore) GetByID(_ context.Context, id string) (*domain.CacheFolder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneFolder(f)
	return &out, nil
}

func (s *FolderStore) GetByPath(_ context.Context, path string) (*domain.CacheFolder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.folders {
		if f.Path == path {
			out := cloneFolder(f)
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *FolderStore) ListAll(_ context.Context) ([]domain.CacheFolder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CacheFolder, 0, len(s.folders))
	for _, f := range s.folders {
		out = append(out, cloneFolder(f))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ListActiveByPriority orders by priority ascending, then free space descending.
func (s *FolderStore) ListActiveByPriority(_ context.Context) ([]domain.CacheFolder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CacheFolder, 0, len(s.folders))
	for _, f := range s.folders {
		if f.IsActive {
			out = append(out, cloneFolder(f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		if fi, fj := out[i].FreeSpace(), out[j].FreeSpace(); fi != fj {
			return fi > fj
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *FolderStore) FindByCollection(_ context.Context, collectionID string) (*domain.CacheFolder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *domain.CacheFolder
	for _, f := range s.folders {
		if !f.HasCollection(collectionID) {
			continue
		}
		if best == nil || (f.IsActive && !best.IsActive) || (f.IsActive == best.IsActive && f.Priority < best.Priority) {
			c := cloneFolder(f)
			best = &c
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best, nil
}

func (s *FolderStore) IncrementSize(_ context.Context, id string, bytes int64) error {
	return s.mutate(id, bytes, func(f *domain.CacheFolder) {
		f.CurrentSize += bytes
	})
}

func (s *FolderStore) IncrementFileCount(_ context.Context, id string, n int64) error {
	return s.mutate(id, n, func(f *domain.CacheFolder) {
		f.FileCount += n
		f.LastCacheGeneratedAt = timePtr(s.Now.now())
	})
}

func (s *FolderStore) DecrementSize(_ context.Context, id string, bytes int64) (bool, error) {
	var clamped bool
	err := s.mutate(id, bytes, func(f *domain.CacheFolder) {
		clamped = f.CurrentSize < bytes
		f.CurrentSize = max(f.CurrentSize-bytes, 0)
	})
	return clamped, err
}

func (s *FolderStore) DecrementFileCount(_ context.Context, id string, n int64) (bool, error) {
	var clamped bool
	err := s.mutate(id, n, func(f *domain.CacheFolder) {
		clamped = f.FileCount < n
		f.FileCount = max(f.FileCount-n, 0)
	})
	return clamped, err
}

func (s *FolderStore) AddCachedCollection(_ context.Context, id, collectionID string) error {
	return s.mutate(id, 0, func(f *domain.CacheFolder) {
		if !containsString(f.CachedCollections, collectionID) {
			f.CachedCollections = append(f.CachedCollections, collectionID)
		}
	})
}

func (s *FolderStore) RemoveCachedCollection(_ context.Context, id, collectionID string) error {
	return s.mutate(id, 0, func(f *domain.CacheFolder) {
		kept := f.CachedCollections[:0]
		for _, c := range f.CachedCollections {
			if c != collectionID {
				kept = append(kept, c)
			}
		}
		f.CachedCollections = kept
	})
}

func (s *FolderStore) SetStats(_ context.Context, id string, size, fileCount int64, cleanedAt time.Time) error {
	if size < 0 || fileCount < 0 {
		return fmt.Errorf("folder stats must not be negative")
	}
	return s.mutate(id, 0, func(f *domain.CacheFolder) {
		f.CurrentSize = size
		f.FileCount = fileCount
		f.LastCleanupAt = timePtr(cleanedAt)
	})
}

func (s *FolderStore) mutate(id string, delta int64, fn func(*domain.CacheFolder)) error {
	if delta < 0 {
		return fmt.Errorf("delta must not be negative: %d", delta)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[id]
	if !ok {
		return domain.ErrNotFound
	}
	f.CachedCollections = cloneStrings(f.CachedCollections)
	fn(&f)
	f.UpdatedAt = s.Now.now()
	s.folders[id] = f
	return nil
}

func cloneFolder(f domain.CacheFolder) domain.CacheFolder {
	f.CachedCollections = cloneStrings(f.CachedCollections)
	return f
}

var _ domain.FolderRepository = (*FolderStore)(nil)
