package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediacache/internal/domain"
)

// ArtifactStore is an in-process ArtifactRepository keyed by image id.
type ArtifactStore struct {
	mu      sync.Mutex
	entries map[string]domain.ArtifactEntry
}

func NewArtifactStore() *ArtifactStore {
	return &ArtifactStore{entries: make(map[string]domain.ArtifactEntry)}
}

func (s *ArtifactStore) GetByImageID(_ context.Context, imageID string) (*domain.ArtifactEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[imageID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (s *ArtifactStore) GetValidByImageID(_ context.Context, imageID string, now time.Time) (*domain.ArtifactEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[imageID]
	if !ok || !e.Usable(now) {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

// Put overwrites the entry of entry.ImageID, keeping its id stable.
func (s *ArtifactStore) Put(_ context.Context, entry *domain.ArtifactEntry) error {
	if entry.ImageID == "" {
		return fmt.Errorf("artifact image id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.entries[entry.ImageID]; ok {
		entry.ID = prev.ID
	} else if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.entries[entry.ImageID] = *entry
	return nil
}

func (s *ArtifactStore) Delete(_ context.Context, imageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, imageID)
	return nil
}

func (s *ArtifactStore) DeleteExpired(_ context.Context, imageID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[imageID]
	if !ok || !expired(e, now) {
		return false, nil
	}
	delete(s.entries, imageID)
	return true, nil
}

func (s *ArtifactStore) Invalidate(_ context.Context, imageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[imageID]
	if !ok {
		return domain.ErrNotFound
	}
	e.IsValid = false
	s.entries[imageID] = e
	return nil
}

func (s *ArtifactStore) GetExpired(_ context.Context, now time.Time, after domain.ExpiryCursor, limit int) ([]domain.ArtifactEntry, error) {
	out := s.filter(func(e domain.ArtifactEntry) bool { return expired(e, now) && after.After(e) })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return out[i].ImageID < out[j].ImageID
	})
	return truncate(out, limit), nil
}

func (s *ArtifactStore) GetOlderThan(_ context.Context, cutoff time.Time, limit int) ([]domain.ArtifactEntry, error) {
	out := s.filter(func(e domain.ArtifactEntry) bool { return e.CachedAt.Before(cutoff) })
	sort.Slice(out, func(i, j int) bool { return out[i].CachedAt.Before(out[j].CachedAt) })
	return truncate(out, limit), nil
}

func (s *ArtifactStore) TotalSize(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, e := range s.entries {
		total += e.TotalBytes()
	}
	return total, nil
}

func (s *ArtifactStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.entries)), nil
}

func (s *ArtifactStore) SumByPathPrefix(_ context.Context, prefix string, now time.Time) (int64, int64, error) {
	root := strings.TrimRight(prefix, "/") + "/"
	s.mu.Lock()
	defer s.mu.Unlock()
	var bytes, files int64
	for _, e := range s.entries {
		if !e.Usable(now) || !strings.HasPrefix(e.CachePath, root) {
			continue
		}
		bytes += e.TotalBytes()
		files += e.FileCount()
	}
	return bytes, files, nil
}

func (s *ArtifactStore) ListImageIDs(_ context.Context, afterImageID string, limit int) ([]string, error) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		if id > afterImageID {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *ArtifactStore) filter(keep func(domain.ArtifactEntry) bool) []domain.ArtifactEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ArtifactEntry
	for _, e := range s.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func expired(e domain.ArtifactEntry, now time.Time) bool {
	return !e.IsValid || e.ExpiresAt.Before(now)
}

func truncate(entries []domain.ArtifactEntry, limit int) []domain.ArtifactEntry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

var _ domain.ArtifactRepository = (*ArtifactStore)(nil)
