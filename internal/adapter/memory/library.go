package memory

import (
	"context"
	"sort"
	"sync"

	"mediacache/internal/domain"
)

// Library is an in-process ImageSource.
type Library struct {
	mu          sync.Mutex
	collections map[string]domain.Collection
	images      map[string]domain.SourceImage
}

func NewLibrary() *Library {
	return &Library{
		collections: make(map[string]domain.Collection),
		images:      make(map[string]domain.SourceImage),
	}
}

// AddCollection registers a collection and its images.
func (l *Library) AddCollection(c domain.Collection, images ...domain.SourceImage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.collections[c.ID] = c
	for _, img := range images {
		img.CollectionID = c.ID
		l.images[img.ID] = img
	}
}

// RemoveImage deletes an image from the library.
func (l *Library) RemoveImage(imageID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.images, imageID)
}

func (l *Library) GetCollection(_ context.Context, collectionID string) (*domain.Collection, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.collections[collectionID]
	if !ok {
		return nil, domain.ErrCollectionNotFound
	}
	return &c, nil
}

// ListCollectionImages returns images ordered by path, then id.
func (l *Library) ListCollectionImages(_ context.Context, collectionID string) ([]domain.SourceImage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.collections[collectionID]; !ok {
		return nil, domain.ErrCollectionNotFound
	}
	var out []domain.SourceImage
	for _, img := range l.images {
		if img.CollectionID == collectionID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (l *Library) CountCollectionImages(ctx context.Context, collectionID string) (int, error) {
	images, err := l.ListCollectionImages(ctx, collectionID)
	return len(images), err
}

func (l *Library) GetImage(_ context.Context, imageID string) (*domain.SourceImage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	img, ok := l.images[imageID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &img, nil
}

func (l *Library) ExistingImageIDs(_ context.Context, ids []string) (map[string]bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := l.images[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

var _ domain.ImageSource = (*Library)(nil)
