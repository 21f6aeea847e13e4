package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/minio/minio-go/v7"

	"mediacache/internal/domain"
)

// Factory opens the Store backing a folder root.
type Factory func(folderPath string) (Store, error)

// Resolver maps cache folders to their stores, opening each root once.
type Resolver struct {
	mu     sync.Mutex
	open   Factory
	stores map[string]Store
}

// NewResolver serves local roots from disk and s3:// roots through client.
// client may be nil when no bucket folders are configured.
func NewResolver(client *minio.Client) *Resolver {
	return NewResolverWithFactory(func(folderPath string) (Store, error) {
		if IsBucketPath(folderPath) {
			if client == nil {
				return nil, fmt.Errorf("storage: bucket folder %q requires S3_ENDPOINT", folderPath)
			}
			bucket, prefix, err := ParseBucketPath(folderPath)
			if err != nil {
				return nil, err
			}
			return NewBucketStore(client, bucket, prefix), nil
		}
		return NewLocalStore(folderPath)
	})
}

func NewResolverWithFactory(open Factory) *Resolver {
	return &Resolver{open: open, stores: make(map[string]Store)}
}

// For returns the store for folder.
func (r *Resolver) For(folder domain.CacheFolder) (Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[folder.Path]; ok {
		return s, nil
	}
	s, err := r.open(folder.Path)
	if err != nil {
		return nil, err
	}
	r.stores[folder.Path] = s
	return s, nil
}

// RemoveArtifact deletes the file at an absolute artifact path, locating its
// folder by path prefix. Paths outside every folder are ignored.
func (r *Resolver) RemoveArtifact(ctx context.Context, folders []domain.CacheFolder, artifactPath string) error {
	if artifactPath == "" {
		return nil
	}
	folder, ok := domain.FolderForPath(folders, artifactPath)
	if !ok {
		return nil
	}
	store, err := r.For(*folder)
	if err != nil {
		return err
	}
	return store.Remove(ctx, folder.RelativeKey(artifactPath))
}
