package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mediacache/internal/domain"
)

var base = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func putEntry(t *testing.T, s *ArtifactStore, imageID, path string, size int64, expires time.Time) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), &domain.ArtifactEntry{
		ImageID:   imageID,
		CachePath: path,
		CacheSize: size,
		CachedAt:  base,
		ExpiresAt: expires,
		IsValid:   true,
	}))
}

func TestArtifactStoreValidityFilter(t *testing.T) {
	ctx := context.Background()
	s := NewArtifactStore()
	putEntry(t, s, "img-1", "/mnt/a/img-1.jpg", 100, base.Add(time.Hour))

	_, err := s.GetValidByImageID(ctx, "img-1", base)
	require.NoError(t, err)

	_, err = s.GetValidByImageID(ctx, "img-1", base.Add(2*time.Hour))
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Invalidate(ctx, "img-1"))
	_, err = s.GetValidByImageID(ctx, "img-1", base)
	require.ErrorIs(t, err, domain.ErrNotFound)

	entry, err := s.GetByImageID(ctx, "img-1")
	require.NoError(t, err)
	require.False(t, entry.IsValid)
}

func TestArtifactStorePutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := NewArtifactStore()
	putEntry(t, s, "img-1", "/mnt/a/img-1.jpg", 100, base.Add(time.Hour))
	first, err := s.GetByImageID(ctx, "img-1")
	require.NoError(t, err)

	putEntry(t, s, "img-1", "/mnt/b/img-1.jpg", 250, base.Add(time.Hour))
	second, err := s.GetByImageID(ctx, "img-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "/mnt/b/img-1.jpg", second.CachePath)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestArtifactStoreExpiredAndDeleteExpired(t *testing.T) {
	ctx := context.Background()
	s := NewArtifactStore()
	putEntry(t, s, "old", "/mnt/a/old.jpg", 10, base.Add(-time.Hour))
	putEntry(t, s, "fresh", "/mnt/a/fresh.jpg", 10, base.Add(time.Hour))

	expired, err := s.GetExpired(ctx, base, domain.ExpiryCursor{}, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "old", expired[0].ImageID)

	deleted, err := s.DeleteExpired(ctx, "fresh", base)
	require.NoError(t, err)
	require.False(t, deleted)

	deleted, err = s.DeleteExpired(ctx, "old", base)
	require.NoError(t, err)
	require.True(t, deleted)
}

func TestArtifactStoreExpiredPagesByCursor(t *testing.T) {
	ctx := context.Background()
	s := NewArtifactStore()
	putEntry(t, s, "b", "/mnt/a/b.jpg", 10, base.Add(-time.Hour))
	putEntry(t, s, "a", "/mnt/a/a.jpg", 10, base.Add(-time.Hour))
	putEntry(t, s, "c", "/mnt/a/c.jpg", 10, base.Add(-time.Minute))

	page, err := s.GetExpired(ctx, base, domain.ExpiryCursor{}, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "a", page[0].ImageID)
	require.Equal(t, "b", page[1].ImageID)

	page, err = s.GetExpired(ctx, base, domain.CursorAt(page[1]), 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "c", page[0].ImageID)
}

func TestArtifactStoreSumByPathPrefix(t *testing.T) {
	ctx := context.Background()
	s := NewArtifactStore()
	putEntry(t, s, "a", "/mnt/a/x/a.jpg", 100, base.Add(time.Hour))
	putEntry(t, s, "b", "/mnt/a/b.jpg", 200, base.Add(time.Hour))
	putEntry(t, s, "c", "/mnt/ab/c.jpg", 400, base.Add(time.Hour))
	putEntry(t, s, "d", "/mnt/a/d.jpg", 800, base.Add(-time.Hour))

	bytes, files, err := s.SumByPathPrefix(ctx, "/mnt/a/", base)
	require.NoError(t, err)
	require.Equal(t, int64(300), bytes)
	require.Equal(t, int64(2), files)

	total, err := s.TotalSize(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1500), total)
}

func TestArtifactStoreListImageIDsPages(t *testing.T) {
	ctx := context.Background()
	s := NewArtifactStore()
	for _, id := range []string{"c", "a", "b"} {
		putEntry(t, s, id, "/mnt/a/"+id, 1, base.Add(time.Hour))
	}
	page, err := s.ListImageIDs(ctx, "", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, page)

	page, err = s.ListImageIDs(ctx, "b", 2)
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, page)
}
