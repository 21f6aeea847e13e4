package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mediacache/internal/domain"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func newFolder(t *testing.T, s *FolderStore, name string, priority int, max int64) *domain.CacheFolder {
	t.Helper()
	f := &domain.CacheFolder{Name: name, Path: "/mnt/" + name, Priority: priority, MaxSize: max, IsActive: true}
	require.NoError(t, s.Create(context.Background(), f))
	return f
}

func TestFolderStoreConcurrentIncrementsAndDecrements(t *testing.T) {
	ctx := context.Background()
	s := NewFolderStore()
	f := newFolder(t, s, "ssd", 1, 1<<30)
	require.NoError(t, s.IncrementSize(ctx, f.ID, 10000))
	require.NoError(t, s.IncrementFileCount(ctx, f.ID, 100))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			require.NoError(t, s.IncrementSize(ctx, f.ID, 100))
			require.NoError(t, s.IncrementFileCount(ctx, f.ID, 1))
		}()
		go func() {
			defer wg.Done()
			clamped, err := s.DecrementSize(ctx, f.ID, 20)
			require.NoError(t, err)
			require.False(t, clamped)
			clamped, err = s.DecrementFileCount(ctx, f.ID, 1)
			require.NoError(t, err)
			require.False(t, clamped)
		}()
	}
	wg.Wait()

	got, err := s.GetByID(ctx, f.ID)
	require.NoError(t, err)
	require.Equal(t, int64(10000+50*100-50*20), got.CurrentSize)
	require.Equal(t, int64(100), got.FileCount)
	require.NotNil(t, got.LastCacheGeneratedAt)
}

func TestFolderStoreDecrementClampsAtZero(t *testing.T) {
	ctx := context.Background()
	s := NewFolderStore()
	f := newFolder(t, s, "ssd", 1, 1000)
	require.NoError(t, s.IncrementSize(ctx, f.ID, 100))

	clamped, err := s.DecrementSize(ctx, f.ID, 150)
	require.NoError(t, err)
	require.True(t, clamped)

	got, err := s.GetByID(ctx, f.ID)
	require.NoError(t, err)
	require.Zero(t, got.CurrentSize)

	clamped, err = s.DecrementFileCount(ctx, f.ID, 0)
	require.NoError(t, err)
	require.False(t, clamped)
}

func TestFolderStoreRejectsNegativeDelta(t *testing.T) {
	s := NewFolderStore()
	f := newFolder(t, s, "ssd", 1, 1000)
	require.Error(t, s.IncrementSize(context.Background(), f.ID, -1))
	require.ErrorIs(t, s.IncrementSize(context.Background(), "missing", 1), domain.ErrNotFound)
}

func TestFolderStoreListActiveByPriority(t *testing.T) {
	ctx := context.Background()
	s := NewFolderStore()
	low := newFolder(t, s, "low", 3, 1000)
	roomy := newFolder(t, s, "roomy", 1, 5000)
	tight := newFolder(t, s, "tight", 1, 2000)
	off := newFolder(t, s, "off", 0, 1000)
	off.IsActive = false
	require.NoError(t, s.UpdateSettings(ctx, off))

	got, err := s.ListActiveByPriority(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []string{roomy.ID, tight.ID, low.ID}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestFolderStoreUpdateSettingsKeepsCounters(t *testing.T) {
	ctx := context.Background()
	s := NewFolderStore()
	f := newFolder(t, s, "ssd", 1, 1000)
	require.NoError(t, s.IncrementSize(ctx, f.ID, 400))

	f.MaxSize = 2000
	f.CurrentSize = 0
	require.NoError(t, s.UpdateSettings(ctx, f))

	got, err := s.GetByID(ctx, f.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2000), got.MaxSize)
	require.Equal(t, int64(400), got.CurrentSize)
}

func TestFolderStoreCollections(t *testing.T) {
	ctx := context.Background()
	s := NewFolderStore()
	f := newFolder(t, s, "ssd", 1, 1000)
	require.NoError(t, s.AddCachedCollection(ctx, f.ID, "col-1"))
	require.NoError(t, s.AddCachedCollection(ctx, f.ID, "col-1"))

	got, err := s.FindByCollection(ctx, "col-1")
	require.NoError(t, err)
	require.Equal(t, []string{"col-1"}, got.CachedCollections)

	require.NoError(t, s.RemoveCachedCollection(ctx, f.ID, "col-1"))
	_, err = s.FindByCollection(ctx, "col-1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFolderStoreSetStats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	s := NewFolderStore()
	s.Now = fixedClock(now)
	f := newFolder(t, s, "ssd", 1, 1000)
	require.NoError(t, s.SetStats(ctx, f.ID, 300, 3, now))

	got, err := s.GetByID(ctx, f.ID)
	require.NoError(t, err)
	require.Equal(t, int64(300), got.CurrentSize)
	require.Equal(t, int64(3), got.FileCount)
	require.Equal(t, now, *got.LastCleanupAt)
}
