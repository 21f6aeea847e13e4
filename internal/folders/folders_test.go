package folders

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"mediacache/internal/adapter/memory"
)

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"4096", 4096, true},
		{"512k", 512 << 10, true},
		{"64MB", 64 << 20, true},
		{" 500g ", 500 << 30, true},
		{"1.5t", 3 << 39, true},
		{"", 0, false},
		{"b", 0, false},
		{"-1g", 0, false},
		{"lots", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseBytes(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
			require.Equal(t, tt.want, got, tt.in)
		} else {
			require.Error(t, err, tt.in)
		}
	}
}

const manifestYAML = `
folders:
  - name: bucket
    path: s3://media-cache/artifacts/
    priority: 2
    max: 2t
  - name: ssd-1
    path: /mnt/ssd1/cache
    priority: 1
    max: 500g
    active: true
  - name: old
    path: /mnt/old
    priority: 9
    max: 1g
    active: false
`

func TestParseManifest(t *testing.T) {
	m, err := Parse([]byte(manifestYAML))
	require.NoError(t, err)
	require.Len(t, m.Folders, 3)
	require.Equal(t, "ssd-1", m.Folders[0].Name)
	require.Equal(t, "s3://media-cache/artifacts", m.Folders[1].Path)
	require.Equal(t, int64(2)<<40, m.Folders[1].MaxBytes())
	require.True(t, m.Folders[1].IsActive())
	require.False(t, m.Folders[2].IsActive())
}

func TestParseManifestRejectsInvalid(t *testing.T) {
	for name, doc := range map[string]string{
		"missing path": "folders:\n  - name: a\n    max: 1g\n",
		"bad size":     "folders:\n  - path: /a\n    max: huge\n",
		"duplicate":    "folders:\n  - path: /a\n    max: 1g\n  - path: /a/\n    max: 2g\n",
		"negative":     "folders:\n  - path: /a\n    max: 1g\n    priority: -1\n",
	} {
		_, err := Parse([]byte(doc))
		require.Error(t, err, name)
	}
}

func TestSyncCreatesUpdatesAndDeactivates(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewFolderStore()
	m, err := Parse([]byte(manifestYAML))
	require.NoError(t, err)

	report, err := Sync(ctx, repo, m, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, SyncReport{Created: 3}, report)

	ssd, err := repo.GetByPath(ctx, "/mnt/ssd1/cache")
	require.NoError(t, err)
	require.NoError(t, repo.IncrementSize(ctx, ssd.ID, 1000))

	next, err := Parse([]byte("deactivate_missing: true\nfolders:\n  - name: ssd-1\n    path: /mnt/ssd1/cache\n    priority: 1\n    max: 600g\n"))
	require.NoError(t, err)
	report, err = Sync(ctx, repo, next, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, SyncReport{Updated: 1, Deactivated: 1}, report)

	ssd, err = repo.GetByPath(ctx, "/mnt/ssd1/cache")
	require.NoError(t, err)
	require.Equal(t, int64(600)<<30, ssd.MaxSize)
	require.Equal(t, int64(1000), ssd.CurrentSize)

	bucket, err := repo.GetByPath(ctx, "s3://media-cache/artifacts")
	require.NoError(t, err)
	require.False(t, bucket.IsActive)

	report, err = Sync(ctx, repo, next, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, SyncReport{Unchanged: 1}, report)
}
