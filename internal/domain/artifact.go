package domain

import (
	"fmt"
	"time"
)

// ArtifactEntry is the current cache artifact of one source image. An image has
// at most one entry; regeneration overwrites it.
type ArtifactEntry struct {
	ID            string
	ImageID       string
	CachePath     string
	ThumbnailPath string
	CacheSize     int64
	ThumbnailSize int64
	Quality       int
	Format        string
	Dimensions    string
	CachedAt      time.Time
	ExpiresAt     time.Time
	IsValid       bool
}

// Usable reports whether the entry may be served at now.
func (a *ArtifactEntry) Usable(now time.Time) bool {
	return a.IsValid && a.ExpiresAt.After(now)
}

// TotalBytes returns the combined size of the cache image and thumbnail.
func (a *ArtifactEntry) TotalBytes() int64 {
	return a.CacheSize + a.ThumbnailSize
}

// FileCount returns how many files back the entry.
func (a *ArtifactEntry) FileCount() int64 {
	if a.ThumbnailPath != "" {
		return 2
	}
	return 1
}

// Matches reports whether the entry was produced with the same settings.
func (a *ArtifactEntry) Matches(cfg GenerationConfig, width, height int) bool {
	return a.Format == cfg.Format && a.Quality == cfg.Quality && a.Dimensions == FormatDimensions(width, height)
}

// ExpiryCursor is a keyset position in the expired listing, ordered by
// expiry then image id. The zero value starts from the beginning.
type ExpiryCursor struct {
	ExpiresAt time.Time
	ImageID   string
}

// After reports whether e sorts strictly after the cursor.
func (c ExpiryCursor) After(e ArtifactEntry) bool {
	if !e.ExpiresAt.Equal(c.ExpiresAt) {
		return e.ExpiresAt.After(c.ExpiresAt)
	}
	return e.ImageID > c.ImageID
}

// CursorAt returns the position of e.
func CursorAt(e ArtifactEntry) ExpiryCursor {
	return ExpiryCursor{ExpiresAt: e.ExpiresAt, ImageID: e.ImageID}
}

// FormatDimensions renders dimensions as "WxH".
func FormatDimensions(width, height int) string {
	return fmt.Sprintf("%dx%d", width, height)
}
