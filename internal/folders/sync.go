package folders

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"mediacache/internal/domain"
)

// SyncReport summarizes how the registry changed.
type SyncReport struct {
	Created     int
	Updated     int
	Unchanged   int
	Deactivated int
}

// Sync reconciles the registry with the manifest. Settings are overwritten
// from the manifest; counters are never touched.
func Sync(ctx context.Context, repo domain.FolderRepository, m Manifest, logger zerolog.Logger) (SyncReport, error) {
	var report SyncReport
	listed := make(map[string]bool, len(m.Folders))
	for _, e := range m.Folders {
		listed[e.Path] = true
		existing, err := repo.GetByPath(ctx, e.Path)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			folder := &domain.CacheFolder{
				Name:     e.Name,
				Path:     e.Path,
				Priority: e.Priority,
				MaxSize:  e.MaxBytes(),
				IsActive: e.IsActive(),
			}
			if err := repo.Create(ctx, folder); err != nil {
				return report, fmt.Errorf("create folder %s: %w", e.Path, err)
			}
			logger.Info().Str("folder_id", folder.ID).Str("path", e.Path).Int64("max_size", folder.MaxSize).Msg("folders: registered")
			report.Created++
		case err != nil:
			return report, fmt.Errorf("lookup folder %s: %w", e.Path, err)
		default:
			if sameSettings(existing, e) {
				report.Unchanged++
				continue
			}
			if e.MaxBytes() < existing.CurrentSize {
				logger.Warn().Str("folder_id", existing.ID).Int64("current_size", existing.CurrentSize).
					Int64("max_size", e.MaxBytes()).Msg("folders: capacity below current usage")
			}
			existing.Name = e.Name
			existing.Priority = e.Priority
			existing.MaxSize = e.MaxBytes()
			existing.IsActive = e.IsActive()
			if err := repo.UpdateSettings(ctx, existing); err != nil {
				return report, fmt.Errorf("update folder %s: %w", e.Path, err)
			}
			logger.Info().Str("folder_id", existing.ID).Str("path", e.Path).Msg("folders: updated")
			report.Updated++
		}
	}

	if !m.DeactivateMissing {
		return report, nil
	}
	all, err := repo.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("list folders: %w", err)
	}
	for i := range all {
		f := &all[i]
		if listed[f.Path] || !f.IsActive {
			continue
		}
		f.IsActive = false
		if err := repo.UpdateSettings(ctx, f); err != nil {
			return report, fmt.Errorf("deactivate folder %s: %w", f.Path, err)
		}
		logger.Info().Str("folder_id", f.ID).Str("path", f.Path).Msg("folders: deactivated")
		report.Deactivated++
	}
	return report, nil
}

func sameSettings(f *domain.CacheFolder, e Entry) bool {
	return f.Name == e.Name && f.Priority == e.Priority && f.MaxSize == e.MaxBytes() && f.IsActive == e.IsActive()
}
