package placement

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"mediacache/internal/domain"
)

// Policy picks the folder a new artifact is written to. Capacity is a soft
// limit: the check here and the later size increment are separate steps, so
// concurrent writers may overshoot a folder until cleanup reconciles it.
type Policy struct {
	folders domain.FolderRepository
	logger  zerolog.Logger
}

func New(folders domain.FolderRepository, logger zerolog.Logger) *Policy {
	return &Policy{folders: folders, logger: logger}
}

// Choose returns the preferred folder when it is active and fits the estimate,
// otherwise the first active folder by priority that fits. It fails with
// domain.ErrNoActiveFolder when nothing is active and domain.ErrNoCapacity
// when no active folder has room.
func (p *Policy) Choose(ctx context.Context, estimate int64, preferredID string) (domain.CacheFolder, error) {
	if preferredID != "" {
		preferred, err := p.folders.GetByID(ctx, preferredID)
		switch {
		case err == nil && preferred.Fits(estimate):
			return *preferred, nil
		case err == nil:
			p.logger.Debug().Str("folder_id", preferredID).Int64("estimate", estimate).
				Bool("active", preferred.IsActive).Int64("free", preferred.FreeSpace()).
				Msg("placement: preferred folder rejected")
		case !errors.Is(err, domain.ErrNotFound):
			return domain.CacheFolder{}, fmt.Errorf("load preferred folder: %w", err)
		}
	}

	active, err := p.folders.ListActiveByPriority(ctx)
	if err != nil {
		return domain.CacheFolder{}, fmt.Errorf("list active folders: %w", err)
	}
	if len(active) == 0 {
		return domain.CacheFolder{}, domain.ErrNoActiveFolder
	}
	for _, f := range active {
		if f.Fits(estimate) {
			return f, nil
		}
	}
	return domain.CacheFolder{}, fmt.Errorf("%w: estimate %d bytes", domain.ErrNoCapacity, estimate)
}

// HasActiveFolder reports whether any folder can receive artifacts at all.
func (p *Policy) HasActiveFolder(ctx context.Context) (bool, error) {
	active, err := p.folders.ListActiveByPriority(ctx)
	if err != nil {
		return false, err
	}
	return len(active) > 0, nil
}
