// Package bootstrap wires the Postgres-backed repositories and storage shared
// by the api, worker and cleanup binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"

	"mediacache/internal/adapter/repo"
	"mediacache/internal/cleanup"
	"mediacache/internal/folders"
	"mediacache/internal/infra"
	"mediacache/internal/jobs"
	"mediacache/internal/storage"
)

type Stack struct {
	Pool      *pgxpool.Pool
	Jobs      *repo.JobRepositoryPG
	Folders   *repo.FolderRepositoryPG
	Artifacts *repo.ArtifactRepositoryPG
	Library   *repo.LibraryRepositoryPG
	Stores    *storage.Resolver
}

// Open connects to the database, applies migrations and builds the
// repositories. Callers must Close the stack.
func Open(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Stack, error) {
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := infra.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var client *minio.Client
	if cfg.S3Endpoint != "" {
		client, err = storage.NewMinioClient(storage.BucketConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			pool.Close()
			return nil, err
		}
	}

	runner := infra.NewSQLRunner(pool, logger)
	return &Stack{
		Pool:      pool,
		Jobs:      repo.NewJobRepository(runner),
		Folders:   repo.NewFolderRepository(runner),
		Artifacts: repo.NewArtifactRepository(runner),
		Library:   repo.NewLibraryRepository(runner),
		Stores:    storage.NewResolver(client),
	}, nil
}

func (s *Stack) Close() {
	s.Pool.Close()
}

func (s *Stack) JobService(logger zerolog.Logger) *jobs.Service {
	return jobs.NewService(s.Jobs, s.Folders, s.Artifacts, s.Library, logger)
}

func (s *Stack) CleanupService(cfg *infra.Config, logger zerolog.Logger) *cleanup.Service {
	return cleanup.NewService(s.Artifacts, s.Folders, s.Jobs, s.Library, s.Stores, logger, cleanup.Options{
		MaxAge:       cfg.ArtifactMaxAge,
		JobRetention: cfg.JobRetention,
		BatchSize:    cfg.CleanupBatchSize,
	})
}

// SyncFolders applies the folder manifest when one exists. A missing file
// leaves the registry as it is.
func (s *Stack) SyncFolders(ctx context.Context, path string, logger zerolog.Logger) error {
	if path == "" {
		return nil
	}
	m, err := folders.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Str("file", path).Msg("bootstrap: folder manifest not found, keeping registry")
		return nil
	}
	if err != nil {
		return err
	}
	report, err := folders.Sync(ctx, s.Folders, m, logger)
	if err != nil {
		return err
	}
	logger.Info().Int("created", report.Created).Int("updated", report.Updated).
		Int("unchanged", report.Unchanged).Int("deactivated", report.Deactivated).Msg("bootstrap: folders synced")
	return nil
}
