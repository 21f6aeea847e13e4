package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mediacache/internal/bootstrap"
	"mediacache/internal/domain"
	"mediacache/internal/generation"
	"mediacache/internal/imaging"
	"mediacache/internal/infra"
	"mediacache/internal/jobs"
	"mediacache/internal/placement"
	"mediacache/internal/storage"
)

func main() {
	jobID := flag.String("job", "", "run a single job by id and exit")
	drain := flag.Bool("drain", false, "exit once the queue is empty")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stack, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: startup failed")
	}
	defer stack.Close()

	if err := stack.SyncFolders(ctx, cfg.FoldersFile, logger); err != nil {
		logger.Fatal().Err(err).Msg("worker: folder sync failed")
	}

	worker := generation.NewWorker(generation.Deps{
		Jobs:      stack.Jobs,
		Folders:   stack.Folders,
		Artifacts: stack.Artifacts,
		Images:    stack.Library,
		Sources:   storage.NewLibraryReader(cfg.LibraryRoot),
		Stores:    stack.Stores,
		Processor: imaging.NewResizer(),
		Placement: placement.New(stack.Folders, logger),
		Logger:    logger,
	}, generation.Options{
		Concurrency:     cfg.WorkerConcurrency,
		ArtifactTTL:     cfg.ArtifactTTL,
		DefaultEstimate: cfg.DefaultEstimateBytes,
	})

	if *jobID != "" {
		job, err := stack.Jobs.Claim(ctx, *jobID)
		if err != nil {
			logger.Fatal().Err(err).Str("job_id", *jobID).Msg("worker: claim failed")
		}
		if _, err := worker.Run(ctx, job); err != nil {
			logger.Fatal().Err(err).Str("job_id", *jobID).Msg("worker: job aborted")
		}
		return
	}

	svc := stack.JobService(logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweepStale(gctx, svc, cfg, logger)
	})
	g.Go(func() error {
		err := poll(gctx, stack.Jobs, worker, cfg.JobPollInterval, *drain, logger)
		if *drain && err == nil {
			// The sweeper only stops on cancellation.
			stop()
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// poll claims and runs jobs one at a time. Each job fans out internally.
func poll(ctx context.Context, repo domain.JobRepository, worker *generation.Worker, interval time.Duration, drain bool, logger zerolog.Logger) error {
	logger.Info().Msg("worker: started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, err := repo.ClaimNext(ctx)
		if errors.Is(err, domain.ErrNoJobAvailable) {
			if drain {
				return nil
			}
			if !sleep(ctx, interval) {
				return ctx.Err()
			}
			continue
		}
		if err != nil {
			logger.Error().Err(err).Msg("worker: failed to claim job")
			if !sleep(ctx, interval) {
				return ctx.Err()
			}
			continue
		}

		logger.Info().Str("job_id", job.JobID).Str("collection_id", job.CollectionID).Msg("worker: picked job")
		final, err := worker.Run(ctx, job)
		if err != nil {
			logger.Error().Err(err).Str("job_id", job.JobID).Msg("worker: job aborted")
			continue
		}
		logger.Info().Str("job_id", final.JobID).Str("status", string(final.Status)).
			Int("completed", final.CompletedImages).Int("failed", final.FailedImages).
			Int("skipped", final.SkippedImages).Msg("worker: job finished")
	}
}

// sweepStale releases Running jobs whose worker stopped reporting progress.
func sweepStale(ctx context.Context, svc *jobs.Service, cfg *infra.Config, logger zerolog.Logger) error {
	ticker := time.NewTicker(cfg.StaleSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		released, err := svc.ReleaseStale(ctx, cfg.StaleJobPeriod, cfg.StaleJobRequeue)
		if err != nil {
			logger.Error().Err(err).Msg("worker: stale sweep failed")
			continue
		}
		if len(released) > 0 {
			logger.Warn().Strs("job_ids", released).Msg("worker: released stale jobs")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
