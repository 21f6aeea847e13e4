package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"mediacache/internal/bootstrap"
	"mediacache/internal/infra"
)

func main() {
	once := flag.Bool("once", false, "run a single pass and exit")
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
		logger.Fatal().Err(err).Msg("cleanup: startup failed")
	}
	defer stack.Close()

	svc := stack.CleanupService(cfg, logger)
	if *once {
		report, err := svc.Run(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("cleanup: pass failed")
		}
		logger.Info().Int("expired", report.Expired).Int("orphans", report.Orphans).
			Int("folders", report.FoldersReconciled).Int64("jobs_purged", report.JobsPurged).Msg("cleanup: done")
		return
	}

	if err := svc.Loop(ctx, cfg.CleanupInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("cleanup: stopped with error")
	}
	logger.Info().Msg("cleanup: stopped")
}
