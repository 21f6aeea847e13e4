package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("WORKER_CONCURRENCY", "")
	t.Setenv("STALE_JOB_PERIOD", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.WorkerConcurrency != 4 {
		t.Fatalf("WorkerConcurrency mismatch: got %d want 4", cfg.WorkerConcurrency)
	}
	if cfg.StaleJobPeriod != 30*time.Minute {
		t.Fatalf("StaleJobPeriod mismatch: got %s", cfg.StaleJobPeriod)
	}
	if cfg.ArtifactTTL != 720*time.Hour {
		t.Fatalf("ArtifactTTL mismatch: got %s", cfg.ArtifactTTL)
	}
	if !cfg.StaleJobRequeue {
		t.Fatal("StaleJobRequeue should default to true")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("WORKER_CONCURRENCY", "0")
	t.Setenv("STALE_JOB_PERIOD", "45m")
	t.Setenv("STALE_JOB_REQUEUE", "false")
	t.Setenv("ARTIFACT_MAX_AGE", "bogus")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.WorkerConcurrency != 1 {
		t.Fatalf("WorkerConcurrency should be clamped to 1, got %d", cfg.WorkerConcurrency)
	}
	if cfg.StaleJobPeriod != 45*time.Minute {
		t.Fatalf("StaleJobPeriod mismatch: got %s", cfg.StaleJobPeriod)
	}
	if cfg.StaleJobRequeue {
		t.Fatal("StaleJobRequeue should be false")
	}
	if cfg.ArtifactMaxAge != 0 {
		t.Fatalf("invalid ARTIFACT_MAX_AGE should fall back to 0, got %s", cfg.ArtifactMaxAge)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}
