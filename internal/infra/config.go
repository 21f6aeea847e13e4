package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents service configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	FoldersFile string
	LibraryRoot string

	WorkerConcurrency    int
	JobPollInterval      time.Duration
	StaleJobPeriod       time.Duration
	StaleSweepInterval   time.Duration
	StaleJobRequeue      bool
	ArtifactTTL          time.Duration
	ArtifactMaxAge       time.Duration
	JobRetention         time.Duration
	CleanupInterval      time.Duration
	CleanupBatchSize     int
	DefaultEstimateBytes int64

	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		FoldersFile: getEnv("FOLDERS_FILE", "folders.yaml"),
		LibraryRoot: getEnv("LIBRARY_ROOT", "/"),

		WorkerConcurrency:    getEnvInt("WORKER_CONCURRENCY", 4),
		JobPollInterval:      getEnvDuration("JOB_POLL_INTERVAL", 2*time.Second),
		StaleJobPeriod:       getEnvDuration("STALE_JOB_PERIOD", 30*time.Minute),
		StaleSweepInterval:   getEnvDuration("STALE_SWEEP_INTERVAL", time.Minute),
		StaleJobRequeue:      getEnvBool("STALE_JOB_REQUEUE", true),
		ArtifactTTL:          getEnvDuration("ARTIFACT_TTL", 30*24*time.Hour),
		ArtifactMaxAge:       getEnvDuration("ARTIFACT_MAX_AGE", 0),
		JobRetention:         getEnvDuration("JOB_RETENTION", 7*24*time.Hour),
		CleanupInterval:      getEnvDuration("CLEANUP_INTERVAL", time.Hour),
		CleanupBatchSize:     getEnvInt("CLEANUP_BATCH_SIZE", 500),
		DefaultEstimateBytes: int64(getEnvInt("DEFAULT_ESTIMATE_BYTES", 512*1024)),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3UseSSL:    getEnvBool("S3_USE_SSL", true),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	if cfg.CleanupBatchSize < 1 {
		cfg.CleanupBatchSize = 500
	}
	if cfg.ArtifactTTL <= 0 {
		return nil, fmt.Errorf("ARTIFACT_TTL must be positive")
	}
	if cfg.StaleJobPeriod <= 0 {
		return nil, fmt.Errorf("STALE_JOB_PERIOD must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return fallback
}
