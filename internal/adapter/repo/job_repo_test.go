package repo

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"mediacache/internal/domain"
	"mediacache/internal/sqlinline"
)

var testNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

// jobRow fills the checkpoint column list in scanJob order.
func jobRow(jobID string, status domain.JobStatus) pgx.Row {
	return stubRow{scan: func(dest ...any) error {
		*dest[0].(*string) = "0d8f2c1e-5a4b-4d61-8f0e-2b9a7c3d4e5f"
		*dest[1].(*string) = jobID
		*dest[2].(*string) = "col-1"
		*dest[4].(*string) = string(status)
		*dest[5].(*int) = 3
		*dest[6].(*int) = 1
		*dest[9].(*[]string) = []string{"a"}
		*dest[11].(*map[string]string) = map[string]string{}
		*dest[25].(*bool) = true
		return nil
	}}
}

func TestJobCreateDuplicate(t *testing.T) {
	repo := NewJobRepository(&stubExecutor{})
	job := &domain.JobCheckpoint{JobID: "job-1", CollectionID: "col-1"}
	if err := repo.Create(context.Background(), job); !errors.Is(err, domain.ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestJobCreateDefaults(t *testing.T) {
	exec := &stubExecutor{queryRow: func(string, []any) pgx.Row {
		return stubRow{scan: func(dest ...any) error {
			*dest[0].(*time.Time) = testNow
			*dest[1].(*time.Time) = testNow
			return nil
		}}
	}}
	repo := NewJobRepository(exec)
	job := &domain.JobCheckpoint{CollectionID: "col-1", TotalImages: 3, Config: domain.GenerationConfig{Width: 800, Quality: 85, Format: "jpeg"}}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if job.ID == "" || job.JobID != job.ID {
		t.Fatalf("expected generated ids, got %q / %q", job.ID, job.JobID)
	}
	if job.Status != domain.JobStatusPending || !job.CanResume {
		t.Fatalf("unexpected initial state %s canResume=%v", job.Status, job.CanResume)
	}
}

func TestJobClaimConflictAndNotFound(t *testing.T) {
	exec := &stubExecutor{queryRow: func(query string, args []any) pgx.Row {
		if query == sqlinline.QSelectCacheJob && args[0] == "running-job" {
			return jobRow("running-job", domain.JobStatusRunning)
		}
		return stubRow{err: pgx.ErrNoRows}
	}}
	repo := NewJobRepository(exec)
	if _, err := repo.Claim(context.Background(), "running-job"); !errors.Is(err, domain.ErrClaimConflict) {
		t.Fatalf("expected ErrClaimConflict, got %v", err)
	}
	if _, err := repo.Claim(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobClaimNextEmpty(t *testing.T) {
	repo := NewJobRepository(&stubExecutor{})
	if _, err := repo.ClaimNext(context.Background()); !errors.Is(err, domain.ErrNoJobAvailable) {
		t.Fatalf("expected ErrNoJobAvailable, got %v", err)
	}
}

func TestJobClaimScansCheckpoint(t *testing.T) {
	exec := &stubExecutor{queryRow: func(query string, args []any) pgx.Row {
		return jobRow("job-1", domain.JobStatusRunning)
	}}
	repo := NewJobRepository(exec)
	job, err := repo.Claim(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Claim error: %v", err)
	}
	if job.Status != domain.JobStatusRunning || job.TotalImages != 3 || job.CompletedImages != 1 {
		t.Fatalf("unexpected checkpoint %+v", job)
	}
	if !job.HasImage("a") {
		t.Fatal("processed set not scanned")
	}
}

func TestJobIncrementAlreadyCounted(t *testing.T) {
	exec := &stubExecutor{exec: func(string, []any) (pgconn.CommandTag, error) { return tag(0), nil }}
	repo := NewJobRepository(exec)
	counted, err := repo.IncrementCompleted(context.Background(), "job-1", "img-1", 100)
	if err != nil {
		t.Fatalf("IncrementCompleted error: %v", err)
	}
	if counted {
		t.Fatal("zero affected rows means the image was already counted")
	}
	got := exec.last()
	if got.query != sqlinline.QIncrementCacheJobCompleted {
		t.Fatal("unexpected statement")
	}
	if !reflect.DeepEqual(got.args, []any{"job-1", "img-1", int64(100)}) {
		t.Fatalf("unexpected args %#v", got.args)
	}
}

func TestJobIncrementFailedRecordsMessage(t *testing.T) {
	exec := &stubExecutor{}
	repo := NewJobRepository(exec)
	counted, err := repo.IncrementFailed(context.Background(), "job-1", "img-2", "decode: bad header")
	if err != nil || !counted {
		t.Fatalf("IncrementFailed = %v, %v", counted, err)
	}
	if !contains(exec.last().query, "item_errors") {
		t.Fatal("failed increments must record the item error")
	}
	if exec.last().args[2] != "decode: bad header" {
		t.Fatalf("unexpected message arg %v", exec.last().args[2])
	}
}

func TestJobUpdateStatusPassesAllowedFrom(t *testing.T) {
	exec := &stubExecutor{}
	repo := NewJobRepository(exec)
	if err := repo.UpdateStatus(context.Background(), "job-1", domain.JobStatusCompleted, "", false); err != nil {
		t.Fatalf("UpdateStatus error: %v", err)
	}
	args := exec.last().args
	if !reflect.DeepEqual(args[4], []string{"running"}) {
		t.Fatalf("unexpected allowed-from arg %#v", args[4])
	}
}

func TestJobUpdateStatusInvalidTransition(t *testing.T) {
	exec := &stubExecutor{
		exec: func(string, []any) (pgconn.CommandTag, error) { return tag(0), nil },
		queryRow: func(query string, args []any) pgx.Row {
			return jobRow("job-1", domain.JobStatusCompleted)
		},
	}
	repo := NewJobRepository(exec)
	err := repo.UpdateStatus(context.Background(), "job-1", domain.JobStatusPaused, "", true)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestJobIsImageProcessedMissingJob(t *testing.T) {
	repo := NewJobRepository(&stubExecutor{})
	if _, err := repo.IsImageProcessed(context.Background(), "missing", "img"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
