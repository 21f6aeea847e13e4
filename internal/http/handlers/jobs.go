package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"mediacache/internal/domain"
	"mediacache/internal/jobs"
)

type jobResponse struct {
	JobID            string                  `json:"job_id"`
	CollectionID     string                  `json:"collection_id"`
	CollectionName   string                  `json:"collection_name"`
	Status           domain.JobStatus        `json:"status"`
	TotalImages      int                     `json:"total_images"`
	CompletedImages  int                     `json:"completed_images"`
	FailedImages     int                     `json:"failed_images"`
	SkippedImages    int                     `json:"skipped_images"`
	Remaining        int                     `json:"remaining"`
	Progress         float64                 `json:"progress"`
	TotalSizeBytes   int64                   `json:"total_size_bytes"`
	TargetFolderID   string                  `json:"target_folder_id,omitempty"`
	TargetFolderPath string                  `json:"target_folder_path,omitempty"`
	Config           domain.GenerationConfig `json:"config"`
	ItemErrors       map[string]string       `json:"item_errors,omitempty"`
	ErrorMessage     string                  `json:"error_message,omitempty"`
	CanResume        bool                    `json:"can_resume"`
	StartedAt        *time.Time              `json:"started_at,omitempty"`
	CompletedAt      *time.Time              `json:"completed_at,omitempty"`
	LastProgressAt   *time.Time              `json:"last_progress_at,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

func newJobResponse(j *domain.JobCheckpoint) jobResponse {
	return jobResponse{
		JobID:            j.JobID,
		CollectionID:     j.CollectionID,
		CollectionName:   j.CollectionName,
		Status:           j.Status,
		TotalImages:      j.TotalImages,
		CompletedImages:  j.CompletedImages,
		FailedImages:     j.FailedImages,
		SkippedImages:    j.SkippedImages,
		Remaining:        j.Remaining(),
		Progress:         j.Progress(),
		TotalSizeBytes:   j.TotalSizeBytes,
		TargetFolderID:   j.TargetFolderID,
		TargetFolderPath: j.TargetFolderPath,
		Config:           j.Config,
		ItemErrors:       j.ItemErrors,
		ErrorMessage:     j.ErrorMessage,
		CanResume:        j.CanResume,
		StartedAt:        j.StartedAt,
		CompletedAt:      j.CompletedAt,
		LastProgressAt:   j.LastProgressAt,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
	}
}

func (a *App) JobsEnqueue(w http.ResponseWriter, r *http.Request) {
	var req jobs.EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	job, err := a.Jobs.Enqueue(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, newJobResponse(job))
}

func (a *App) JobsList(w http.ResponseWriter, r *http.Request) {
	var (
		list []domain.JobCheckpoint
		err  error
	)
	switch state := r.URL.Query().Get("state"); state {
	case "", "recent":
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
				a.error(w, http.StatusBadRequest, "bad_request", "invalid limit")
				return
			}
		}
		list, err = a.Jobs.ListRecent(r.Context(), limit)
	case "incomplete":
		list, err = a.Jobs.ListIncomplete(r.Context())
	case "paused":
		list, err = a.Jobs.ListPaused(r.Context())
	default:
		a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("unknown state %q", state))
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items := make([]jobResponse, 0, len(list))
	for i := range list {
		items = append(items, newJobResponse(&list[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) JobGet(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newJobResponse(job))
}

func (a *App) JobPause(w http.ResponseWriter, r *http.Request) {
	a.control(w, r, a.Jobs.Pause)
}

func (a *App) JobResume(w http.ResponseWriter, r *http.Request) {
	a.control(w, r, a.Jobs.Resume)
}

func (a *App) JobCancel(w http.ResponseWriter, r *http.Request) {
	a.control(w, r, a.Jobs.Cancel)
}

func (a *App) control(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, jobID string) (*domain.JobCheckpoint, error)) {
	job, err := op(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, newJobResponse(job))
}
