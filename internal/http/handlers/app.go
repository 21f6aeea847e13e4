package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"mediacache/internal/cleanup"
	"mediacache/internal/domain"
	"mediacache/internal/jobs"
	"mediacache/internal/middleware"
)

// Cleaner runs one cleanup pass on demand.
type Cleaner interface {
	Run(ctx context.Context) (cleanup.Report, error)
}

// Pinger checks the database connection. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Jobs    *jobs.Service
	Cleanup Cleaner
	DB      Pinger
	Logger  zerolog.Logger
}

func NewApp(svc *jobs.Service, cleaner Cleaner, db Pinger, logger zerolog.Logger) *App {
	return &App{Jobs: svc, Cleanup: cleaner, DB: db, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}

// fail maps a service error onto a status code.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidConfig):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrCollectionNotFound):
		a.error(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrDuplicateJob):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	default:
		a.Logger.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).Msg("http: request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
