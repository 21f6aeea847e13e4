package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"mediacache/internal/http/handlers"
	"mediacache/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", app.JobsEnqueue)
		r.Get("/", app.JobsList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.JobGet)
			r.Post("/pause", app.JobPause)
			r.Post("/resume", app.JobResume)
			r.Post("/cancel", app.JobCancel)
		})
	})

	r.Get("/v1/stats", app.StatsSummary)
	r.Get("/v1/folders", app.FoldersList)
	r.With(middleware.RateLimit(6, time.Minute)).Post("/v1/cleanup", app.CleanupRun)

	return r
}
