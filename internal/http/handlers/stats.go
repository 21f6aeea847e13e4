package handlers

import (
	"net/http"
)

func (a *App) StatsSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := a.Jobs.Stats(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, stats)
}

func (a *App) FoldersList(w http.ResponseWriter, r *http.Request) {
	folders, err := a.Jobs.ListFolders(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": folders})
}

// CleanupRun triggers a synchronous cleanup pass. Partial failures still
// return the report.
func (a *App) CleanupRun(w http.ResponseWriter, r *http.Request) {
	if a.Cleanup == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "cleanup is not configured")
		return
	}
	report, err := a.Cleanup.Run(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("http: cleanup pass had errors")
		a.json(w, http.StatusInternalServerError, map[string]any{"report": report, "error": err.Error()})
		return
	}
	a.json(w, http.StatusOK, map[string]any{"report": report})
}
