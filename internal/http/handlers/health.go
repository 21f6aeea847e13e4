package handlers

import (
	"context"
	"net/http"
	"time"
)

const pingTimeout = 2 * time.Second

// Health reports liveness and whether the catalog database answers a ping.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	if a.DB == nil {
		a.json(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()
	if err := a.DB.Ping(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("http: health ping failed")
		a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unavailable"})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}
