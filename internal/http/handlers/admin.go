package handlers

import (
	"net/http"

	"shortgen/internal/middleware"
)

// InvalidateModelCache drops the cached model configuration so the next run
// reads it again.
func (a *App) InvalidateModelCache(w http.ResponseWriter, r *http.Request) {
	if a.Models == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "model cache not configured")
		return
	}
	previous := a.Models.FetchedAt()
	a.Models.Invalidate()
	a.logger(r).Info().
		Str("admin", middleware.UserIDFromContext(r.Context())).
		Time("fetched_at", previous).
		Msg("model cache invalidated")
	a.json(w, http.StatusOK, map[string]any{"invalidated": true})
}
