package handlers

import "net/http"

func (a *App) ListPresets(w http.ResponseWriter, r *http.Request) {
	if a.Presets == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "presets not configured")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"styles":   a.Presets.Styles(),
		"climates": a.Presets.Climates(),
	})
}
