package handlers

import (
	"net/http"

	"shortgen/internal/generation"
	"shortgen/internal/narrative"
)

// SceneParams returns the scene plan for a format and pressure together with
// warnings for manual overrides.
func (a *App) SceneParams(w http.ResponseWriter, r *http.Request) {
	var in generation.SceneParamsInput
	if err := a.decode(r, &in); err != nil {
		a.fail(w, r, err, nil)
		return
	}
	a.json(w, http.StatusOK, a.Service.SceneParams(in))
}

// GuardRail corrects a partial climate configuration.
func (a *App) GuardRail(w http.ResponseWriter, r *http.Request) {
	var in narrative.PartialConfig
	if err := a.decode(r, &in); err != nil {
		a.fail(w, r, err, nil)
		return
	}
	a.json(w, http.StatusOK, a.Service.GuardRail(in))
}
