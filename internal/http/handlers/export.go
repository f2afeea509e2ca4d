package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"shortgen/internal/middleware"
	"shortgen/pkg/zip"
)

// ExportShort streams a storyboard archive: the raw script, a scene manifest
// and the narration as plain text. Scene images are referenced by URL.
func (a *App) ExportShort(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	short, err := a.Service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err, nil)
		return
	}
	if len(short.Scenes) == 0 {
		a.error(w, http.StatusConflict, "conflict", "short has no script yet")
		return
	}

	manifest, err := json.MarshalIndent(toShortResponse(short), "", "  ")
	if err != nil {
		a.fail(w, r, err, nil)
		return
	}
	var narration strings.Builder
	for _, sc := range short.Scenes {
		fmt.Fprintf(&narration, "[%d] (%ds) %s\n", sc.Order, sc.Duration, sc.Narration)
	}
	assets := []zip.Asset{
		{Filename: "storyboard.json", Data: manifest},
		{Filename: "narration.txt", Data: []byte(narration.String())},
	}
	if len(short.Script) > 0 {
		assets = append(assets, zip.Asset{Filename: "script.json", Data: short.Script})
	}
	modified := short.UpdatedAt
	if modified.IsZero() {
		modified = time.Now()
	}
	data, err := zip.ArchiveAssets(assets, modified)
	if err != nil {
		a.fail(w, r, err, nil)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="short-%s.zip"`, short.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
