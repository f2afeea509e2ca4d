package handlers

import (
	"net/http"
	"strconv"

	"shortgen/internal/middleware"
)

const defaultEntryLimit = 20

// Credits returns the caller's balance and latest ledger entries.
func (a *App) Credits(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	if a.Balances == nil {
		a.error(w, http.StatusServiceUnavailable, "unavailable", "credit ledger not configured")
		return
	}
	limit := defaultEntryLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	balance, err := a.Balances.Balance(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err, nil)
		return
	}
	entries, err := a.Balances.Entries(r.Context(), userID, limit)
	if err != nil {
		a.fail(w, r, err, nil)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"balance": balance,
		"entries": entries,
	})
}
