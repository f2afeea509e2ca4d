package handlers

import (
	"errors"
	"net/http"

	"shortgen/internal/credits"
	"shortgen/internal/domain"
	"shortgen/internal/pipeline"
)

// fail maps err onto the API error body. A stage failure carries the short
// in its final state next to the error.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error, short *domain.Short) {
	var (
		stageErr  *pipeline.StageError
		creditErr *credits.InsufficientCreditsError
	)
	switch {
	case errors.As(err, &stageErr):
		body := map[string]any{"error": errorBody{Code: "stage_failed", Message: stageErr.Error()}}
		if short != nil {
			body["short"] = toShortResponse(short)
		}
		a.json(w, http.StatusBadGateway, body)
	case errors.As(err, &creditErr):
		required, available := creditErr.Required, creditErr.Available
		a.json(w, http.StatusPaymentRequired, map[string]any{"error": errorBody{
			Code:      "insufficient_credits",
			Message:   creditErr.Error(),
			Required:  &required,
			Available: &available,
		}})
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrScenesExist),
		errors.Is(err, domain.ErrUnsupportedProvider):
		a.error(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "short not found")
	case errors.Is(err, domain.ErrConflict):
		a.error(w, http.StatusConflict, "conflict", err.Error())
	default:
		a.logger(r).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
