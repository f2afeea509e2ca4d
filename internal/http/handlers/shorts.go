package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"shortgen/internal/domain"
	"shortgen/internal/generation"
	"shortgen/internal/middleware"
	"shortgen/internal/pipeline"
)

type SceneResponse struct {
	ID             string    `json:"id"`
	Order          int       `json:"order"`
	Duration       int       `json:"duration"`
	Narration      string    `json:"narration"`
	VisualDesc     string    `json:"visualDesc"`
	Goal           string    `json:"goal,omitempty"`
	ImagePrompt    string    `json:"imagePrompt,omitempty"`
	NegativePrompt string    `json:"negativePrompt,omitempty"`
	MediaURL       string    `json:"mediaUrl,omitempty"`
	Width          int       `json:"width,omitempty"`
	Height         int       `json:"height,omitempty"`
	IsGenerated    bool      `json:"isGenerated"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type ShortResponse struct {
	ID             string                     `json:"id"`
	Theme          string                     `json:"theme"`
	Language       string                     `json:"language"`
	Format         domain.Format              `json:"format"`
	TargetDuration int                        `json:"targetDuration"`
	StyleID        string                     `json:"styleId"`
	ClimateID      string                     `json:"climateId"`
	Model          string                     `json:"model,omitempty"`
	SceneCount     *int                       `json:"sceneCount,omitempty"`
	SceneDuration  *int                       `json:"sceneDuration,omitempty"`
	Confirmed      *domain.ConfirmedNarrative `json:"confirmed,omitempty"`
	Status         domain.ShortStatus         `json:"status"`
	Progress       int                        `json:"progress"`
	Title          string                     `json:"title,omitempty"`
	Hook           string                     `json:"hook,omitempty"`
	CTA            string                     `json:"cta,omitempty"`
	CreditsUsed    int                        `json:"creditsUsed"`
	ErrorMessage   string                     `json:"errorMessage,omitempty"`
	CreatedAt      time.Time                  `json:"createdAt"`
	UpdatedAt      time.Time                  `json:"updatedAt"`
	CompletedAt    *time.Time                 `json:"completedAt,omitempty"`
	Scenes         []SceneResponse            `json:"scenes"`
}

func toShortResponse(s *domain.Short) ShortResponse {
	out := ShortResponse{
		ID:             s.ID,
		Theme:          s.Theme,
		Language:       s.Language,
		Format:         s.Format,
		TargetDuration: s.TargetDuration,
		StyleID:        s.StyleID,
		ClimateID:      s.ClimateID,
		SceneCount:     s.SceneCount,
		SceneDuration:  s.SceneDuration,
		Status:         s.Status,
		Progress:       s.Progress,
		Title:          s.Title,
		Hook:           s.Hook,
		CTA:            s.CTA,
		CreditsUsed:    s.CreditsUsed,
		ErrorMessage:   s.ErrorMessage,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		CompletedAt:    s.CompletedAt,
		Scenes:         make([]SceneResponse, 0, len(s.Scenes)),
	}
	if s.Model != nil {
		out.Model = s.Model.String()
	}
	if !s.Confirmed.IsZero() {
		confirmed := s.Confirmed
		out.Confirmed = &confirmed
	}
	for _, sc := range s.Scenes {
		out.Scenes = append(out.Scenes, SceneResponse{
			ID:             sc.ID,
			Order:          sc.Order,
			Duration:       sc.Duration,
			Narration:      sc.Narration,
			VisualDesc:     sc.VisualDesc,
			Goal:           sc.Goal,
			ImagePrompt:    sc.ImagePrompt,
			NegativePrompt: sc.NegativePrompt,
			MediaURL:       sc.MediaURL,
			Width:          sc.Width,
			Height:         sc.Height,
			IsGenerated:    sc.IsGenerated,
			ErrorMessage:   sc.ErrorMessage,
			UpdatedAt:      sc.UpdatedAt,
		})
	}
	return out
}

// CreateShort stores a DRAFT short for the caller.
func (a *App) CreateShort(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var in generation.DraftInput
	if err := a.decode(r, &in); err != nil {
		a.fail(w, r, err, nil)
		return
	}
	if strings.TrimSpace(in.Language) == "" {
		in.Language = middleware.LanguageFromContext(r.Context())
	}
	short, warnings, err := a.Service.CreateDraft(r.Context(), userID, in)
	if err != nil {
		a.fail(w, r, err, nil)
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	a.json(w, http.StatusCreated, map[string]any{
		"short":    toShortResponse(short),
		"warnings": warnings,
	})
}

// GetShort returns the caller's short with its scenes.
func (a *App) GetShort(w http.ResponseWriter, r *http.Request) {
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
	a.json(w, http.StatusOK, map[string]any{"short": toShortResponse(short)})
}

type generateRequest struct {
	Step string `json:"step"`
}

func (a *App) parseStep(r *http.Request) (pipeline.Step, error) {
	var req generateRequest
	if err := a.decode(r, &req); err != nil {
		return "", err
	}
	if req.Step == "" {
		req.Step = r.URL.Query().Get("step")
	}
	return pipeline.ParseStep(req.Step)
}

// QuoteShort prices a step without running it.
func (a *App) QuoteShort(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	step, err := pipeline.ParseStep(r.URL.Query().Get("step"))
	if err != nil {
		a.fail(w, r, err, nil)
		return
	}
	_, quote, err := a.Service.Quote(r.Context(), userID, chi.URLParam(r, "id"), step)
	if err != nil {
		a.fail(w, r, err, nil)
		return
	}
	stages := make([]string, 0, len(quote.Stages))
	for _, st := range quote.Stages {
		stages = append(stages, string(st))
	}
	a.json(w, http.StatusOK, map[string]any{
		"step":   quote.Step,
		"stages": stages,
		"amount": quote.Amount,
		"images": quote.Images,
	})
}

// GenerateShort runs a pipeline step synchronously and returns the short in
// its final state.
func (a *App) GenerateShort(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	step, err := a.parseStep(r)
	if err != nil {
		a.fail(w, r, err, nil)
		return
	}
	short, err := a.Service.Trigger(r.Context(), userID, chi.URLParam(r, "id"), step)
	if err != nil {
		a.fail(w, r, err, short)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"short": toShortResponse(short)})
}
