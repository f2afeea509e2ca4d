package pipeline

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"shortgen/internal/domain"
	"shortgen/internal/domain/jsoncfg"
	"shortgen/internal/narrative"
	"shortgen/internal/providers/prompt"
)

const scriptSystemPrompt = `You are a scriptwriter for short vertical videos.
You receive one JSON document with the sections "style", "climate", "constraints" and "characters".
Write a script that follows the style and climate exactly and respects constraints.sceneCount and constraints.sceneDuration.
Write narration in constraints.language. Use only the characters listed.
Answer with a single JSON object and nothing else:
{"title": string, "hook": string, "cta": string,
 "scenes": [{"order": int, "narration": string, "visualDescription": string, "duration": int, "goal": string}]}`

type scriptScene struct {
	Order             *int   `json:"order"`
	Narration         string `json:"narration"`
	VisualDescription string `json:"visualDescription"`
	Duration          int    `json:"duration"`
	Goal              string `json:"goal"`
}

type scriptResponse struct {
	Title  string         `json:"title"`
	Hook   string         `json:"hook"`
	CTA    string         `json:"cta"`
	Scenes *[]scriptScene `json:"scenes"`
}

// BuildPayload assembles the text-service payload of short from its presets
// and roster.
func BuildPayload(ctx context.Context, presets domain.PresetRepository, short *domain.Short, roster []domain.Character) (*jsoncfg.Payload, error) {
	style, err := presets.Style(ctx, short.StyleID)
	if err != nil {
		return nil, presetError("style", short.StyleID, err)
	}
	climate, err := presets.Climate(ctx, short.ClimateID)
	if err != nil {
		return nil, presetError("climate", short.ClimateID, err)
	}
	return jsoncfg.Build(jsoncfg.BuildInput{
		Premise:    short.Theme,
		Language:   short.Language,
		Format:     short.Format,
		Style:      style,
		Climate:    climate,
		Characters: roster,
		Overrides: narrative.Overrides{
			SceneCount:    short.SceneCount,
			SceneDuration: short.SceneDuration,
		},
		Confirmed: confirmedConfig(short.Confirmed),
	})
}

func confirmedConfig(c domain.ConfirmedNarrative) narrative.PartialConfig {
	var cfg narrative.PartialConfig
	if c.EmotionalState != "" {
		cfg.EmotionalState = &c.EmotionalState
	}
	if c.RevelationDynamic != "" {
		cfg.RevelationDynamic = &c.RevelationDynamic
	}
	if c.NarrativePressure != "" {
		p := narrative.Pressure(c.NarrativePressure)
		cfg.NarrativePressure = &p
	}
	if c.HookType != "" {
		cfg.HookType = &c.HookType
	}
	if c.ClosingType != "" {
		cfg.ClosingType = &c.ClosingType
	}
	return cfg
}

func presetError(kind, id string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s %q not found", domain.ErrValidation, kind, id)
	}
	return err
}

func (o *Orchestrator) runScript(ctx context.Context, r *run) error {
	roster, err := o.repo.ListCharacters(ctx, r.short.ID)
	if err != nil {
		return fmt.Errorf("load characters: %w", err)
	}
	payload, err := BuildPayload(ctx, o.presets, r.short, roster)
	if err != nil {
		return err
	}
	for _, w := range payload.Warnings {
		r.logger.Warn().Str("stage", string(StageScript)).Msg(w)
	}

	writer, err := o.providers.Writer(r.models.Script)
	if err != nil {
		return err
	}
	raw, err := writer.Generate(ctx, prompt.TextRequest{
		Purpose:     domain.ModelRoleScript,
		System:      scriptSystemPrompt,
		User:        string(payload.JSON()),
		Model:       r.models.Script.ModelID,
		Temperature: 0.8,
	})
	if err != nil {
		return fmt.Errorf("generate script: %w", err)
	}

	result, err := ParseScript(raw, payload.Constraints.SceneDuration)
	if err != nil {
		return err
	}
	if err := o.repo.SaveScript(ctx, r.short.ID, result, progressScriptDone); err != nil {
		return fmt.Errorf("save script: %w", err)
	}
	r.logger.Info().Str("stage", string(StageScript)).Int("scenes", len(result.Scenes)).Msg("script saved")
	return nil
}

// ParseScript turns a text-service response into scenes numbered 0..n-1.
// When every entry carries a distinct non-negative order the entries are
// sorted by it first; otherwise array position decides. Durations below one
// second fall back to defaultDuration.
func ParseScript(raw string, defaultDuration int) (domain.ScriptResult, error) {
	fragment := prompt.ExtractJSONFragment(raw)
	if fragment == "" {
		return domain.ScriptResult{}, errors.New("script response is empty")
	}
	resp, err := prompt.ParseModelPayload[scriptResponse](fragment)
	if err != nil {
		return domain.ScriptResult{}, fmt.Errorf("parse script response: %w", err)
	}
	if resp.Scenes == nil {
		return domain.ScriptResult{}, errors.New("script response has no scenes array")
	}
	entries := *resp.Scenes
	if len(entries) == 0 {
		return domain.ScriptResult{}, errors.New("script response has an empty scenes array")
	}

	useModelOrder := true
	seen := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		if e.Order == nil || *e.Order < 0 {
			useModelOrder = false
			break
		}
		if _, dup := seen[*e.Order]; dup {
			useModelOrder = false
			break
		}
		seen[*e.Order] = struct{}{}
	}

	if useModelOrder {
		slices.SortStableFunc(entries, func(a, b scriptScene) int {
			return cmp.Compare(*a.Order, *b.Order)
		})
	}

	scenes := make([]domain.Scene, 0, len(entries))
	for i, e := range entries {
		duration := e.Duration
		if duration <= 0 {
			duration = defaultDuration
		}
		scenes = append(scenes, domain.Scene{
			Order:      i,
			Duration:   duration,
			Narration:  strings.TrimSpace(e.Narration),
			VisualDesc: strings.TrimSpace(e.VisualDescription),
			Goal:       strings.TrimSpace(e.Goal),
		})
	}

	return domain.ScriptResult{
		Title:  strings.TrimSpace(resp.Title),
		Hook:   strings.TrimSpace(resp.Hook),
		CTA:    strings.TrimSpace(resp.CTA),
		Raw:    json.RawMessage(fragment),
		Scenes: scenes,
	}, nil
}
