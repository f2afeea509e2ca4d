package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shortgen/internal/domain"
	"shortgen/internal/domain/jsoncfg"
	"shortgen/internal/providers/image"
	"shortgen/internal/providers/prompt"
)

const promptSystemPrompt = `You write prompts for a text-to-image model.
You receive one JSON document with "style", "climate", "characters" and an ordered "scenes" list.
For every scene write one detailed image prompt that shows its visual description in the given style and atmosphere, keeping recurring characters visually consistent, plus a negative prompt.
Answer with a single JSON object and nothing else:
{"prompts": [{"order": int, "imagePrompt": string, "negativePrompt": string}]}
Use the scene's order value unchanged.`

type promptScene struct {
	Order             int    `json:"order"`
	Narration         string `json:"narration"`
	VisualDescription string `json:"visualDescription"`
}

type promptStyle struct {
	Name              string `json:"name,omitempty"`
	NarratorPosture   string `json:"narratorPosture,omitempty"`
	VisualInstruction string `json:"visualInstruction,omitempty"`
}

type promptClimate struct {
	Name              string `json:"name,omitempty"`
	EmotionalState    string `json:"emotionalState,omitempty"`
	Atmosphere        string `json:"atmosphere,omitempty"`
	VisualInstruction string `json:"visualInstruction,omitempty"`
}

type promptInput struct {
	Format     domain.Format            `json:"format"`
	ImageSize  image.Size               `json:"imageSize"`
	Style      promptStyle              `json:"style"`
	Climate    promptClimate            `json:"climate"`
	Characters []jsoncfg.CharacterEntry `json:"characters"`
	Scenes     []promptScene            `json:"scenes"`
}

// PromptEntry is one image prompt returned by the text service.
type PromptEntry struct {
	Order          int    `json:"order"`
	ImagePrompt    string `json:"imagePrompt"`
	NegativePrompt string `json:"negativePrompt"`
}

func (o *Orchestrator) runPrompts(ctx context.Context, r *run) error {
	scenes, err := o.repo.ListScenes(ctx, r.short.ID)
	if err != nil {
		return fmt.Errorf("load scenes: %w", err)
	}
	if len(scenes) == 0 {
		return errors.New("short has no scenes")
	}
	roster, err := o.repo.ListCharacters(ctx, r.short.ID)
	if err != nil {
		return fmt.Errorf("load characters: %w", err)
	}
	style, err := o.presets.Style(ctx, r.short.StyleID)
	if err != nil {
		return presetError("style", r.short.StyleID, err)
	}
	climate, err := o.presets.Climate(ctx, r.short.ClimateID)
	if err != nil {
		return presetError("climate", r.short.ClimateID, err)
	}

	in := promptInput{
		Format:    r.short.Format,
		ImageSize: image.SizeFor(r.short.Format),
		Style: promptStyle{
			Name:              style.Name,
			NarratorPosture:   style.NarratorPosture,
			VisualInstruction: style.VisualInstruction,
		},
		Climate: promptClimate{
			Name:              climate.Name,
			EmotionalState:    climate.EmotionalState,
			Atmosphere:        climate.Atmosphere,
			VisualInstruction: climate.VisualInstruction,
		},
		Characters: make([]jsoncfg.CharacterEntry, 0, len(roster)),
		Scenes:     make([]promptScene, 0, len(scenes)),
	}
	for _, c := range roster {
		in.Characters = append(in.Characters, jsoncfg.CharacterEntry{
			Name:         c.Name,
			Description:  c.Description,
			VisualPrompt: c.VisualPrompt,
			Role:         c.Role,
		})
	}
	for _, sc := range scenes {
		in.Scenes = append(in.Scenes, promptScene{Order: sc.Order, Narration: sc.Narration, VisualDescription: sc.VisualDesc})
	}

	writer, err := o.providers.Writer(r.models.Prompt)
	if err != nil {
		return err
	}
	raw, err := writer.Generate(ctx, prompt.TextRequest{
		Purpose:     domain.ModelRolePrompt,
		System:      promptSystemPrompt,
		User:        string(jsoncfg.MustMarshal(in)),
		Model:       r.models.Prompt.ModelID,
		Temperature: 0.7,
	})
	if err != nil {
		return fmt.Errorf("generate prompts: %w", err)
	}
	entries, err := ParsePrompts(raw)
	if err != nil {
		return err
	}

	byOrder := make(map[int]PromptEntry, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.ImagePrompt) == "" {
			continue
		}
		byOrder[e.Order] = e
	}
	matched := 0
	for _, sc := range scenes {
		e, ok := byOrder[sc.Order]
		if !ok {
			continue
		}
		negative := strings.TrimSpace(e.NegativePrompt)
		if negative == "" {
			negative = image.DefaultNegativePrompt
		}
		if err := o.repo.UpdateScenePrompt(ctx, sc.ID, strings.TrimSpace(e.ImagePrompt), negative); err != nil {
			return fmt.Errorf("save prompt for scene %d: %w", sc.Order, err)
		}
		matched++
	}
	if matched < len(scenes) {
		r.logger.Warn().Str("stage", string(StagePrompts)).Int("matched", matched).Int("scenes", len(scenes)).Msg("some scenes received no prompt")
	}
	return nil
}

type promptResponse struct {
	Prompts *[]PromptEntry `json:"prompts"`
}

// ParsePrompts decodes either {"prompts":[...]} or a bare array of entries.
func ParsePrompts(raw string) ([]PromptEntry, error) {
	fragment := prompt.ExtractJSONFragment(raw)
	if fragment == "" {
		return nil, errors.New("prompt response is empty")
	}
	if strings.HasPrefix(fragment, "[") {
		entries, err := prompt.ParseModelPayload[[]PromptEntry](fragment)
		if err != nil {
			return nil, fmt.Errorf("parse prompt response: %w", err)
		}
		return entries, nil
	}
	wrapped, err := prompt.ParseModelPayload[promptResponse](fragment)
	if err != nil {
		return nil, fmt.Errorf("parse prompt response: %w", err)
	}
	if wrapped.Prompts == nil {
		return nil, errors.New("prompt response has no prompts array")
	}
	return *wrapped.Prompts, nil
}
