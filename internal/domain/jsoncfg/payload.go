package jsoncfg

import (
	"encoding/json"
	"fmt"
	"strings"

	"shortgen/internal/domain"
	"shortgen/internal/narrative"
)

// DefaultLanguage is used when a short does not specify a narration language.
const DefaultLanguage = "en"

// BuildInput is everything the payload builder may read. Nothing else reaches
// the text service.
type BuildInput struct {
	Premise    string
	Language   string
	Format     domain.Format
	Style      *domain.Style
	Climate    *domain.Climate
	Characters []domain.Character
	Overrides  narrative.Overrides
	// Confirmed holds values the caller explicitly accepted; they survive
	// guard-rail correction.
	Confirmed narrative.PartialConfig
}

type StyleSection struct {
	Name              string   `json:"name,omitempty"`
	HookType          string   `json:"hookType"`
	HookExamples      []string `json:"hookExamples"`
	CTAType           string   `json:"ctaType"`
	CTAExamples       []string `json:"ctaExamples"`
	ClosingType       string   `json:"closingType"`
	NarratorPosture   string   `json:"narratorPosture,omitempty"`
	LanguageRegister  string   `json:"languageRegister,omitempty"`
	ScriptInstruction string   `json:"scriptInstruction,omitempty"`
	VisualInstruction string   `json:"visualInstruction,omitempty"`
}

type ClimateSection struct {
	Name              string `json:"name,omitempty"`
	EmotionalState    string `json:"emotionalState"`
	RevelationDynamic string `json:"revelationDynamic"`
	NarrativePressure string `json:"narrativePressure"`
	Atmosphere        string `json:"atmosphere,omitempty"`
	ScriptInstruction string `json:"scriptInstruction,omitempty"`
	VisualInstruction string `json:"visualInstruction,omitempty"`
}

type Constraints struct {
	Premise       string        `json:"premise"`
	Language      string        `json:"language"`
	Format        domain.Format `json:"format"`
	SceneCount    int           `json:"sceneCount"`
	SceneDuration int           `json:"sceneDuration"`
	TotalDuration int           `json:"totalDuration"`
	IsOverridden  bool          `json:"isOverridden"`
}

type CharacterEntry struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	VisualPrompt string `json:"visualPrompt"`
	Role         string `json:"role"`
}

// Payload is the closed document handed to the text-generation service.
type Payload struct {
	Style       StyleSection     `json:"style"`
	Climate     ClimateSection   `json:"climate"`
	Constraints Constraints      `json:"constraints"`
	Characters  []CharacterEntry `json:"characters"`

	// Warnings collects guard-rail corrections and override notes. They are
	// not part of the document sent to the model.
	Warnings []string `json:"-"`
}

// Build validates the presets and assembles the payload.
func Build(in BuildInput) (*Payload, error) {
	if strings.TrimSpace(in.Premise) == "" {
		return nil, fmt.Errorf("%w: constraints.premise is required", domain.ErrValidation)
	}
	if in.Style == nil {
		return nil, fmt.Errorf("%w: style is required", domain.ErrValidation)
	}
	if in.Climate == nil {
		return nil, fmt.Errorf("%w: climate is required", domain.ErrValidation)
	}
	if err := ValidateStruct("style", in.Style); err != nil {
		return nil, err
	}
	if err := ValidateStruct("climate", in.Climate); err != nil {
		return nil, err
	}

	var warnings []string
	format, ok := narrative.ParseFormat(string(in.Format))
	if !ok {
		warnings = append(warnings, fmt.Sprintf("format %q is unknown, using %s", in.Format, format))
	}

	guard := narrative.ValidateGuardRails(narrative.PartialConfig{
		EmotionalState:    optional(in.Climate.EmotionalState),
		RevelationDynamic: optional(in.Climate.RevelationDynamic),
		NarrativePressure: optionalPressure(in.Climate.NarrativePressure),
		HookType:          optional(in.Style.HookType),
		ClosingType:       optional(in.Style.ClosingType),
	})
	warnings = append(warnings, guard.Warnings...)
	cfg := narrative.ApplyConfirmed(guard.Corrected, in.Confirmed)

	params := narrative.CalculateSceneParams(format, cfg.NarrativePressure)
	warnings = append(warnings, narrative.ValidateOverrides(format, in.Overrides)...)
	sceneCount := narrative.Resolve(positive(in.Overrides.SceneCount), params.SceneCount)
	sceneDuration := narrative.Resolve(positive(in.Overrides.SceneDuration), params.AvgDuration)

	characters := make([]CharacterEntry, 0, len(in.Characters))
	for _, c := range in.Characters {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		characters = append(characters, CharacterEntry{
			Name:         strings.TrimSpace(c.Name),
			Description:  c.Description,
			VisualPrompt: c.VisualPrompt,
			Role:         c.Role,
		})
	}

	return &Payload{
		Style: StyleSection{
			Name:              in.Style.Name,
			HookType:          cfg.HookType,
			HookExamples:      nonNil(in.Style.HookExamples),
			CTAType:           strings.TrimSpace(in.Style.CTAType),
			CTAExamples:       nonNil(in.Style.CTAExamples),
			ClosingType:       cfg.ClosingType,
			NarratorPosture:   in.Style.NarratorPosture,
			LanguageRegister:  in.Style.LanguageRegister,
			ScriptInstruction: in.Style.ScriptInstruction,
			VisualInstruction: in.Style.VisualInstruction,
		},
		Climate: ClimateSection{
			Name:              in.Climate.Name,
			EmotionalState:    cfg.EmotionalState,
			RevelationDynamic: cfg.RevelationDynamic,
			NarrativePressure: string(cfg.NarrativePressure),
			Atmosphere:        in.Climate.Atmosphere,
			ScriptInstruction: in.Climate.ScriptInstruction,
			VisualInstruction: in.Climate.VisualInstruction,
		},
		Constraints: Constraints{
			Premise:       strings.TrimSpace(in.Premise),
			Language:      narrative.ResolveString(strings.TrimSpace(in.Language), DefaultLanguage),
			Format:        format,
			SceneCount:    sceneCount,
			SceneDuration: sceneDuration,
			TotalDuration: sceneCount * sceneDuration,
			IsOverridden:  in.Overrides.IsSet(),
		},
		Characters: characters,
		Warnings:   warnings,
	}, nil
}

// JSON renders the payload document.
func (p *Payload) JSON() json.RawMessage {
	return MustMarshal(p)
}

func MustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("json marshal: %w", err))
	}
	return b
}

func optional(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func optionalPressure(v string) *narrative.Pressure {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	p := narrative.Pressure(v)
	return &p
}

func positive(v *int) *int {
	if v == nil || *v < 1 {
		return nil
	}
	return v
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
