package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"shortgen/internal/domain"
)

// TextRequest is one call to a text-generation model. User carries the JSON
// document the model works from.
type TextRequest struct {
	Purpose     domain.ModelRole
	System      string
	User        string
	Model       string
	Temperature float64
}

// Writer turns a text request into the raw model response.
type Writer interface {
	Generate(ctx context.Context, req TextRequest) (string, error)
}

// StaticWriter produces deterministic scripts and prompts without calling a
// model. It backs local development and tests.
type StaticWriter struct{}

func NewStaticWriter() *StaticWriter {
	return &StaticWriter{}
}

type staticPayload struct {
	Style struct {
		HookType string `json:"hookType"`
		CTAType  string `json:"ctaType"`
	} `json:"style"`
	Climate struct {
		EmotionalState string `json:"emotionalState"`
		Atmosphere     string `json:"atmosphere"`
	} `json:"climate"`
	Constraints struct {
		Premise       string `json:"premise"`
		SceneCount    int    `json:"sceneCount"`
		SceneDuration int    `json:"sceneDuration"`
	} `json:"constraints"`
}

type staticPromptInput struct {
	Scenes []struct {
		Order             int    `json:"order"`
		Narration         string `json:"narration"`
		VisualDescription string `json:"visualDescription"`
	} `json:"scenes"`
	Climate struct {
		Atmosphere string `json:"atmosphere"`
	} `json:"climate"`
}

func (s *StaticWriter) Generate(_ context.Context, req TextRequest) (string, error) {
	switch req.Purpose {
	case domain.ModelRoleScript:
		return s.script(req.User)
	case domain.ModelRolePrompt:
		return s.prompts(req.User)
	default:
		return "", fmt.Errorf("%w: static writer cannot handle %q", domain.ErrUnsupportedProvider, req.Purpose)
	}
}

func (s *StaticWriter) script(raw string) (string, error) {
	var p staticPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	premise := coalesce(p.Constraints.Premise, "an untold story")
	count := p.Constraints.SceneCount
	if count < 1 {
		count = 1
	}
	mood := strings.ToLower(coalesce(p.Climate.EmotionalState, "curiosity"))

	type scene struct {
		Order             int    `json:"order"`
		Narration         string `json:"narration"`
		VisualDescription string `json:"visualDescription"`
		Duration          int    `json:"duration"`
		Goal              string `json:"goal"`
	}
	scenes := make([]scene, 0, count)
	for i := 0; i < count; i++ {
		goal := "develop"
		switch {
		case i == 0:
			goal = "hook"
		case i == count-1:
			goal = "closing"
		}
		scenes = append(scenes, scene{
			Order:             i,
			Narration:         fmt.Sprintf("Part %d of %d: %s.", i+1, count, premise),
			VisualDescription: fmt.Sprintf("A %s shot about %s, scene %d.", mood, premise, i+1),
			Duration:          p.Constraints.SceneDuration,
			Goal:              goal,
		})
	}
	out := map[string]any{
		"title":  cases.Title(language.Und).String(premise),
		"hook":   fmt.Sprintf("%s: %s", coalesce(p.Style.HookType, "QUESTION"), premise),
		"cta":    coalesce(p.Style.CTAType, "FOLLOW"),
		"scenes": scenes,
	}
	b, err := json.Marshal(out)
	return string(b), err
}

func (s *StaticWriter) prompts(raw string) (string, error) {
	var in staticPromptInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return "", fmt.Errorf("decode prompt input: %w", err)
	}
	type entry struct {
		Order          int    `json:"order"`
		ImagePrompt    string `json:"imagePrompt"`
		NegativePrompt string `json:"negativePrompt"`
	}
	entries := make([]entry, 0, len(in.Scenes))
	for _, sc := range in.Scenes {
		entries = append(entries, entry{
			Order:          sc.Order,
			ImagePrompt:    strings.TrimSpace(fmt.Sprintf("%s %s, cinematic lighting, vertical composition", coalesce(sc.VisualDescription, sc.Narration), in.Climate.Atmosphere)),
			NegativePrompt: "text, watermark, blurry",
		})
	}
	b, err := json.Marshal(map[string]any{"prompts": entries})
	return string(b), err
}

var _ Writer = (*StaticWriter)(nil)
