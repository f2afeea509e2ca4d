package jsoncfg

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"shortgen/internal/domain"
	"shortgen/internal/narrative"
)

func testStyle() *domain.Style {
	return &domain.Style{
		ID:              "documentary",
		Name:            "Documentary",
		HookType:        "BOLD_CLAIM",
		HookExamples:    []string{"Nobody expected this."},
		CTAType:         "FOLLOW",
		NarratorPosture: "observer",
	}
}

func testClimate() *domain.Climate {
	return &domain.Climate{
		ID:                "dread",
		Name:              "Dread",
		EmotionalState:    "THREAT",
		RevelationDynamic: "EARLY",
		NarrativePressure: "FAST",
	}
}

func TestBuildPayload(t *testing.T) {
	p, err := Build(BuildInput{
		Premise: "  The lighthouse keeper who vanished  ",
		Format:  domain.FormatShort,
		Style:   testStyle(),
		Climate: testClimate(),
		Characters: []domain.Character{
			{Name: "Ada", Description: "keeper", VisualPrompt: "old woman, raincoat", Role: "protagonist"},
			{Name: "  "},
		},
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if p.Climate.RevelationDynamic != "PROGRESSIVE" {
		t.Fatalf("RevelationDynamic = %q, want guard-rail correction", p.Climate.RevelationDynamic)
	}
	if p.Style.HookType != "WARNING" {
		t.Fatalf("HookType = %q, want forced WARNING", p.Style.HookType)
	}
	if len(p.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want exactly one", p.Warnings)
	}
	want := Constraints{
		Premise:       "The lighthouse keeper who vanished",
		Language:      DefaultLanguage,
		Format:        domain.FormatShort,
		SceneCount:    6,
		SceneDuration: 5,
		TotalDuration: 30,
	}
	if p.Constraints != want {
		t.Fatalf("Constraints = %+v, want %+v", p.Constraints, want)
	}
	if len(p.Characters) != 1 || p.Characters[0].Name != "Ada" {
		t.Fatalf("Characters = %+v", p.Characters)
	}
}

func TestBuildPayloadJSONShape(t *testing.T) {
	p, err := Build(BuildInput{Premise: "tides", Format: domain.FormatReel, Style: testStyle(), Climate: testClimate()})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(p.JSON(), &doc); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	for _, key := range []string{"style", "climate", "constraints", "characters"} {
		if _, ok := doc[key]; !ok {
			t.Fatalf("payload missing %q: %s", key, p.JSON())
		}
	}
	if len(doc) != 4 {
		t.Fatalf("payload has unexpected keys: %s", p.JSON())
	}
	if string(doc["characters"]) != "[]" {
		t.Fatalf("characters = %s, want []", doc["characters"])
	}
	if strings.Contains(string(p.JSON()), "warnings") {
		t.Fatalf("warnings must not reach the payload: %s", p.JSON())
	}
}

func TestBuildPayloadRequiredFields(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(s *domain.Style, c *domain.Climate)
		wantMsg string
	}{
		{"missing hook type", func(s *domain.Style, _ *domain.Climate) { s.HookType = "" }, "style.hookType"},
		{"blank cta type", func(s *domain.Style, _ *domain.Climate) { s.CTAType = "   " }, "style.ctaType"},
		{"missing emotional state", func(_ *domain.Style, c *domain.Climate) { c.EmotionalState = "" }, "climate.emotionalState"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			style, climate := testStyle(), testClimate()
			tc.mutate(style, climate)
			p, err := Build(BuildInput{Premise: "x", Format: domain.FormatShort, Style: style, Climate: climate})
			if p != nil {
				t.Fatalf("expected no payload, got %+v", p)
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("err = %v, want mention of %s", err, tc.wantMsg)
			}
		})
	}
}

func TestBuildPayloadOverrides(t *testing.T) {
	count, duration := 12, 4
	p, err := Build(BuildInput{
		Premise:   "x",
		Format:    domain.FormatShort,
		Style:     testStyle(),
		Climate:   testClimate(),
		Overrides: narrative.Overrides{SceneCount: &count, SceneDuration: &duration},
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !p.Constraints.IsOverridden {
		t.Fatalf("IsOverridden = false")
	}
	if p.Constraints.SceneCount != 12 || p.Constraints.SceneDuration != 4 || p.Constraints.TotalDuration != 48 {
		t.Fatalf("Constraints = %+v", p.Constraints)
	}
	// one guard-rail correction plus the scene count above 10
	if len(p.Warnings) != 2 {
		t.Fatalf("Warnings = %v", p.Warnings)
	}
}

func TestBuildPayloadConfirmedValueSurvives(t *testing.T) {
	early := "EARLY"
	p, err := Build(BuildInput{
		Premise:   "x",
		Format:    domain.FormatShort,
		Style:     testStyle(),
		Climate:   testClimate(),
		Confirmed: narrative.PartialConfig{RevelationDynamic: &early},
	})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if p.Climate.RevelationDynamic != "EARLY" {
		t.Fatalf("RevelationDynamic = %q, want confirmed EARLY", p.Climate.RevelationDynamic)
	}
}
