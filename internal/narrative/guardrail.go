package narrative

import (
	"fmt"
	"strings"
)

const (
	BaselineEmotionalState = "CURIOSITY"
	FallbackHookType       = "QUESTION"
	FallbackClosingType    = "CALL_TO_ACTION"
)

type guardRule struct {
	Revelations   []string
	Pressures     []Pressure
	ForcedHook    string
	ForcedClosing string
}

// The first entry of each list is the correction target.
var guardRails = map[string]guardRule{
	"CURIOSITY": {
		Revelations: []string{"PROGRESSIVE", "EARLY", "LATE"},
		Pressures:   []Pressure{PressureFluid, PressureFast, PressureSlow},
	},
	"THREAT": {
		Revelations: []string{"PROGRESSIVE", "HIDDEN"},
		Pressures:   []Pressure{PressureFast, PressureFluid},
		ForcedHook:  "WARNING",
	},
	"MELANCHOLY": {
		Revelations:   []string{"LATE", "PROGRESSIVE"},
		Pressures:     []Pressure{PressureSlow, PressureFluid},
		ForcedClosing: "REFLECTION",
	},
	"WONDER": {
		Revelations: []string{"PROGRESSIVE", "EARLY"},
		Pressures:   []Pressure{PressureFluid, PressureSlow},
	},
	"URGENCY": {
		Revelations:   []string{"EARLY"},
		Pressures:     []Pressure{PressureFast},
		ForcedHook:    "SHOCK_FACT",
		ForcedClosing: "CALL_TO_ACTION",
	},
	"MYSTERY": {
		Revelations:   []string{"HIDDEN", "LATE"},
		Pressures:     []Pressure{PressureSlow, PressureFluid},
		ForcedHook:    "QUESTION",
		ForcedClosing: "CLIFFHANGER",
	},
}

// NarrativeConfig is the set of fields governed by the guard rails.
type NarrativeConfig struct {
	EmotionalState    string   `json:"emotionalState"`
	RevelationDynamic string   `json:"revelationDynamic"`
	NarrativePressure Pressure `json:"narrativePressure"`
	HookType          string   `json:"hookType"`
	ClosingType       string   `json:"closingType"`
}

// PartialConfig is caller input where any field may be absent.
type PartialConfig struct {
	EmotionalState    *string   `json:"emotionalState,omitempty"`
	RevelationDynamic *string   `json:"revelationDynamic,omitempty"`
	NarrativePressure *Pressure `json:"narrativePressure,omitempty"`
	HookType          *string   `json:"hookType,omitempty"`
	ClosingType       *string   `json:"closingType,omitempty"`
}

// GuardRailResult reports the corrected configuration and every correction
// that was applied.
type GuardRailResult struct {
	Valid     bool            `json:"valid"`
	Warnings  []string        `json:"warnings"`
	Corrected NarrativeConfig `json:"corrected"`
}

// EmotionalStates lists the states known to the guard-rail table.
func EmotionalStates() []string {
	return []string{"CURIOSITY", "THREAT", "MELANCHOLY", "WONDER", "URGENCY", "MYSTERY"}
}

// AllowedFor returns the allowed revelation dynamics and pressures for an
// emotional state. Unknown states use the baseline rule.
func AllowedFor(emotionalState string) ([]string, []Pressure) {
	rule := ruleFor(normalizeToken(emotionalState))
	return append([]string(nil), rule.Revelations...), append([]Pressure(nil), rule.Pressures...)
}

// ValidateGuardRails corrects disallowed combinations instead of rejecting
// them. Corrections are reported as warnings.
func ValidateGuardRails(in PartialConfig) GuardRailResult {
	warnings := []string{}

	state := normalizeToken(deref(in.EmotionalState))
	if state == "" {
		state = BaselineEmotionalState
	} else if _, ok := guardRails[state]; !ok {
		warnings = append(warnings, fmt.Sprintf("emotional state %q is unknown, using %s", state, BaselineEmotionalState))
		state = BaselineEmotionalState
	}
	rule := guardRails[state]

	revelation := normalizeToken(deref(in.RevelationDynamic))
	switch {
	case revelation == "":
		revelation = rule.Revelations[0]
	case !contains(rule.Revelations, revelation):
		warnings = append(warnings, fmt.Sprintf("revelation dynamic %s is not allowed with %s, using %s", revelation, state, rule.Revelations[0]))
		revelation = rule.Revelations[0]
	}

	var pressure Pressure
	if in.NarrativePressure != nil {
		pressure = Pressure(normalizeToken(string(*in.NarrativePressure)))
	}
	switch {
	case pressure == "":
		pressure = rule.Pressures[0]
	case !contains(rule.Pressures, pressure):
		warnings = append(warnings, fmt.Sprintf("narrative pressure %s is not allowed with %s, using %s", pressure, state, rule.Pressures[0]))
		pressure = rule.Pressures[0]
	}

	hook := ResolveString(rule.ForcedHook, ResolveString(normalizeToken(deref(in.HookType)), FallbackHookType))
	closing := ResolveString(rule.ForcedClosing, ResolveString(normalizeToken(deref(in.ClosingType)), FallbackClosingType))

	return GuardRailResult{
		Valid:    len(warnings) == 0,
		Warnings: warnings,
		Corrected: NarrativeConfig{
			EmotionalState:    state,
			RevelationDynamic: revelation,
			NarrativePressure: pressure,
			HookType:          hook,
			ClosingType:       closing,
		},
	}
}

// ApplyConfirmed re-injects values the caller has explicitly confirmed, even
// when the table would have corrected them.
func ApplyConfirmed(corrected NarrativeConfig, confirmed PartialConfig) NarrativeConfig {
	return NarrativeConfig{
		EmotionalState:    Resolve(confirmed.EmotionalState, corrected.EmotionalState),
		RevelationDynamic: Resolve(confirmed.RevelationDynamic, corrected.RevelationDynamic),
		NarrativePressure: Resolve(confirmed.NarrativePressure, corrected.NarrativePressure),
		HookType:          Resolve(confirmed.HookType, corrected.HookType),
		ClosingType:       Resolve(confirmed.ClosingType, corrected.ClosingType),
	}
}

func ruleFor(state string) guardRule {
	if rule, ok := guardRails[state]; ok {
		return rule
	}
	return guardRails[BaselineEmotionalState]
}

func normalizeToken(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func contains[T comparable](items []T, v T) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
