package narrative

import (
	"fmt"
	"math"
	"strings"

	"shortgen/internal/domain"
)

// Pressure is the pacing dial that feeds the scene-count multiplier.
type Pressure string

const (
	PressureSlow  Pressure = "SLOW"
	PressureFluid Pressure = "FLUID"
	PressureFast  Pressure = "FAST"
)

var pressureMultipliers = map[Pressure]float64{
	PressureSlow:  0.7,
	PressureFluid: 1.0,
	PressureFast:  1.4,
}

// FormatConfig holds the fixed duration bounds of a target format, in seconds.
type FormatConfig struct {
	MinDuration          int `json:"minDuration"`
	MaxDuration          int `json:"maxDuration"`
	BaseSceneCount       int `json:"baseSceneCount"`
	MinSceneDuration     int `json:"minSceneDuration"`
	MaxSceneDuration     int `json:"maxSceneDuration"`
	DefaultSceneDuration int `json:"defaultSceneDuration"`
}

var formatConfigs = map[domain.Format]FormatConfig{
	domain.FormatShort:   {MinDuration: 15, MaxDuration: 60, BaseSceneCount: 4, MinSceneDuration: 3, MaxSceneDuration: 10, DefaultSceneDuration: 5},
	domain.FormatReel:    {MinDuration: 15, MaxDuration: 90, BaseSceneCount: 6, MinSceneDuration: 3, MaxSceneDuration: 12, DefaultSceneDuration: 6},
	domain.FormatLong:    {MinDuration: 60, MaxDuration: 180, BaseSceneCount: 10, MinSceneDuration: 5, MaxSceneDuration: 20, DefaultSceneDuration: 10},
	domain.FormatYouTube: {MinDuration: 180, MaxDuration: 600, BaseSceneCount: 20, MinSceneDuration: 8, MaxSceneDuration: 30, DefaultSceneDuration: 15},
}

// Formats lists the supported formats in a stable order.
var Formats = []domain.Format{domain.FormatShort, domain.FormatReel, domain.FormatLong, domain.FormatYouTube}

// Pressures lists the supported pressures in a stable order.
var Pressures = []Pressure{PressureSlow, PressureFluid, PressureFast}

// SceneParams is the calculator output.
type SceneParams struct {
	SceneCount  int `json:"sceneCount"`
	AvgDuration int `json:"avgDuration"`
	Total       int `json:"total"`
}

// ParseFormat normalises a format name. Unknown values resolve to SHORT and
// report ok=false.
func ParseFormat(raw string) (domain.Format, bool) {
	f := domain.Format(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := formatConfigs[f]; ok {
		return f, true
	}
	return domain.FormatShort, false
}

// ParsePressure normalises a pressure name. Unknown values resolve to FLUID
// and report ok=false.
func ParsePressure(raw string) (Pressure, bool) {
	p := Pressure(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := pressureMultipliers[p]; ok {
		return p, true
	}
	return PressureFluid, false
}

// ConfigFor returns the configuration of a format, falling back to SHORT.
func ConfigFor(format domain.Format) FormatConfig {
	if cfg, ok := formatConfigs[format]; ok {
		return cfg
	}
	return formatConfigs[domain.FormatShort]
}

// CalculateSceneParams maps (format, pressure) to a scene count and average
// scene duration whose product lies within the format's duration bounds.
func CalculateSceneParams(format domain.Format, pressure Pressure) SceneParams {
	cfg := ConfigFor(format)
	multiplier, ok := pressureMultipliers[pressure]
	if !ok {
		multiplier = pressureMultipliers[PressureFluid]
	}

	avg := cfg.DefaultSceneDuration
	count := int(math.Round(float64(cfg.BaseSceneCount) * multiplier))
	total := count * avg
	if total > cfg.MaxDuration {
		count = cfg.MaxDuration / avg
	} else if total < cfg.MinDuration {
		count = int(math.Ceil(float64(cfg.MinDuration) / float64(avg)))
	}
	if count < 1 {
		count = 1
	}
	return SceneParams{SceneCount: count, AvgDuration: avg, Total: count * avg}
}

// Overrides are manual scene parameters supplied by a caller.
type Overrides struct {
	SceneCount    *int `json:"sceneCount,omitempty"`
	SceneDuration *int `json:"sceneDuration,omitempty"`
}

// IsSet reports whether any override is present.
func (o Overrides) IsSet() bool {
	return o.SceneCount != nil || o.SceneDuration != nil
}

// ValidateOverrides checks manual overrides against the format's soft bounds.
// It never blocks; each violated bound yields a warning.
func ValidateOverrides(format domain.Format, o Overrides) []string {
	cfg := ConfigFor(format)
	var warnings []string
	maxScenes := int(math.Floor(float64(cfg.BaseSceneCount) * 2.5))
	if o.SceneCount != nil {
		if n := *o.SceneCount; n < 1 || n > maxScenes {
			warnings = append(warnings, fmt.Sprintf("scene count %d is outside the recommended range 1-%d for %s", n, maxScenes, format))
		}
	}
	if o.SceneDuration != nil {
		if d := *o.SceneDuration; d < cfg.MinSceneDuration || d > cfg.MaxSceneDuration {
			warnings = append(warnings, fmt.Sprintf("scene duration %ds is outside the recommended range %d-%ds for %s", d, cfg.MinSceneDuration, cfg.MaxSceneDuration, format))
		}
	}
	return warnings
}
