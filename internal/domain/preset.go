package domain

// Format is the target video format.
type Format string

const (
	FormatShort   Format = "SHORT"
	FormatReel    Format = "REEL"
	FormatLong    Format = "LONG"
	FormatYouTube Format = "YOUTUBE"
)

// Style describes rhetorical and structural intent.
type Style struct {
	ID                string   `yaml:"id" json:"id"`
	Name              string   `yaml:"name" json:"name"`
	HookType          string   `yaml:"hook_type" json:"hookType" validate:"nonblank"`
	HookExamples      []string `yaml:"hook_examples" json:"hookExamples,omitempty"`
	CTAType           string   `yaml:"cta_type" json:"ctaType" validate:"nonblank"`
	CTAExamples       []string `yaml:"cta_examples" json:"ctaExamples,omitempty"`
	ClosingType       string   `yaml:"closing_type" json:"closingType,omitempty"`
	NarratorPosture   string   `yaml:"narrator_posture" json:"narratorPosture,omitempty"`
	LanguageRegister  string   `yaml:"language_register" json:"languageRegister,omitempty"`
	ScriptInstruction string   `yaml:"script_instruction" json:"scriptInstruction,omitempty"`
	VisualInstruction string   `yaml:"visual_instruction" json:"visualInstruction,omitempty"`
}

// Climate describes emotional and pacing intent.
type Climate struct {
	ID                string `yaml:"id" json:"id"`
	Name              string `yaml:"name" json:"name"`
	EmotionalState    string `yaml:"emotional_state" json:"emotionalState" validate:"nonblank"`
	RevelationDynamic string `yaml:"revelation_dynamic" json:"revelationDynamic,omitempty"`
	NarrativePressure string `yaml:"narrative_pressure" json:"narrativePressure,omitempty"`
	Atmosphere        string `yaml:"atmosphere" json:"atmosphere,omitempty"`
	ScriptInstruction string `yaml:"script_instruction" json:"scriptInstruction,omitempty"`
	VisualInstruction string `yaml:"visual_instruction" json:"visualInstruction,omitempty"`
}
