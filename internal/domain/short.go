package domain

import (
	"encoding/json"
	"time"
)

// ShortStatus enumerates the generation job lifecycle.
type ShortStatus string

const (
	ShortStatusDraft      ShortStatus = "DRAFT"
	ShortStatusScripting  ShortStatus = "SCRIPTING"
	ShortStatusPrompting  ShortStatus = "PROMPTING"
	ShortStatusGenerating ShortStatus = "GENERATING"
	ShortStatusCompleted  ShortStatus = "COMPLETED"
	ShortStatusFailed     ShortStatus = "FAILED"
)

// Running reports whether a stage is currently active for the status.
func (s ShortStatus) Running() bool {
	switch s {
	case ShortStatusScripting, ShortStatusPrompting, ShortStatusGenerating:
		return true
	default:
		return false
	}
}

// Triggerable reports whether a new run may start from the status.
func (s ShortStatus) Triggerable() bool {
	return s == ShortStatusDraft || s == ShortStatusFailed
}

// TriggerableStatuses lists the statuses a run may be started from.
var TriggerableStatuses = []ShortStatus{ShortStatusDraft, ShortStatusFailed}

// Short is a generation job: one request to produce a narrated, illustrated
// scene sequence.
type Short struct {
	ID             string
	UserID         string
	Theme          string
	Language       string
	Format         Format
	TargetDuration int
	StyleID        string
	ClimateID      string
	Model          *ModelRef

	// Manual scene overrides requested by the user.
	SceneCount    *int
	SceneDuration *int
	// Confirmed narrative values survive guard-rail correction.
	Confirmed ConfirmedNarrative

	Status       ShortStatus
	Progress     int
	Title        string
	Hook         string
	CTA          string
	Script       json.RawMessage
	CreditsUsed  int
	ErrorMessage string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time

	Scenes []Scene
}

// ConfirmedNarrative holds the narrative values a user explicitly accepted.
// Empty fields are not confirmed.
type ConfirmedNarrative struct {
	EmotionalState    string `json:"emotionalState,omitempty"`
	RevelationDynamic string `json:"revelationDynamic,omitempty"`
	NarrativePressure string `json:"narrativePressure,omitempty"`
	HookType          string `json:"hookType,omitempty"`
	ClosingType       string `json:"closingType,omitempty"`
}

func (c ConfirmedNarrative) IsZero() bool {
	return c == ConfirmedNarrative{}
}

// Scene is one ordered unit of narration, visual prompt and generated image.
type Scene struct {
	ID             string
	ShortID        string
	Order          int
	Duration       int
	Narration      string
	VisualDesc     string
	Goal           string
	ImagePrompt    string
	NegativePrompt string
	MediaURL       string
	Width          int
	Height         int
	IsGenerated    bool
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Character is a recurring figure attached to a short's roster.
type Character struct {
	ID           string
	Name         string
	Description  string
	VisualPrompt string
	Role         string
}

// ScriptResult is what the script stage persists on the short.
type ScriptResult struct {
	Title  string
	Hook   string
	CTA    string
	Raw    json.RawMessage
	Scenes []Scene
}

// StatusUpdate carries a partial update of a short's run bookkeeping. Nil
// fields are left untouched.
type StatusUpdate struct {
	Status       ShortStatus
	Progress     *int
	ErrorMessage *string
	CreditsUsed  *int
	CompletedAt  *time.Time
}

// SceneMedia is the outcome of image generation for one scene.
type SceneMedia struct {
	MediaURL     string
	Width        int
	Height       int
	IsGenerated  bool
	ErrorMessage string
}
