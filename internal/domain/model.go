package domain

import (
	"fmt"
	"strings"
)

// Provider identifies a generative AI vendor.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderFal    Provider = "fal"
	ProviderQwen   Provider = "qwen"
	ProviderStatic Provider = "static"
)

var knownProviders = map[Provider]struct{}{
	ProviderOpenAI: {},
	ProviderGemini: {},
	ProviderFal:    {},
	ProviderQwen:   {},
	ProviderStatic: {},
}

// ModelRef names a model at a specific provider. It is parsed once when the
// configuration is read and passed around in structured form afterwards.
type ModelRef struct {
	Provider Provider
	ModelID  string
}

// ParseModelRef parses "provider:model". A bare provider name yields an empty
// ModelID so the provider default applies.
func ParseModelRef(raw string) (ModelRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ModelRef{}, fmt.Errorf("%w: empty model reference", ErrValidation)
	}
	providerPart, modelPart, _ := strings.Cut(raw, ":")
	provider := Provider(strings.ToLower(strings.TrimSpace(providerPart)))
	if _, ok := knownProviders[provider]; !ok {
		return ModelRef{}, fmt.Errorf("%w: %q", ErrUnsupportedProvider, providerPart)
	}
	return ModelRef{Provider: provider, ModelID: strings.TrimSpace(modelPart)}, nil
}

// IsZero reports whether the reference is unset.
func (m ModelRef) IsZero() bool {
	return m.Provider == ""
}

func (m ModelRef) String() string {
	if m.ModelID == "" {
		return string(m.Provider)
	}
	return string(m.Provider) + ":" + m.ModelID
}

// ModelRole is the pipeline step a model serves.
type ModelRole string

const (
	ModelRoleScript ModelRole = "script"
	ModelRolePrompt ModelRole = "prompt"
	ModelRoleImage  ModelRole = "image"
)

// ModelSet is the resolved model for each role.
type ModelSet struct {
	Script ModelRef
	Prompt ModelRef
	Image  ModelRef
}
