package providers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"shortgen/internal/domain"
	"shortgen/internal/providers/image"
	"shortgen/internal/providers/prompt"
	"shortgen/internal/providers/qwen"
)

// Registry maps a provider to its text writer and image generator.
type Registry struct {
	writers    map[domain.Provider]prompt.Writer
	generators map[domain.Provider]image.Generator
}

func NewRegistry() *Registry {
	return &Registry{
		writers:    map[domain.Provider]prompt.Writer{},
		generators: map[domain.Provider]image.Generator{},
	}
}

func (r *Registry) RegisterWriter(p domain.Provider, w prompt.Writer) {
	r.writers[p] = w
}

func (r *Registry) RegisterGenerator(p domain.Provider, g image.Generator) {
	r.generators[p] = g
}

// Writer returns the text writer serving ref.
func (r *Registry) Writer(ref domain.ModelRef) (prompt.Writer, error) {
	w, ok := r.writers[ref.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: no text provider %q configured", domain.ErrUnsupportedProvider, ref.Provider)
	}
	return w, nil
}

// Generator returns the image generator serving ref.
func (r *Registry) Generator(ref domain.ModelRef) (image.Generator, error) {
	g, ok := r.generators[ref.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: no image provider %q configured", domain.ErrUnsupportedProvider, ref.Provider)
	}
	return g, nil
}

// Configured lists the providers that have at least one adapter.
func (r *Registry) Configured() []domain.Provider {
	seen := map[domain.Provider]struct{}{}
	for p := range r.writers {
		seen[p] = struct{}{}
	}
	for p := range r.generators {
		seen[p] = struct{}{}
	}
	out := make([]domain.Provider, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Keys holds the credentials and endpoints of the remote providers. Empty
// keys leave the provider unregistered.
type Keys struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIOrg     string
	GeminiAPIKey  string
	GeminiBaseURL string
	FalAPIKey     string
	FalBaseURL    string
	QwenAPIKey    string
	QwenBaseURL   string
}

// Build registers the static adapters plus every remote provider whose key is
// present.
func Build(keys Keys, httpClient *http.Client, logger *zerolog.Logger) (*Registry, error) {
	r := NewRegistry()
	r.RegisterWriter(domain.ProviderStatic, prompt.NewStaticWriter())
	r.RegisterGenerator(domain.ProviderStatic, image.NewStaticGenerator())

	if key := strings.TrimSpace(keys.OpenAIAPIKey); key != "" {
		w, err := prompt.NewOpenAIWriter(prompt.OpenAIOptions{
			APIKey:       key,
			BaseURL:      keys.OpenAIBaseURL,
			Organization: keys.OpenAIOrg,
			HTTPClient:   httpClient,
			Logger:       logger,
			OnWarning: func(reason, detail string) {
				if logger != nil {
					logger.Warn().Str("provider", "openai").Str("reason", reason).Msg(detail)
				}
			},
		})
		if err != nil {
			return nil, fmt.Errorf("openai writer: %w", err)
		}
		r.RegisterWriter(domain.ProviderOpenAI, w)
	}
	if key := strings.TrimSpace(keys.GeminiAPIKey); key != "" {
		w, err := prompt.NewGeminiWriter(prompt.GeminiOptions{
			APIKey:     key,
			BaseURL:    keys.GeminiBaseURL,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("gemini writer: %w", err)
		}
		r.RegisterWriter(domain.ProviderGemini, w)
	}
	if key := strings.TrimSpace(keys.FalAPIKey); key != "" {
		g, err := image.NewFalGenerator(image.FalOptions{
			APIKey:     key,
			BaseURL:    keys.FalBaseURL,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("fal generator: %w", err)
		}
		r.RegisterGenerator(domain.ProviderFal, g)
	}
	if key := strings.TrimSpace(keys.QwenAPIKey); key != "" {
		client, err := qwen.NewClient(qwen.Options{
			APIKey:     key,
			BaseURL:    keys.QwenBaseURL,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("qwen client: %w", err)
		}
		r.RegisterGenerator(domain.ProviderQwen, image.NewQwenGenerator(client))
	}
	return r, nil
}
