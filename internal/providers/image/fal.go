package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shortgen/internal/domain"
)

const (
	defaultFalBaseURL = "https://fal.run"
	defaultFalModel   = "fal-ai/flux/schnell"
)

type FalOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// FalGenerator calls a fal.ai synchronous model endpoint.
type FalGenerator struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	logger  zerolog.Logger
}

func NewFalGenerator(opts FalOptions) (*FalGenerator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("fal api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultFalBaseURL
	}
	model := strings.Trim(strings.TrimSpace(opts.Model), "/")
	if model == "" {
		model = defaultFalModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("provider", string(domain.ProviderFal)).Logger()
	}
	return &FalGenerator{
		apiKey:  strings.TrimSpace(opts.APIKey),
		baseURL: baseURL,
		model:   model,
		client:  client,
		logger:  logger,
	}, nil
}

func (f *FalGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", domain.ErrValidation)
	}
	if req.NumImages <= 0 {
		req.NumImages = 1
	}
	if req.ImageSize == "" {
		req.ImageSize = SizePortrait16x9
	}
	model := f.model
	if m := strings.Trim(strings.TrimSpace(req.Model), "/"); m != "" {
		model = m
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode fal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/"+model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build fal request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+f.apiKey)

	started := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: fal request: %v", domain.ErrProviderFailure, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("%w: fal status %d: %s", domain.ErrProviderFailure, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode fal response: %v", domain.ErrProviderFailure, err)
	}
	if len(out.Images) == 0 || strings.TrimSpace(out.Images[0].URL) == "" {
		return nil, fmt.Errorf("%w: fal returned no images", domain.ErrProviderFailure)
	}
	f.logger.Debug().
		Str("model", model).
		Int64("seed", out.Seed).
		Dur("took", time.Since(started)).
		Msg("fal image generated")
	return &out, nil
}

var _ Generator = (*FalGenerator)(nil)
