// Package qwen talks to the DashScope multimodal generation endpoint that
// serves the Qwen image models.
package qwen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	defaultModel   = "qwen-image-plus"
	defaultSize    = "1328*1328"
	defaultTimeout = 90 * time.Second

	generationPath = "/services/aigc/multimodal-generation/generation"

	maxResponseBytes = 1 << 20
	maxDetailBytes   = 300
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("qwen: api key is required")

// APIError is a failure reported by DashScope, either as an HTTP status or
// as an error code inside a 200 response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("qwen: %s (%s)", e.Message, e.Code)
	case e.StatusCode != 0:
		return fmt.Sprintf("qwen: status %d: %s", e.StatusCode, e.Message)
	default:
		return "qwen: " + e.Message
	}
}

// Temporary reports whether the same request may succeed when sent again.
// Rate limiting is not temporary on the scale of one retry.
func (e *APIError) Temporary() bool {
	switch e.Code {
	case "InternalError", "InternalError.Algo", "ServiceUnavailable", "RequestTimeOut":
		return true
	}
	return e.StatusCode >= http.StatusInternalServerError
}

// Options configures the client. Empty fields take the DashScope defaults.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	DefaultSize    string
	PromptExtend   bool
	Watermark      bool
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         *zerolog.Logger
}

// Client renders one image per call.
type Client struct {
	apiKey   string
	endpoint string
	model    string
	size     string
	extend   bool
	mark     bool
	http     *http.Client
	logger   zerolog.Logger
}

// ImageRequest is one text-to-image call. An empty Model or Size uses the
// client defaults; a zero Seed lets the service pick one.
type ImageRequest struct {
	Model          string
	Prompt         string
	NegativePrompt string
	Size           string
	Seed           int
}

// ImageAsset is the rendered image as hosted by DashScope.
type ImageAsset struct {
	URL       string
	Width     int
	Height    int
	RequestID string
}

type generationRequest struct {
	Model      string           `json:"model"`
	Input      generationInput  `json:"input"`
	Parameters generationParams `json:"parameters"`
}

type generationInput struct {
	Messages []generationMessage `json:"messages"`
}

type generationMessage struct {
	Role    string              `json:"role"`
	Content []generationContent `json:"content"`
}

type generationContent struct {
	Text string `json:"text,omitempty"`
}

type generationParams struct {
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Size           string `json:"size,omitempty"`
	PromptExtend   *bool  `json:"prompt_extend,omitempty"`
	Watermark      *bool  `json:"watermark,omitempty"`
	Seed           *int   `json:"seed,omitempty"`
}

type generationResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Usage struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"usage"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	c := &Client{
		apiKey:   strings.TrimSpace(opts.APIKey),
		endpoint: orDefault(strings.TrimRight(opts.BaseURL, "/"), defaultBaseURL) + generationPath,
		model:    orDefault(opts.Model, defaultModel),
		size:     orDefault(opts.DefaultSize, defaultSize),
		extend:   opts.PromptExtend,
		mark:     opts.Watermark,
		http:     httpClient,
		logger:   zerolog.Nop(),
	}
	if opts.Logger != nil {
		c.logger = opts.Logger.With().Str("provider", "qwen").Logger()
	}
	return c, nil
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// GenerateImage sends one request and returns the first image of the reply.
// Service failures are returned as *APIError.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	payload, err := c.newRequest(req)
	if err != nil {
		return nil, err
	}
	decoded, err := c.post(ctx, payload)
	if err != nil {
		return nil, err
	}

	asset := &ImageAsset{
		URL:       firstImageURL(decoded),
		Width:     decoded.Usage.Width,
		Height:    decoded.Usage.Height,
		RequestID: decoded.RequestID,
	}
	if asset.URL == "" {
		return nil, &APIError{Message: "response carried no image", RequestID: decoded.RequestID}
	}
	if asset.Width == 0 || asset.Height == 0 {
		asset.Width, asset.Height = ParseSize(payload.Parameters.Size)
	}
	c.logger.Debug().
		Str("model", payload.Model).
		Str("request_id", asset.RequestID).
		Str("size", payload.Parameters.Size).
		Msg("qwen image ready")
	return asset, nil
}

func (c *Client) newRequest(req ImageRequest) (generationRequest, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return generationRequest{}, errors.New("qwen: prompt is required")
	}
	params := generationParams{
		NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		Size:           orDefault(req.Size, c.size),
		Watermark:      &c.mark,
	}
	if c.extend {
		params.PromptExtend = &c.extend
	}
	if req.Seed > 0 {
		seed := req.Seed
		params.Seed = &seed
	}
	return generationRequest{
		Model: orDefault(req.Model, c.model),
		Input: generationInput{Messages: []generationMessage{{
			Role:    "user",
			Content: []generationContent{{Text: prompt}},
		}}},
		Parameters: params,
	}, nil
}

func (c *Client) post(ctx context.Context, payload generationRequest) (generationResponse, error) {
	var decoded generationResponse
	body, err := json.Marshal(payload)
	if err != nil {
		return decoded, fmt.Errorf("qwen: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return decoded, fmt.Errorf("qwen: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return decoded, fmt.Errorf("qwen: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return decoded, fmt.Errorf("qwen: read response: %w", err)
	}

	jsonErr := json.Unmarshal(raw, &decoded)
	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: decoded.Code, Message: decoded.Message, RequestID: decoded.RequestID}
		if jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = clip(strings.TrimSpace(string(raw)), maxDetailBytes)
		}
		return decoded, apiErr
	}
	if jsonErr != nil {
		return decoded, fmt.Errorf("qwen: decode response: %w", jsonErr)
	}
	if decoded.Code != "" {
		return decoded, &APIError{StatusCode: resp.StatusCode, Code: decoded.Code, Message: decoded.Message, RequestID: decoded.RequestID}
	}
	return decoded, nil
}

// ParseSize reads a DashScope "W*H" size string.
func ParseSize(size string) (int, int) {
	w, h, ok := strings.Cut(strings.TrimSpace(size), "*")
	if !ok {
		return 0, 0
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil {
		return 0, 0
	}
	return width, height
}

func firstImageURL(resp generationResponse) string {
	for _, choice := range resp.Output.Choices {
		for _, content := range choice.Message.Content {
			if url := strings.TrimSpace(content.Image); url != "" {
				return url
			}
		}
	}
	return ""
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

// clip keeps at most limit bytes of s on a rune boundary.
func clip(s string, limit int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
