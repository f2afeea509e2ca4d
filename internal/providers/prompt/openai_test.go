package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"shortgen/internal/domain"
)

func TestOpenAIWriterSendsJSONMode(t *testing.T) {
	var captured openAIChatRequest
	var auth string
	writer, err := NewOpenAIWriter(OpenAIOptions{
		APIKey:  "sk-test",
		BaseURL: "https://openai.test/v1/",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.String() != "https://openai.test/v1/chat/completions" {
				t.Fatalf("unexpected endpoint %s", r.URL)
			}
			auth = r.Header.Get("Authorization")
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			return jsonResponse(http.StatusOK, `{"choices":[{"message":{"content":"{\"scenes\":[]}"}}]}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewOpenAIWriter returned error: %v", err)
	}
	out, err := writer.Generate(context.Background(), TextRequest{
		Purpose: domain.ModelRoleScript,
		System:  "system rules",
		User:    `{"style":{}}`,
		Model:   "gpt4o",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if out != `{"scenes":[]}` {
		t.Fatalf("output = %q", out)
	}
	if auth != "Bearer sk-test" {
		t.Fatalf("Authorization = %q", auth)
	}
	if captured.Model != "gpt-4o" {
		t.Fatalf("model = %q, want gpt-4o", captured.Model)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Fatalf("response_format = %+v", captured.ResponseFormat)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Content != `{"style":{}}` {
		t.Fatalf("messages = %+v", captured.Messages)
	}
}

func TestOpenAIWriterProviderFailure(t *testing.T) {
	writer, err := NewOpenAIWriter(OpenAIOptions{
		APIKey: "sk-test",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewOpenAIWriter returned error: %v", err)
	}
	_, err = writer.Generate(context.Background(), TextRequest{User: "{}"})
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("err = %v, want ErrProviderFailure", err)
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "slow down") {
		t.Fatalf("err = %v, want status and body snippet", err)
	}
}

func TestNormalizeOpenAIModel(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		input  string
		model  string
		reason string
	}{
		{name: "exact_default", input: "gpt-4o-mini", model: "gpt-4o-mini", reason: ""},
		{name: "exact_legacy", input: "gpt-3.5-turbo", model: "gpt-3.5-turbo", reason: ""},
		{name: "alias_short", input: "gpt-3.5", model: "gpt-3.5-turbo", reason: "alias"},
		{name: "alias_spaces", input: "GPT4o Mini", model: "gpt-4o-mini", reason: "alias"},
		{name: "unsupported", input: "davinci", model: "gpt-4o-mini", reason: "defaulted"},
		{name: "empty", input: "", model: "gpt-4o-mini", reason: ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			gotModel, gotReason := normalizeOpenAIModel(tc.input)
			if gotModel != tc.model {
				t.Fatalf("model = %q, want %q", gotModel, tc.model)
			}
			if gotReason != tc.reason {
				t.Fatalf("reason = %q, want %q", gotReason, tc.reason)
			}
		})
	}
}

func TestNewOpenAIWriterWarnsOnUnsupportedModel(t *testing.T) {
	t.Parallel()
	var capturedReason, capturedDetail string
	writer, err := NewOpenAIWriter(OpenAIOptions{
		APIKey: "dummy",
		Model:  "gpt-3-5",
		OnWarning: func(reason, detail string) {
			capturedReason = reason
			capturedDetail = detail
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if writer == nil {
		t.Fatal("writer is nil")
	}
	if capturedReason != "model_alias" {
		t.Fatalf("warning reason = %q, want %q", capturedReason, "model_alias")
	}
	if capturedDetail == "" {
		t.Fatal("expected warning detail to be set")
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}
