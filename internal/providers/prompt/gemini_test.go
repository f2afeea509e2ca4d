package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"shortgen/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestGeminiWriterRequestShape(t *testing.T) {
	var captured geminiRequest
	writer, err := NewGeminiWriter(GeminiOptions{
		APIKey:  "g-key",
		BaseURL: "https://gemini.test/v1beta",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.0-flash:generateContent") {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("x-goog-api-key") != "g-key" {
				t.Fatalf("missing api key header")
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			return jsonResponse(http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"{\"prompts\":"},{"text":"[]}"}]}}]}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewGeminiWriter returned error: %v", err)
	}
	out, err := writer.Generate(context.Background(), TextRequest{
		Purpose: domain.ModelRolePrompt,
		System:  "be terse",
		User:    `{"scenes":[]}`,
		Model:   "gemini-2.0-flash",
	})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if out != `{"prompts":[]}` {
		t.Fatalf("output = %q", out)
	}
	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "be terse" {
		t.Fatalf("systemInstruction = %+v", captured.SystemInstruction)
	}
	if captured.GenerationConfig == nil || captured.GenerationConfig.ResponseMimeType != "application/json" {
		t.Fatalf("generationConfig = %+v", captured.GenerationConfig)
	}
}

func TestGeminiWriterEmptyCandidates(t *testing.T) {
	writer, err := NewGeminiWriter(GeminiOptions{
		APIKey: "g-key",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"candidates":[]}`), nil
		})},
	})
	if err != nil {
		t.Fatalf("NewGeminiWriter returned error: %v", err)
	}
	if _, err := writer.Generate(context.Background(), TextRequest{User: "{}"}); !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("err = %v, want ErrProviderFailure", err)
	}
}

func TestNewGeminiWriterRequiresKey(t *testing.T) {
	if _, err := NewGeminiWriter(GeminiOptions{APIKey: "  "}); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
