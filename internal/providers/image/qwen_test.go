package image

import (
	"context"
	"errors"
	"testing"

	"shortgen/internal/domain"
	"shortgen/internal/providers/qwen"
)

type stubQwenResponse struct {
	asset *qwen.ImageAsset
	err   error
}

type stubQwenClient struct {
	hasCredentials bool
	asset          *qwen.ImageAsset
	err            error
	queue          []stubQwenResponse
	calls          int
	requests       []qwen.ImageRequest
}

func (s *stubQwenClient) GenerateImage(_ context.Context, req qwen.ImageRequest) (*qwen.ImageAsset, error) {
	s.calls++
	s.requests = append(s.requests, req)
	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		return next.asset, next.err
	}
	return s.asset, s.err
}

func (s *stubQwenClient) HasCredentials() bool { return s.hasCredentials }

func (s *stubQwenClient) Model() string { return "qwen-image-plus" }

func TestQwenGeneratorSuccess(t *testing.T) {
	generated := &qwen.ImageAsset{URL: "https://example.com/image.png", Width: 928, Height: 1664}
	client := &stubQwenClient{hasCredentials: true, asset: generated}
	gen := NewQwenGenerator(client)
	res, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "hello", ImageSize: SizePortrait16x9, NumImages: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Images) != 1 || res.Images[0].URL != generated.URL || res.Images[0].Height != 1664 {
		t.Fatalf("unexpected images: %#v", res.Images)
	}
	if client.calls != 1 {
		t.Fatalf("qwen client calls = %d, want 1", client.calls)
	}
	if client.requests[0].Size != "928*1664" {
		t.Fatalf("size = %q, want portrait", client.requests[0].Size)
	}
	if res.Seed == 0 {
		t.Fatalf("expected a deterministic seed")
	}
}

func TestQwenGeneratorRetriesWithSimplifiedPayload(t *testing.T) {
	generated := &qwen.ImageAsset{URL: "https://example.com/image.png", Width: 1024, Height: 1024}
	client := &stubQwenClient{
		hasCredentials: true,
		queue: []stubQwenResponse{
			{err: &qwen.APIError{StatusCode: 500, Code: "InternalError", Message: "The request processing has failed due to some unknown error."}},
			{asset: generated},
		},
	}
	gen := NewQwenGenerator(client)
	res, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "hello", NegativePrompt: "avoid"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.requests) != 2 {
		t.Fatalf("expected 2 qwen calls, got %d", len(client.requests))
	}
	if client.requests[0].NegativePrompt == "" {
		t.Fatalf("first request should include negative prompt")
	}
	second := client.requests[1]
	if second.NegativePrompt != "" || second.Seed != 0 {
		t.Fatalf("second request should be simplified, got %#v", second)
	}
	if res.Images[0].URL != generated.URL {
		t.Fatalf("unexpected images: %#v", res.Images)
	}
}

func TestQwenGeneratorDoesNotRetryPermanentErrors(t *testing.T) {
	client := &stubQwenClient{hasCredentials: true, err: &qwen.APIError{StatusCode: 429, Code: "Throttling", Message: "rate limited"}}
	gen := NewQwenGenerator(client)
	_, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "sample"})
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("err = %v, want ErrProviderFailure", err)
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1", client.calls)
	}
}

func TestQwenGeneratorDoesNotRetryUntypedErrors(t *testing.T) {
	client := &stubQwenClient{hasCredentials: true, err: errors.New("internal error in the prompt")}
	gen := NewQwenGenerator(client)
	if _, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "sample"}); err == nil {
		t.Fatal("expected an error")
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1", client.calls)
	}
}

func TestQwenGeneratorWithoutCredentials(t *testing.T) {
	client := &stubQwenClient{}
	gen := NewQwenGenerator(client)
	if _, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "sample"}); !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("err = %v, want ErrProviderFailure", err)
	}
	if client.calls != 0 {
		t.Fatalf("qwen client should not be invoked without credentials")
	}
}

func TestSizeFor(t *testing.T) {
	t.Parallel()
	cases := map[domain.Format]Size{
		domain.FormatShort:   SizePortrait16x9,
		domain.FormatReel:    SizePortrait16x9,
		domain.FormatLong:    SizeLandscape16x9,
		domain.FormatYouTube: SizeLandscape16x9,
	}
	for format, want := range cases {
		if got := SizeFor(format); got != want {
			t.Fatalf("SizeFor(%s) = %s, want %s", format, got, want)
		}
	}
}
