package image

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// StaticGenerator returns deterministic placeholder images. It backs local
// development and tests.
type StaticGenerator struct {
	BaseURL string
}

func NewStaticGenerator() *StaticGenerator {
	return &StaticGenerator{BaseURL: "https://placehold.co"}
}

func (s *StaticGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("static generator: prompt is required")
	}
	n := req.NumImages
	if n <= 0 {
		n = 1
	}
	w, h := req.ImageSize.Dimensions()
	seed := deterministicSeed(req.Prompt, req.ImageSize)
	out := &GenerateResponse{Seed: int64(seed)}
	for i := 0; i < n; i++ {
		out.Images = append(out.Images, Image{
			URL:         fmt.Sprintf("%s/%dx%d.png?text=%s", strings.TrimRight(s.BaseURL, "/"), w, h, url.QueryEscape(fmt.Sprintf("%d-%d", seed, i))),
			Width:       w,
			Height:      h,
			ContentType: "image/png",
		})
	}
	return out, nil
}

var _ Generator = (*StaticGenerator)(nil)
