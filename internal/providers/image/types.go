package image

import (
	"context"

	"shortgen/internal/domain"
)

// DefaultNegativePrompt captures undesirable artefacts we want the model to avoid.
const DefaultNegativePrompt = "low quality, blurry, distorted, washed out, incorrect anatomy, extra limbs, text artefacts, watermark"

// Size is a named output geometry understood by every generator.
type Size string

const (
	SizePortrait16x9  Size = "portrait_16_9"
	SizeLandscape16x9 Size = "landscape_16_9"
	SizeSquareHD      Size = "square_hd"
)

// SizeFor picks the output geometry of a video format.
func SizeFor(format domain.Format) Size {
	switch format {
	case domain.FormatLong, domain.FormatYouTube:
		return SizeLandscape16x9
	default:
		return SizePortrait16x9
	}
}

// Dimensions returns the nominal pixel size of s.
func (s Size) Dimensions() (int, int) {
	switch s {
	case SizePortrait16x9:
		return 576, 1024
	case SizeLandscape16x9:
		return 1024, 576
	default:
		return 1024, 1024
	}
}

// GenerateRequest is the provider-neutral image request.
type GenerateRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	ImageSize      Size   `json:"image_size"`
	NumImages      int    `json:"num_images"`
	Model          string `json:"-"`
}

// Image is one generated picture.
type Image struct {
	URL         string `json:"url"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"content_type,omitempty"`
}

// GenerateResponse carries the generated images and the seed used.
type GenerateResponse struct {
	Images []Image `json:"images"`
	Seed   int64   `json:"seed"`
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}
