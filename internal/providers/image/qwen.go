package image

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"

	"shortgen/internal/domain"
	"shortgen/internal/providers/qwen"
)

type qwenImageClient interface {
	GenerateImage(context.Context, qwen.ImageRequest) (*qwen.ImageAsset, error)
	HasCredentials() bool
	Model() string
}

// QwenGenerator adapts DashScope's Qwen image model to the Generator contract.
// A transient failure is retried once with a simplified payload.
type QwenGenerator struct {
	client qwenImageClient
}

func NewQwenGenerator(client qwenImageClient) *QwenGenerator {
	return &QwenGenerator{client: client}
}

var qwenSizes = map[Size]string{
	SizePortrait16x9:  "928*1664",
	SizeLandscape16x9: "1664*928",
	SizeSquareHD:      "1328*1328",
}

// Generate fulfils the Generator interface.
func (g *QwenGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("%w: qwen generator not configured", domain.ErrProviderFailure)
	}
	if !g.client.HasCredentials() {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, qwen.ErrMissingAPIKey)
	}
	quantity := req.NumImages
	if quantity <= 0 {
		quantity = 1
	}
	size, ok := qwenSizes[req.ImageSize]
	if !ok {
		size = qwenSizes[SizeSquareHD]
	}
	prompt := strings.TrimSpace(req.Prompt)
	seed := deterministicSeed(prompt, req.ImageSize)

	out := &GenerateResponse{Seed: int64(seed)}
	for i := 0; i < quantity; i++ {
		asset, err := g.invokeQwen(ctx, qwen.ImageRequest{
			Model:          strings.TrimSpace(req.Model),
			Prompt:         prompt,
			NegativePrompt: strings.TrimSpace(req.NegativePrompt),
			Size:           size,
			Seed:           seed + i,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
		}
		out.Images = append(out.Images, Image{URL: asset.URL, Width: asset.Width, Height: asset.Height})
	}
	return out, nil
}

func (g *QwenGenerator) String() string {
	if g == nil || g.client == nil {
		return "qwen"
	}
	return g.client.Model()
}

var _ Generator = (*QwenGenerator)(nil)

func (g *QwenGenerator) invokeQwen(ctx context.Context, req qwen.ImageRequest) (*qwen.ImageAsset, error) {
	asset, err := g.client.GenerateImage(ctx, req)
	if err == nil {
		return asset, nil
	}
	if !isTransientQwenError(err) {
		return nil, err
	}
	return g.client.GenerateImage(ctx, simplifyQwenRequest(req))
}

func deterministicSeed(values ...any) int {
	if len(values) == 0 {
		return 0
	}
	var parts []string
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	n := binary.BigEndian.Uint32(sum[:4])
	value := int(n % 2147483647)
	if value <= 0 {
		fallback := binary.BigEndian.Uint32(sum[4:8]) % 2147483647
		if fallback == 0 {
			fallback = 1
		}
		value = int(fallback)
	}
	return value
}

func simplifyQwenRequest(req qwen.ImageRequest) qwen.ImageRequest {
	simplified := req
	simplified.NegativePrompt = ""
	simplified.Seed = 0
	return simplified
}

func isTransientQwenError(err error) bool {
	var apiErr *qwen.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
