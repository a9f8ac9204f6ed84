package static

import (
	"context"

	"github.com/ismoil793/mega-miyya/internal/usecase/review"
)

const providerName = "static"

const staticResponse = `{
  "summary": "This is a static review from a mock provider.",
  "score": 90,
  "suggestions": [
    {
      "title": "Static suggestion",
      "description": "Consider this static suggestion.",
      "severity": "low",
      "file": "internal/adapter/llm/static/provider.go",
      "line": 1
    }
  ],
  "issues": [],
  "positives": ["The change is well scoped."]
}`

// Provider implements the review Generator port with a canned payload.
type Provider struct {
	model string
}

// NewProvider constructs a static Provider.
func NewProvider(model string) *Provider {
	return &Provider{
		model: model,
	}
}

// Generate returns a static, pre-determined review payload.
func (p *Provider) Generate(ctx context.Context, req review.GenerateRequest) (review.GenerateResponse, error) {
	return review.GenerateResponse{
		Text:     staticResponse,
		Provider: providerName,
		Model:    p.model,
	}, nil
}
