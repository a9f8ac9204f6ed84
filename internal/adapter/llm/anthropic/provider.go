package anthropic

import (
	"context"
	"fmt"

	"github.com/ismoil793/mega-miyya/internal/usecase/review"
)

const providerName = "anthropic"

// Client abstracts the Anthropic HTTP client behaviour we need.
type Client interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (Completion, error)
}

// Completion is the raw text output of one generation call.
type Completion struct {
	Text  string
	Model string
}

// Provider implements the review Generator port.
type Provider struct {
	client Client
}

// NewProvider constructs a Provider over the supplied client.
func NewProvider(client Client) *Provider {
	return &Provider{client: client}
}

// Generate sends the prompt to Anthropic and returns the raw text.
func (p *Provider) Generate(ctx context.Context, req review.GenerateRequest) (review.GenerateResponse, error) {
	if p.client == nil {
		return review.GenerateResponse{}, fmt.Errorf("anthropic client missing")
	}

	completion, err := p.client.Complete(ctx, req.Prompt, req.MaxTokens)
	if err != nil {
		return review.GenerateResponse{}, err
	}

	return review.GenerateResponse{
		Text:     completion.Text,
		Provider: providerName,
		Model:    completion.Model,
	}, nil
}
