package anthropic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismoil793/mega-miyya/internal/usecase/review"
)

type stubClient struct {
	completion Completion
	err        error
	maxTokens  int
}

func (c *stubClient) Complete(ctx context.Context, prompt string, maxTokens int) (Completion, error) {
	c.maxTokens = maxTokens
	if c.err != nil {
		return Completion{}, c.err
	}
	return c.completion, nil
}

func TestProvider_Generate(t *testing.T) {
	client := &stubClient{completion: Completion{Text: "review text", Model: "claude-3-5-sonnet-20241022"}}
	provider := NewProvider(client)

	resp, err := provider.Generate(context.Background(), review.GenerateRequest{Prompt: "p", MaxTokens: 2048})

	require.NoError(t, err)
	assert.Equal(t, "review text", resp.Text)
	assert.Equal(t, providerName, resp.Provider)
	assert.Equal(t, "claude-3-5-sonnet-20241022", resp.Model)
	assert.Equal(t, 2048, client.maxTokens)
}

func TestProvider_Generate_Error(t *testing.T) {
	provider := NewProvider(&stubClient{err: errors.New("boom")})

	_, err := provider.Generate(context.Background(), review.GenerateRequest{Prompt: "p"})

	assert.Error(t, err)
}

func TestProvider_Generate_NilClient(t *testing.T) {
	provider := NewProvider(nil)

	_, err := provider.Generate(context.Background(), review.GenerateRequest{Prompt: "p"})

	assert.Error(t, err)
}
