package static

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismoil793/mega-miyya/internal/usecase/review"
)

func TestProvider_Generate(t *testing.T) {
	// Given
	ctx := context.Background()
	provider := NewProvider("static-model")
	req := review.GenerateRequest{Prompt: "test prompt", MaxTokens: 1024}

	// When
	resp, err := provider.Generate(ctx, req)

	// Then
	assert.NoError(t, err)
	assert.Equal(t, providerName, resp.Provider)
	assert.Equal(t, "static-model", resp.Model)

	result := review.ParseReviewResponse(resp.Text)
	require.NotNil(t, result)
	assert.Equal(t, 90, result.Score)
	assert.Len(t, result.Suggestions, 1)
	assert.Empty(t, result.Issues)
}
