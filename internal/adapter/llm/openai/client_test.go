package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmhttp "github.com/ismoil793/mega-miyya/internal/adapter/llm/http"
	"github.com/ismoil793/mega-miyya/internal/adapter/llm/openai"
)

func testHTTPClient(t *testing.T, handler http.HandlerFunc) *openai.HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := openai.NewHTTPClient("test-api-key", "gpt-4o")
	client.SetBaseURL(server.URL)
	return client
}

func TestHTTPClient_Complete_Success(t *testing.T) {
	client := testHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req["model"])

		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"model": "gpt-4o",
			"choices": [
				{"index": 0, "message": {"role": "assistant", "content": "the review"}, "finish_reason": "stop"}
			],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)
	})

	completion, err := client.Complete(context.Background(), "review this", 2048)

	require.NoError(t, err)
	assert.Equal(t, "the review", completion.Text)
	assert.Equal(t, "gpt-4o", completion.Model)
}

func TestHTTPClient_Complete_AuthenticationError(t *testing.T) {
	client := testHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error", "code": "invalid_api_key"}}`)
	})

	_, err := client.Complete(context.Background(), "p", 100)

	var apiErr *llmhttp.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, llmhttp.ErrTypeAuthentication, apiErr.Type)
	assert.Equal(t, "Incorrect API key provided", apiErr.Message)
	assert.Equal(t, "openai", apiErr.Provider)
}

func TestHTTPClient_Complete_ServiceUnavailable(t *testing.T) {
	client := testHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"error": {"message": "The server is overloaded"}}`)
	})

	_, err := client.Complete(context.Background(), "p", 100)

	var apiErr *llmhttp.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, llmhttp.ErrTypeServiceUnavailable, apiErr.Type)
}

func TestHTTPClient_Complete_NoChoices(t *testing.T) {
	client := testHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "chatcmpl-1", "model": "gpt-4o", "choices": []}`)
	})

	_, err := client.Complete(context.Background(), "p", 100)

	assert.Error(t, err)
}
