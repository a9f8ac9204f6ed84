package githubapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	llmhttp "github.com/ismoil793/mega-miyya/internal/adapter/llm/http"
)

// Exchanger trades a signed app assertion plus an installation ID for a
// short-lived bearer token scoped to that installation. Tokens are requested
// per review run and never cached; their expiry is enforced platform-side.
type Exchanger struct {
	signer     *Signer
	baseURL    string
	httpClient *http.Client
}

// NewExchanger creates an Exchanger backed by the given signer.
func NewExchanger(signer *Signer) *Exchanger {
	return &Exchanger{
		signer:     signer,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (e *Exchanger) SetBaseURL(url string) {
	e.baseURL = url
}

// Exchange signs a fresh assertion and requests an access token for the
// installation. Issuance failures propagate with the remote status and body.
func (e *Exchanger) Exchange(ctx context.Context, installationID int64) (string, error) {
	assertion, err := e.signer.Sign()
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", e.baseURL, installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("githubapp: create token request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+assertion)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", &llmhttp.Error{
			Type:     llmhttp.ErrTypeTimeout,
			Message:  err.Error(),
			Provider: providerName,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", &llmhttp.Error{
			Type:       tokenErrorType(resp.StatusCode),
			Message:    fmt.Sprintf("token issuance failed: %s", string(body)),
			StatusCode: resp.StatusCode,
			Provider:   providerName,
		}
	}

	var token struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("githubapp: parse token response: %w", err)
	}

	return token.Token, nil
}

func tokenErrorType(statusCode int) llmhttp.ErrorType {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return llmhttp.ErrTypeAuthentication
	case http.StatusNotFound:
		return llmhttp.ErrTypeNotFound
	case http.StatusUnprocessableEntity:
		return llmhttp.ErrTypeInvalidRequest
	default:
		return llmhttp.ErrTypeUnknown
	}
}
