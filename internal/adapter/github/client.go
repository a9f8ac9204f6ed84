package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	llmhttp "github.com/ismoil793/mega-miyya/internal/adapter/llm/http"
	"github.com/ismoil793/mega-miyya/internal/domain"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second

	// filesPerPage is the page size for the changed-file listing.
	filesPerPage = 100
)

// Client is an HTTP client for the GitHub REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new GitHub API client.
func NewClient() *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// ListPullRequestFiles returns the changed files for a pull request, in the
// order GitHub reports them, following pagination until exhausted.
func (c *Client) ListPullRequestFiles(ctx context.Context, token, owner, repo string, number int) ([]domain.ChangedFile, error) {
	var files []domain.ChangedFile

	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files?per_page=%d&page=%d",
			c.baseURL, owner, repo, number, filesPerPage, page)

		body, err := c.get(ctx, token, url)
		if err != nil {
			return nil, err
		}

		var pageFiles []pullRequestFile
		if err := json.Unmarshal(body, &pageFiles); err != nil {
			return nil, fmt.Errorf("github: parse file listing: %w", err)
		}

		for _, f := range pageFiles {
			files = append(files, domain.ChangedFile{
				Path:   f.Filename,
				Status: f.Status,
			})
		}

		if len(pageFiles) < filesPerPage {
			return files, nil
		}
	}
}

// GetFileContent fetches the content of a file at the given ref. Contents
// are returned base64-encoded by the API and decoded here.
func (c *Client) GetFileContent(ctx context.Context, token, owner, repo, path, ref string) (string, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s",
		c.baseURL, owner, repo, escapePath(path), url.QueryEscape(ref))

	body, err := c.get(ctx, token, u)
	if err != nil {
		return "", err
	}

	var content fileContent
	if err := json.Unmarshal(body, &content); err != nil {
		return "", fmt.Errorf("github: parse content response: %w", err)
	}

	if content.Encoding != "base64" {
		return content.Content, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(content.Content)
	if err != nil {
		return "", fmt.Errorf("github: decode content of %s: %w", path, err)
	}
	return string(decoded), nil
}

// CreateIssueComment posts a comment on the pull request's conversation.
func (c *Client) CreateIssueComment(ctx context.Context, token, owner, repo string, number int, body string) error {
	reqBody, err := json.Marshal(commentRequest{Body: body})
	if err != nil {
		return fmt.Errorf("github: marshal comment: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments", c.baseURL, owner, repo, number)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("github: create comment request: %w", err)
	}
	setHeaders(req, token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &llmhttp.Error{
			Type:     llmhttp.ErrTypeTimeout,
			Message:  err.Error(),
			Provider: providerName,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return MapHTTPError(resp.StatusCode, respBody)
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}

// get performs an authenticated GET and returns the response body, mapping
// non-2xx statuses to typed errors.
func (c *Client) get(ctx context.Context, token, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("github: create request: %w", err)
	}
	setHeaders(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &llmhttp.Error{
			Type:     llmhttp.ErrTypeTimeout,
			Message:  err.Error(),
			Provider: providerName,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("github: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, MapHTTPError(resp.StatusCode, body)
	}

	return body, nil
}

func setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}

// escapePath escapes each path segment while preserving separators.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
