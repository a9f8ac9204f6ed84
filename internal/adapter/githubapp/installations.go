package githubapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	llmhttp "github.com/ismoil793/mega-miyya/internal/adapter/llm/http"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second

	// cacheTTL is how long a resolved installation ID is trusted before the
	// next resolve performs a fresh remote lookup. Installations are stable
	// platform-side, so a day balances freshness against a lookup per event.
	cacheTTL = 24 * time.Hour

	providerName = "github-app"
)

// ErrNotInstalled reports that the app is not installed for the requested
// account. Only a structured HTTP 404 from the installation lookup maps to
// this error; transient failures propagate as API errors instead.
var ErrNotInstalled = errors.New("githubapp: app not installed for account")

// Resolver maps account owners to installation IDs with time-bounded
// caching. Entries are keyed by owner only: the platform assigns one
// installation per account covering all its repositories, so caching per
// repository would multiply lookups without benefit.
//
// The Resolver exclusively owns its cache; consumers interact with it only
// through Resolve, Invalidate, InvalidateAll and Stats.
type Resolver struct {
	signer     *Signer
	baseURL    string
	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	installationID int64
	expiresAt      time.Time
}

// CacheEntry describes one cached installation for operational visibility.
type CacheEntry struct {
	Owner          string    `json:"owner"`
	InstallationID int64     `json:"installationId"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// CacheStats summarizes the resolver cache.
type CacheStats struct {
	Size    int          `json:"size"`
	Entries []CacheEntry `json:"entries"`
}

// NewResolver creates a Resolver backed by the given signer.
func NewResolver(signer *Signer) *Resolver {
	return &Resolver{
		signer:     signer,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
		entries:    make(map[string]cacheEntry),
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (r *Resolver) SetBaseURL(url string) {
	r.baseURL = url
}

// SetClock overrides the time source (for testing).
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

// Resolve returns the installation ID for the account that owns repo.
// A non-expired cache entry is returned without a network call; otherwise a
// remote lookup scoped to the given repository runs with a fresh assertion
// and the result is cached for 24 hours. A missing installation yields
// ErrNotInstalled and is never cached as a negative result.
func (r *Resolver) Resolve(ctx context.Context, owner, repo string) (int64, error) {
	r.mu.Lock()
	entry, ok := r.entries[owner]
	if ok && r.now().Before(entry.expiresAt) {
		r.mu.Unlock()
		return entry.installationID, nil
	}
	r.mu.Unlock()

	id, err := r.lookup(ctx, owner, repo)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	r.entries[owner] = cacheEntry{
		installationID: id,
		expiresAt:      r.now().Add(cacheTTL),
	}
	r.mu.Unlock()

	return id, nil
}

// Invalidate removes any cached entry for the account. Idempotent.
func (r *Resolver) Invalidate(owner string) {
	r.mu.Lock()
	delete(r.entries, owner)
	r.mu.Unlock()
}

// InvalidateAll clears the entire cache. Idempotent.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.entries = make(map[string]cacheEntry)
	r.mu.Unlock()
}

// Stats returns the current entry count and per-entry expiry, sorted by
// owner for stable output. Read-only.
func (r *Resolver) Stats() CacheStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := CacheStats{
		Size:    len(r.entries),
		Entries: make([]CacheEntry, 0, len(r.entries)),
	}
	for owner, entry := range r.entries {
		stats.Entries = append(stats.Entries, CacheEntry{
			Owner:          owner,
			InstallationID: entry.installationID,
			ExpiresAt:      entry.expiresAt,
		})
	}
	sort.Slice(stats.Entries, func(i, j int) bool {
		return stats.Entries[i].Owner < stats.Entries[j].Owner
	})
	return stats
}

// lookup fetches the installation for owner/repo using a fresh assertion.
func (r *Resolver) lookup(ctx context.Context, owner, repo string) (int64, error) {
	assertion, err := r.signer.Sign()
	if err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/installation", r.baseURL, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("githubapp: create lookup request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+assertion)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, &llmhttp.Error{
			Type:     llmhttp.ErrTypeTimeout,
			Message:  err.Error(),
			Provider: providerName,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("%w: %s", ErrNotInstalled, owner)
	}

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return 0, &llmhttp.Error{
			Type:       llmhttp.ErrTypeUnknown,
			Message:    fmt.Sprintf("installation lookup failed: %s", string(body)),
			StatusCode: resp.StatusCode,
			Provider:   providerName,
		}
	}

	var installation struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&installation); err != nil {
		return 0, fmt.Errorf("githubapp: parse installation response: %w", err)
	}

	return installation.ID, nil
}
