package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ismoil793/mega-miyya/internal/domain"
)

// InstallationResolver defines the outbound port for mapping accounts to
// installation IDs. The resolver owns its cache; the orchestrator only
// triggers resolution and invalidation.
type InstallationResolver interface {
	Resolve(ctx context.Context, owner, repo string) (int64, error)
	Invalidate(owner string)
	InvalidateAll()
}

// TokenExchanger defines the outbound port for trading an installation ID
// for a short-lived bearer token.
type TokenExchanger interface {
	Exchange(ctx context.Context, installationID int64) (string, error)
}

// CodeHost defines the outbound port for the platform API calls the
// pipeline performs with an acquired bearer token.
type CodeHost interface {
	ListPullRequestFiles(ctx context.Context, token, owner, repo string, number int) ([]domain.ChangedFile, error)
	GetFileContent(ctx context.Context, token, owner, repo, path, ref string) (string, error)
	CreateIssueComment(ctx context.Context, token, owner, repo string, number int, body string) error
}

// Generator defines the outbound port for LLM review generation.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}

// GenerateRequest describes the payload the LLM provider expects.
type GenerateRequest struct {
	Prompt    string
	MaxTokens int
}

// GenerateResponse is the raw generation output before parsing.
type GenerateResponse struct {
	Text     string
	Provider string
	Model    string
}

// Store defines the outbound port for persisting review records and
// checking account enrollment.
type Store interface {
	FindReview(ctx context.Context, owner string, number int) (domain.ReviewRecord, bool, error)
	InsertReview(ctx context.Context, rec domain.ReviewRecord) error
	UpdateReview(ctx context.Context, rec domain.ReviewRecord) error
	AccountEnabled(ctx context.Context, owner string) (bool, error)
}

// OrchestratorDeps captures the inbound dependencies for the orchestrator.
type OrchestratorDeps struct {
	Installations InstallationResolver
	Tokens        TokenExchanger
	CodeHost      CodeHost
	Generator     Generator
	Store         Store
	Logger        Logger

	// FallbackToken is a personal access token used when app credentials
	// are not configured or the app is not installed for the account.
	FallbackToken string

	// MaxFileChars is the per-file character budget in the prompt.
	MaxFileChars int

	// MaxTokens caps the generation output length.
	MaxTokens int

	// Spawn runs the asynchronous review pipeline. Defaults to a goroutine;
	// tests may substitute a synchronous runner.
	Spawn func(fn func())

	// NewID generates review record IDs. Defaults to UUIDv4.
	NewID func() string

	// Now is the time source. Defaults to time.Now.
	Now func() time.Time
}

// Orchestrator drives the review workflow for inbound pull request events:
// resolve credentials, fetch changed files, generate a review, persist the
// result and publish a summary comment.
type Orchestrator struct {
	deps OrchestratorDeps
}

// NewOrchestrator wires the orchestrator dependencies.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Spawn == nil {
		deps.Spawn = func(fn func()) { go fn() }
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MaxFileChars <= 0 {
		deps.MaxFileChars = 6000
	}
	return &Orchestrator{deps: deps}
}

// HandlePullRequestEvent reacts to an inbound pull request event. It
// creates or resets the pending record and spawns the asynchronous pipeline,
// returning before any remote work happens.
//
// Redelivery of an opened event for an existing record is a no-op;
// synchronize and reopened reset the existing record to pending and re-run
// the full pipeline, overwriting the prior result.
func (o *Orchestrator) HandlePullRequestEvent(ctx context.Context, ev domain.PullRequestEvent) error {
	switch ev.Action {
	case domain.ActionOpened, domain.ActionSynchronize, domain.ActionReopened:
	default:
		return nil
	}

	enabled, err := o.deps.Store.AccountEnabled(ctx, ev.Owner)
	if err != nil {
		return fmt.Errorf("review: check account enrollment: %w", err)
	}
	if !enabled {
		o.logInfo(ctx, "account not enabled for review, ignoring event", map[string]interface{}{
			"owner": ev.Owner,
			"repo":  ev.Repo,
		})
		return nil
	}

	rec, found, err := o.deps.Store.FindReview(ctx, ev.Owner, ev.Number)
	if err != nil {
		return fmt.Errorf("review: find record: %w", err)
	}

	if found && ev.Action == domain.ActionOpened {
		o.logInfo(ctx, "review record already exists, ignoring redelivered opened event", map[string]interface{}{
			"owner":     ev.Owner,
			"prNumber":  ev.Number,
			"reviewID":  rec.ID,
			"status":    rec.Status,
			"delivered": ev.Action,
		})
		return nil
	}

	now := o.deps.Now()
	if found {
		rec.Status = domain.StatusPending
		rec.HeadSHA = ev.HeadSHA
		rec.UpdatedAt = now
		if err := o.deps.Store.UpdateReview(ctx, rec); err != nil {
			return fmt.Errorf("review: reset record to pending: %w", err)
		}
	} else {
		rec = domain.ReviewRecord{
			ID:        o.deps.NewID(),
			Owner:     ev.Owner,
			Repo:      ev.Repo,
			PRNumber:  ev.Number,
			Status:    domain.StatusPending,
			HeadSHA:   ev.HeadSHA,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := o.deps.Store.InsertReview(ctx, rec); err != nil {
			return fmt.Errorf("review: insert pending record: %w", err)
		}
	}

	// The pipeline outlives the webhook request.
	runCtx := context.WithoutCancel(ctx)
	o.deps.Spawn(func() {
		o.ProcessReview(runCtx, ev, rec)
	})

	return nil
}

// HandleInstallationEvent reacts to installation lifecycle events. An
// uninstall invalidates the cached installation for every affected account
// so the next event triggers a fresh lookup.
func (o *Orchestrator) HandleInstallationEvent(ctx context.Context, ev domain.InstallationEvent) {
	if ev.Action != domain.ActionDeleted || o.deps.Installations == nil {
		return
	}
	for _, account := range ev.Accounts {
		o.deps.Installations.Invalidate(account)
	}
	o.logInfo(ctx, "invalidated installation cache after uninstall", map[string]interface{}{
		"accounts": ev.Accounts,
	})
}

// ProcessReview runs the review pipeline for one event against an existing
// pending record. Failures in credential resolution, file listing or
// generation mark the record failed with a zero-score result; a failed
// comment post is logged but does not revert a completed record.
func (o *Orchestrator) ProcessReview(ctx context.Context, ev domain.PullRequestEvent, rec domain.ReviewRecord) {
	token, err := o.resolveToken(ctx, ev)
	if err != nil {
		o.fail(ctx, rec, "The review could not authenticate with the code host.", err)
		return
	}

	files, err := o.deps.CodeHost.ListPullRequestFiles(ctx, token, ev.Owner, ev.Repo, ev.Number)
	if err != nil {
		o.fail(ctx, rec, "The changed files for this pull request could not be listed.", err)
		return
	}

	reviewable := FilterReviewable(files)
	if len(reviewable) == 0 {
		result := &domain.ReviewResult{
			Summary:     "No reviewable source files in this change; nothing to review.",
			Score:       100,
			Suggestions: []domain.ReviewItem{},
			Issues:      []domain.ReviewItem{},
			Positives:   []string{},
		}
		o.complete(ctx, rec, result, "", "", token, ev)
		return
	}

	contents := o.fetchContents(ctx, token, ev, reviewable)
	if len(contents) == 0 {
		result := domain.FallbackResult("None of the changed files could be fetched at the head commit; the review was skipped.")
		o.complete(ctx, rec, result, "", "", token, ev)
		return
	}

	prompt := BuildPrompt(ev.Title, ev.Description, contents, o.deps.MaxFileChars)
	resp, err := o.deps.Generator.Generate(ctx, GenerateRequest{
		Prompt:    prompt,
		MaxTokens: o.deps.MaxTokens,
	})
	if err != nil {
		o.fail(ctx, rec, "Review generation failed.", err)
		return
	}

	result := ParseReviewResponse(resp.Text)
	o.complete(ctx, rec, result, resp.Provider, resp.Model, token, ev)
}

// resolveToken acquires a bearer token for the event. The event-supplied
// installation ID is tried first because it saves a remote lookup; a failed
// direct exchange or an absent ID falls back to the full resolver path.
// When app credentials are unavailable the configured personal token is the
// final fallback.
func (o *Orchestrator) resolveToken(ctx context.Context, ev domain.PullRequestEvent) (string, error) {
	if o.deps.Tokens == nil || o.deps.Installations == nil {
		if o.deps.FallbackToken != "" {
			return o.deps.FallbackToken, nil
		}
		return "", errors.New("review: no credential source configured")
	}

	if ev.InstallationID != 0 {
		token, err := o.deps.Tokens.Exchange(ctx, ev.InstallationID)
		if err == nil {
			return token, nil
		}
		o.logWarning(ctx, "direct token exchange failed, falling back to installation lookup", map[string]interface{}{
			"installationId": ev.InstallationID,
			"owner":          ev.Owner,
			"error":          err.Error(),
		})
	}

	installationID, err := o.deps.Installations.Resolve(ctx, ev.Owner, ev.Repo)
	if err != nil {
		if o.deps.FallbackToken != "" {
			o.logWarning(ctx, "installation resolution failed, using personal token", map[string]interface{}{
				"owner": ev.Owner,
				"error": err.Error(),
			})
			return o.deps.FallbackToken, nil
		}
		return "", err
	}

	return o.deps.Tokens.Exchange(ctx, installationID)
}

// fetchContents fetches each reviewable file's content at the head commit.
// Fetches run concurrently; the returned slice preserves the original file
// list order. Per-file failures are logged and excluded, not fatal.
func (o *Orchestrator) fetchContents(ctx context.Context, token string, ev domain.PullRequestEvent, files []domain.ChangedFile) []domain.FileContent {
	fetched := make([]*domain.FileContent, len(files))

	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			content, err := o.deps.CodeHost.GetFileContent(ctx, token, ev.Owner, ev.Repo, path, ev.HeadSHA)
			if err != nil {
				o.logWarning(ctx, "skipping file whose content could not be fetched", map[string]interface{}{
					"file":  path,
					"ref":   ev.HeadSHA,
					"error": err.Error(),
				})
				return
			}
			fetched[i] = &domain.FileContent{Path: path, Content: content}
		}(i, file.Path)
	}
	wg.Wait()

	contents := make([]domain.FileContent, 0, len(files))
	for _, fc := range fetched {
		if fc != nil {
			contents = append(contents, *fc)
		}
	}
	return contents
}

// complete transitions the record to completed and publishes the summary
// comment. Comment failures are logged only; the review itself succeeded.
func (o *Orchestrator) complete(ctx context.Context, rec domain.ReviewRecord, result *domain.ReviewResult, provider, model, token string, ev domain.PullRequestEvent) {
	rec.Status = domain.StatusCompleted
	rec.Result = result
	rec.Provider = provider
	rec.Model = model
	rec.UpdatedAt = o.deps.Now()

	if err := o.deps.Store.UpdateReview(ctx, rec); err != nil {
		o.logError(ctx, "failed to persist completed review", map[string]interface{}{
			"reviewID": rec.ID,
			"error":    err.Error(),
		})
		return
	}

	o.logInfo(ctx, "review completed", map[string]interface{}{
		"reviewID": rec.ID,
		"owner":    rec.Owner,
		"prNumber": rec.PRNumber,
		"score":    result.Score,
	})

	body := FormatComment(result)
	if err := o.deps.CodeHost.CreateIssueComment(ctx, token, ev.Owner, ev.Repo, ev.Number, body); err != nil {
		o.logWarning(ctx, "failed to post review comment", map[string]interface{}{
			"reviewID": rec.ID,
			"owner":    rec.Owner,
			"prNumber": rec.PRNumber,
			"error":    err.Error(),
		})
	}
}

// fail transitions the record to failed with a zero-score placeholder
// result so terminal records always carry a result payload.
func (o *Orchestrator) fail(ctx context.Context, rec domain.ReviewRecord, summary string, cause error) {
	rec.Status = domain.StatusFailed
	rec.Result = domain.FallbackResult(summary)
	rec.UpdatedAt = o.deps.Now()

	o.logError(ctx, "review pipeline failed", map[string]interface{}{
		"reviewID": rec.ID,
		"owner":    rec.Owner,
		"prNumber": rec.PRNumber,
		"error":    cause.Error(),
	})

	if err := o.deps.Store.UpdateReview(ctx, rec); err != nil {
		o.logError(ctx, "failed to persist failed review", map[string]interface{}{
			"reviewID": rec.ID,
			"error":    err.Error(),
		})
	}
}

func (o *Orchestrator) logInfo(ctx context.Context, message string, fields map[string]interface{}) {
	if o.deps.Logger != nil {
		o.deps.Logger.LogInfo(ctx, message, fields)
	}
}

func (o *Orchestrator) logWarning(ctx context.Context, message string, fields map[string]interface{}) {
	if o.deps.Logger != nil {
		o.deps.Logger.LogWarning(ctx, message, fields)
	}
}

func (o *Orchestrator) logError(ctx context.Context, message string, fields map[string]interface{}) {
	if o.deps.Logger != nil {
		o.deps.Logger.LogError(ctx, message, fields)
	}
}
