package review_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismoil793/mega-miyya/internal/domain"
	"github.com/ismoil793/mega-miyya/internal/usecase/review"
)

// --- fakes ---

type fakeStore struct {
	mu      sync.Mutex
	records map[string]domain.ReviewRecord
	enabled map[string]bool

	inserts int
	updates int
	findErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: make(map[string]domain.ReviewRecord),
		enabled: map[string]bool{"octo": true},
	}
}

func key(owner string, number int) string {
	return fmt.Sprintf("%s#%d", owner, number)
}

func (s *fakeStore) FindReview(ctx context.Context, owner string, number int) (domain.ReviewRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return domain.ReviewRecord{}, false, s.findErr
	}
	rec, ok := s.records[key(owner, number)]
	return rec, ok, nil
}

func (s *fakeStore) InsertReview(ctx context.Context, rec domain.ReviewRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	s.records[key(rec.Owner, rec.PRNumber)] = rec
	return nil
}

func (s *fakeStore) UpdateReview(ctx context.Context, rec domain.ReviewRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	s.records[key(rec.Owner, rec.PRNumber)] = rec
	return nil
}

func (s *fakeStore) AccountEnabled(ctx context.Context, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled[owner], nil
}

func (s *fakeStore) record(t *testing.T, owner string, number int) domain.ReviewRecord {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key(owner, number)]
	require.True(t, ok, "no record for %s#%d", owner, number)
	return rec
}

type fakeResolver struct {
	id  int64
	err error

	resolveCalls   int
	invalidated    []string
	invalidatedAll bool
}

func (r *fakeResolver) Resolve(ctx context.Context, owner, repo string) (int64, error) {
	r.resolveCalls++
	if r.err != nil {
		return 0, r.err
	}
	return r.id, nil
}

func (r *fakeResolver) Invalidate(owner string) { r.invalidated = append(r.invalidated, owner) }
func (r *fakeResolver) InvalidateAll()          { r.invalidatedAll = true }

type fakeExchanger struct {
	tokens map[int64]string
	calls  []int64
}

func (e *fakeExchanger) Exchange(ctx context.Context, installationID int64) (string, error) {
	e.calls = append(e.calls, installationID)
	token, ok := e.tokens[installationID]
	if !ok {
		return "", errors.New("unknown installation")
	}
	return token, nil
}

type postedComment struct {
	token string
	body  string
}

type fakeCodeHost struct {
	mu       sync.Mutex
	files    []domain.ChangedFile
	contents map[string]string
	listErr  error
	postErr  error

	listTokens []string
	comments   []postedComment
}

func (h *fakeCodeHost) ListPullRequestFiles(ctx context.Context, token, owner, repo string, number int) ([]domain.ChangedFile, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listTokens = append(h.listTokens, token)
	if h.listErr != nil {
		return nil, h.listErr
	}
	return h.files, nil
}

func (h *fakeCodeHost) GetFileContent(ctx context.Context, token, owner, repo, path, ref string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	content, ok := h.contents[path]
	if !ok {
		return "", errors.New("not found at ref")
	}
	return content, nil
}

func (h *fakeCodeHost) CreateIssueComment(ctx context.Context, token, owner, repo string, number int, body string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.postErr != nil {
		return h.postErr
	}
	h.comments = append(h.comments, postedComment{token: token, body: body})
	return nil
}

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, req review.GenerateRequest) (review.GenerateResponse, error) {
	g.prompts = append(g.prompts, req.Prompt)
	if g.err != nil {
		return review.GenerateResponse{}, g.err
	}
	return review.GenerateResponse{Text: g.text, Provider: "fake", Model: "fake-1"}, nil
}

// --- fixtures ---

type fixture struct {
	store     *fakeStore
	resolver  *fakeResolver
	exchanger *fakeExchanger
	codeHost  *fakeCodeHost
	generator *fakeGenerator
	orch      *review.Orchestrator
}

func newFixture(mutate func(*review.OrchestratorDeps)) *fixture {
	f := &fixture{
		store:     newFakeStore(),
		resolver:  &fakeResolver{id: 42},
		exchanger: &fakeExchanger{tokens: map[int64]string{42: "ghs_resolved", 99: "ghs_direct"}},
		codeHost: &fakeCodeHost{
			files:    []domain.ChangedFile{{Path: "main.go", Status: "modified"}},
			contents: map[string]string{"main.go": "package main"},
		},
		generator: &fakeGenerator{text: `{"summary": "fine", "score": 88}`},
	}

	deps := review.OrchestratorDeps{
		Installations: f.resolver,
		Tokens:        f.exchanger,
		CodeHost:      f.codeHost,
		Generator:     f.generator,
		Store:         f.store,
		Spawn:         func(fn func()) { fn() },
		NewID:         func() string { return "rid-1" },
		Now:           func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) },
	}
	if mutate != nil {
		mutate(&deps)
	}
	f.orch = review.NewOrchestrator(deps)
	return f
}

func openedEvent() domain.PullRequestEvent {
	return domain.PullRequestEvent{
		Action:         domain.ActionOpened,
		Owner:          "octo",
		Repo:           "widgets",
		Number:         7,
		Title:          "Add widget",
		Description:    "Adds the widget.",
		HeadSHA:        "abc123",
		InstallationID: 99,
	}
}

// --- tests ---

func TestHandlePullRequestEvent_OpenedRunsFullPipeline(t *testing.T) {
	f := newFixture(nil)

	err := f.orch.HandlePullRequestEvent(context.Background(), openedEvent())
	require.NoError(t, err)

	rec := f.store.record(t, "octo", 7)
	assert.Equal(t, "rid-1", rec.ID)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	require.NotNil(t, rec.Result)
	assert.Equal(t, 88, rec.Result.Score)
	assert.Equal(t, "fake", rec.Provider)
	assert.Equal(t, "fake-1", rec.Model)

	// The event-supplied installation ID short-circuits resolution.
	assert.Equal(t, []int64{99}, f.exchanger.calls)
	assert.Equal(t, 0, f.resolver.resolveCalls)
	assert.Equal(t, []string{"ghs_direct"}, f.codeHost.listTokens)

	require.Len(t, f.codeHost.comments, 1)
	assert.Equal(t, "ghs_direct", f.codeHost.comments[0].token)
	assert.Contains(t, f.codeHost.comments[0].body, "**Score: 88/100**")
}

func TestHandlePullRequestEvent_AccountNotEnabled(t *testing.T) {
	f := newFixture(nil)
	ev := openedEvent()
	ev.Owner = "stranger"

	err := f.orch.HandlePullRequestEvent(context.Background(), ev)
	require.NoError(t, err)

	assert.Zero(t, f.store.inserts)
	assert.Empty(t, f.generator.prompts)
}

func TestHandlePullRequestEvent_IgnoredAction(t *testing.T) {
	f := newFixture(nil)
	ev := openedEvent()
	ev.Action = "closed"

	err := f.orch.HandlePullRequestEvent(context.Background(), ev)
	require.NoError(t, err)

	assert.Zero(t, f.store.inserts)
}

func TestHandlePullRequestEvent_OpenedRedeliveryIsNoOp(t *testing.T) {
	f := newFixture(nil)
	ev := openedEvent()

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), ev))
	firstUpdates := f.store.updates

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), ev))

	assert.Equal(t, 1, f.store.inserts)
	assert.Equal(t, firstUpdates, f.store.updates)
	assert.Len(t, f.generator.prompts, 1)
}

func TestHandlePullRequestEvent_SynchronizeResetsAndReruns(t *testing.T) {
	f := newFixture(nil)

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), openedEvent()))

	resync := openedEvent()
	resync.Action = domain.ActionSynchronize
	resync.HeadSHA = "def456"
	f.generator.text = `{"summary": "updated", "score": 60}`

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), resync))

	rec := f.store.record(t, "octo", 7)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, "def456", rec.HeadSHA)
	assert.Equal(t, 60, rec.Result.Score)
	assert.Equal(t, 1, f.store.inserts)
	assert.Len(t, f.generator.prompts, 2)
}

func TestProcessReview_NoReviewableFiles(t *testing.T) {
	f := newFixture(nil)
	f.codeHost.files = []domain.ChangedFile{
		{Path: "logo.png", Status: "added"},
		{Path: "gone.go", Status: "removed"},
	}

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), openedEvent()))

	rec := f.store.record(t, "octo", 7)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, 100, rec.Result.Score)
	assert.Empty(t, f.generator.prompts)
	require.Len(t, f.codeHost.comments, 1)
	assert.Contains(t, f.codeHost.comments[0].body, "nothing to review")
}

func TestProcessReview_AllFetchesFail(t *testing.T) {
	f := newFixture(nil)
	f.codeHost.contents = map[string]string{}

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), openedEvent()))

	rec := f.store.record(t, "octo", 7)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, 0, rec.Result.Score)
	assert.Contains(t, rec.Result.Summary, "could not be fetched")
	assert.Empty(t, f.generator.prompts)
}

func TestProcessReview_PartialFetchFailureTolerated(t *testing.T) {
	f := newFixture(nil)
	f.codeHost.files = []domain.ChangedFile{
		{Path: "a.go", Status: "modified"},
		{Path: "missing.go", Status: "modified"},
		{Path: "b.go", Status: "modified"},
	}
	f.codeHost.contents = map[string]string{
		"a.go": "package a",
		"b.go": "package b",
	}

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), openedEvent()))

	rec := f.store.record(t, "octo", 7)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	require.Len(t, f.generator.prompts, 1)
	prompt := f.generator.prompts[0]
	assert.Contains(t, prompt, "### a.go")
	assert.Contains(t, prompt, "### b.go")
	assert.NotContains(t, prompt, "### missing.go")
}

func TestProcessReview_ListFilesFailure(t *testing.T) {
	f := newFixture(nil)
	f.codeHost.listErr = errors.New("api down")

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), openedEvent()))

	rec := f.store.record(t, "octo", 7)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	require.NotNil(t, rec.Result)
	assert.Equal(t, 0, rec.Result.Score)
	assert.Contains(t, rec.Result.Summary, "could not be listed")
}

func TestProcessReview_GenerationFailure(t *testing.T) {
	f := newFixture(nil)
	f.generator.err = errors.New("model overloaded")

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), openedEvent()))

	rec := f.store.record(t, "octo", 7)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	assert.Equal(t, "Review generation failed.", rec.Result.Summary)
	assert.Empty(t, f.codeHost.comments)
}

func TestProcessReview_UnparseableGenerationCompletes(t *testing.T) {
	f := newFixture(nil)
	f.generator.text = "sorry, I cannot help with that"

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), openedEvent()))

	rec := f.store.record(t, "octo", 7)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, 0, rec.Result.Score)
}

func TestProcessReview_CommentFailureKeepsCompleted(t *testing.T) {
	f := newFixture(nil)
	f.codeHost.postErr = errors.New("forbidden")

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), openedEvent()))

	rec := f.store.record(t, "octo", 7)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, 88, rec.Result.Score)
}

func TestResolveToken_DirectExchangeFailureFallsBackToResolver(t *testing.T) {
	f := newFixture(nil)
	ev := openedEvent()
	ev.InstallationID = 12345 // not in the exchanger's token map

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), ev))

	rec := f.store.record(t, "octo", 7)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, 1, f.resolver.resolveCalls)
	assert.Equal(t, []int64{12345, 42}, f.exchanger.calls)
	assert.Equal(t, []string{"ghs_resolved"}, f.codeHost.listTokens)
}

func TestResolveToken_NoInstallationIDUsesResolver(t *testing.T) {
	f := newFixture(nil)
	ev := openedEvent()
	ev.InstallationID = 0

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), ev))

	assert.Equal(t, 1, f.resolver.resolveCalls)
	assert.Equal(t, []int64{42}, f.exchanger.calls)
}

func TestResolveToken_ResolverFailureUsesPersonalToken(t *testing.T) {
	f := newFixture(func(deps *review.OrchestratorDeps) {
		deps.FallbackToken = "ghp_personal"
	})
	f.resolver.err = errors.New("not installed")
	ev := openedEvent()
	ev.InstallationID = 0

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), ev))

	rec := f.store.record(t, "octo", 7)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, []string{"ghp_personal"}, f.codeHost.listTokens)
}

func TestResolveToken_ResolverFailureWithoutFallbackFails(t *testing.T) {
	f := newFixture(nil)
	f.resolver.err = errors.New("not installed")
	ev := openedEvent()
	ev.InstallationID = 0

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), ev))

	rec := f.store.record(t, "octo", 7)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	assert.Contains(t, rec.Result.Summary, "could not authenticate")
}

func TestResolveToken_NoAppCredentialsUsesPersonalToken(t *testing.T) {
	f := newFixture(func(deps *review.OrchestratorDeps) {
		deps.Installations = nil
		deps.Tokens = nil
		deps.FallbackToken = "ghp_personal"
	})

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), openedEvent()))

	rec := f.store.record(t, "octo", 7)
	assert.Equal(t, domain.StatusCompleted, rec.Status)
	assert.Equal(t, []string{"ghp_personal"}, f.codeHost.listTokens)
}

func TestResolveToken_NoCredentialSourceFails(t *testing.T) {
	f := newFixture(func(deps *review.OrchestratorDeps) {
		deps.Installations = nil
		deps.Tokens = nil
	})

	require.NoError(t, f.orch.HandlePullRequestEvent(context.Background(), openedEvent()))

	rec := f.store.record(t, "octo", 7)
	assert.Equal(t, domain.StatusFailed, rec.Status)
}

func TestHandleInstallationEvent_DeletedInvalidatesAccounts(t *testing.T) {
	f := newFixture(nil)

	f.orch.HandleInstallationEvent(context.Background(), domain.InstallationEvent{
		Action:   domain.ActionDeleted,
		Accounts: []string{"octo", "acme"},
	})

	assert.Equal(t, []string{"octo", "acme"}, f.resolver.invalidated)
}

func TestHandleInstallationEvent_OtherActionsIgnored(t *testing.T) {
	f := newFixture(nil)

	f.orch.HandleInstallationEvent(context.Background(), domain.InstallationEvent{
		Action:   "created",
		Accounts: []string{"octo"},
	})

	assert.Empty(t, f.resolver.invalidated)
}
