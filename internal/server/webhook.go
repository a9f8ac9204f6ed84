package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/ismoil793/mega-miyya/internal/domain"
)

const (
	signatureHeader = "X-Hub-Signature-256"
	eventHeader     = "X-GitHub-Event"
	deliveryHeader  = "X-GitHub-Delivery"

	eventPullRequest  = "pull_request"
	eventInstallation = "installation"
	eventInstallRepos = "installation_repositories"
	eventPing         = "ping"

	// maxWebhookBodySize limits the body we read to prevent DoS.
	maxWebhookBodySize = 1 << 20 // 1 MB
)

// handleWebhook receives GitHub webhook deliveries, verifies the HMAC
// signature and dispatches the event to the orchestrator. Unrecognized
// event types are acknowledged with 200 so GitHub does not mark the hook
// as failing.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	if s.deps.WebhookSecret != "" {
		signature := r.Header.Get(signatureHeader)
		if !verifySignature([]byte(s.deps.WebhookSecret), signature, body) {
			s.logWarning(ctx, "webhook signature verification failed", map[string]interface{}{
				"delivery": r.Header.Get(deliveryHeader),
			})
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	eventType := r.Header.Get(eventHeader)
	switch eventType {
	case eventPullRequest:
		s.handlePullRequest(w, r, body)
	case eventInstallation, eventInstallRepos:
		s.handleInstallation(w, r, body)
	case eventPing:
		var ping pingPayload
		_ = json.Unmarshal(body, &ping)
		s.logInfo(ctx, "webhook ping received", map[string]interface{}{
			"hookId": ping.HookID,
		})
		w.WriteHeader(http.StatusOK)
	default:
		s.logInfo(ctx, "ignoring unhandled webhook event", map[string]interface{}{
			"event": eventType,
		})
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handlePullRequest(w http.ResponseWriter, r *http.Request, body []byte) {
	ctx := r.Context()

	var payload pullRequestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	ev := domain.PullRequestEvent{
		Action:         payload.Action,
		Owner:          payload.Repository.Owner.Login,
		Repo:           payload.Repository.Name,
		Number:         payload.PullRequest.Number,
		Title:          payload.PullRequest.Title,
		Description:    payload.PullRequest.Body,
		HeadSHA:        payload.PullRequest.Head.SHA,
		InstallationID: payload.Installation.ID,
	}
	if ev.Owner == "" || ev.Repo == "" || ev.Number == 0 {
		http.Error(w, "missing repository or pull request fields", http.StatusBadRequest)
		return
	}

	s.logInfo(ctx, "pull request event received", map[string]interface{}{
		"action":   ev.Action,
		"owner":    ev.Owner,
		"repo":     ev.Repo,
		"prNumber": ev.Number,
		"delivery": r.Header.Get(deliveryHeader),
	})

	if err := s.deps.Handler.HandlePullRequestEvent(ctx, ev); err != nil {
		s.logError(ctx, "pull request event handling failed", map[string]interface{}{
			"owner":    ev.Owner,
			"prNumber": ev.Number,
			"error":    err.Error(),
		})
		http.Error(w, "event handling failed", http.StatusInternalServerError)
		return
	}

	// 202: the review pipeline runs after this response.
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleInstallation(w http.ResponseWriter, r *http.Request, body []byte) {
	ctx := r.Context()

	var payload installationEventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	ev := domain.InstallationEvent{
		Action:   payload.Action,
		Accounts: collectAccounts(payload),
	}

	s.logInfo(ctx, "installation event received", map[string]interface{}{
		"action":   ev.Action,
		"accounts": ev.Accounts,
	})

	s.deps.Handler.HandleInstallationEvent(ctx, ev)
	w.WriteHeader(http.StatusOK)
}

// collectAccounts gathers every owner the event names: the installation
// account plus the owner part of each listed repository.
func collectAccounts(payload installationEventPayload) []string {
	seen := make(map[string]bool)
	var accounts []string

	add := func(account string) {
		if account != "" && !seen[account] {
			seen[account] = true
			accounts = append(accounts, account)
		}
	}

	add(payload.Installation.Account.Login)
	for _, repo := range payload.Repositories {
		add(ownerOf(repo.FullName))
	}
	for _, repo := range payload.RepositoriesRemoved {
		add(ownerOf(repo.FullName))
	}

	return accounts
}

func ownerOf(fullName string) string {
	owner, _, found := strings.Cut(fullName, "/")
	if !found {
		return ""
	}
	return owner
}

// verifySignature validates the HMAC-SHA256 signature GitHub sends in
// X-Hub-Signature-256, using a constant time comparison.
func verifySignature(secret []byte, signature string, body []byte) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(signature, prefix) {
		return false
	}

	sigBytes, err := hex.DecodeString(signature[len(prefix):])
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(sigBytes, mac.Sum(nil))
}
