package domain

import "time"

// Review record statuses. The persisted status is the single source of
// truth for the outcome of a review run.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Severity levels for review items.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Item kinds for review items.
const (
	KindSuggestion = "suggestion"
	KindIssue      = "issue"
)

// ReviewRecord is the persistent record for one pull request review.
// Records are unique per (Owner, PRNumber) and mutated in place as the
// asynchronous review progresses; they are never deleted.
type ReviewRecord struct {
	ID        string
	Owner     string
	Repo      string
	PRNumber  int
	Status    string
	Result    *ReviewResult
	Provider  string
	Model     string
	HeadSHA   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReviewResult is the normalized output of a review run.
type ReviewResult struct {
	Summary     string       `json:"summary"`
	Score       int          `json:"score"`
	Suggestions []ReviewItem `json:"suggestions"`
	Issues      []ReviewItem `json:"issues"`
	Positives   []string     `json:"positives"`
}

// ReviewItem is a single suggestion or issue within a ReviewResult.
type ReviewItem struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	File        string `json:"file,omitempty"`
	Line        int    `json:"line,omitempty"`
	Code        string `json:"code,omitempty"`
	Fix         string `json:"fix,omitempty"`
}

// ClampScore bounds a score into [0, 100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// FallbackResult builds the zero-score result used when a review run fails
// or its output cannot be parsed. Terminal records always carry a result
// payload so consumers never observe a completed or failed record without one.
func FallbackResult(summary string) *ReviewResult {
	return &ReviewResult{
		Summary:     summary,
		Score:       0,
		Suggestions: []ReviewItem{},
		Issues:      []ReviewItem{},
		Positives:   []string{},
	}
}
