package review_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ismoil793/mega-miyya/internal/domain"
	"github.com/ismoil793/mega-miyya/internal/usecase/review"
)

func TestFormatComment_FullResult(t *testing.T) {
	result := &domain.ReviewResult{
		Summary: "Overall a careful change.",
		Score:   84,
		Issues: []domain.ReviewItem{
			{Title: "Unchecked error", Severity: domain.SeverityHigh, File: "main.go", Line: 12, Description: "The returned error is dropped.", Fix: "Handle or propagate the error."},
		},
		Suggestions: []domain.ReviewItem{
			{Title: "Extract helper", Severity: domain.SeverityLow, File: "main.go"},
		},
		Positives: []string{"Clear naming", "Good test coverage"},
	}

	body := review.FormatComment(result)

	assert.Contains(t, body, "## 🤖 Automated Code Review")
	assert.Contains(t, body, "**Score: 84/100**")
	assert.Contains(t, body, "Overall a careful change.")
	assert.Contains(t, body, "### Issues")
	assert.Contains(t, body, "🟠 **Unchecked error** (`main.go:12`)")
	assert.Contains(t, body, "Suggested fix: Handle or propagate the error.")
	assert.Contains(t, body, "### Suggestions")
	assert.Contains(t, body, "🟢 **Extract helper** (`main.go`)")
	assert.Contains(t, body, "### What looks good")
	assert.Contains(t, body, "- Clear naming")
}

func TestFormatComment_EmptySections(t *testing.T) {
	result := &domain.ReviewResult{
		Summary:     "Nothing to flag.",
		Score:       100,
		Suggestions: []domain.ReviewItem{},
		Issues:      []domain.ReviewItem{},
		Positives:   []string{},
	}

	body := review.FormatComment(result)

	assert.Contains(t, body, "**Score: 100/100**")
	assert.NotContains(t, body, "### Issues")
	assert.NotContains(t, body, "### Suggestions")
	assert.NotContains(t, body, "### What looks good")
}

func TestFormatComment_UnknownSeverityBadge(t *testing.T) {
	result := &domain.ReviewResult{
		Score: 50,
		Issues: []domain.ReviewItem{
			{Title: "Odd severity", Severity: "catastrophic"},
		},
	}

	body := review.FormatComment(result)

	assert.Contains(t, body, "▫️ **Odd severity**")
}
