package review

import (
	"fmt"
	"strings"

	"github.com/ismoil793/mega-miyya/internal/domain"
)

// severityBadges map severities to the markers used in comment output.
var severityBadges = map[string]string{
	domain.SeverityCritical: "🔴",
	domain.SeverityHigh:     "🟠",
	domain.SeverityMedium:   "🟡",
	domain.SeverityLow:      "🟢",
}

// FormatComment renders a ReviewResult as the markdown comment posted on
// the pull request.
func FormatComment(result *domain.ReviewResult) string {
	var b strings.Builder

	b.WriteString("## 🤖 Automated Code Review\n\n")
	fmt.Fprintf(&b, "**Score: %d/100**\n\n", result.Score)

	if result.Summary != "" {
		b.WriteString(result.Summary)
		b.WriteString("\n")
	}

	if len(result.Issues) > 0 {
		b.WriteString("\n### Issues\n\n")
		writeItems(&b, result.Issues)
	}

	if len(result.Suggestions) > 0 {
		b.WriteString("\n### Suggestions\n\n")
		writeItems(&b, result.Suggestions)
	}

	if len(result.Positives) > 0 {
		b.WriteString("\n### What looks good\n\n")
		for _, positive := range result.Positives {
			fmt.Fprintf(&b, "- %s\n", positive)
		}
	}

	return b.String()
}

func writeItems(b *strings.Builder, items []domain.ReviewItem) {
	for _, item := range items {
		badge := severityBadges[item.Severity]
		if badge == "" {
			badge = "▫️"
		}

		fmt.Fprintf(b, "- %s **%s**", badge, item.Title)
		if item.File != "" {
			if item.Line > 0 {
				fmt.Fprintf(b, " (`%s:%d`)", item.File, item.Line)
			} else {
				fmt.Fprintf(b, " (`%s`)", item.File)
			}
		}
		b.WriteString("\n")

		if item.Description != "" {
			fmt.Fprintf(b, "  %s\n", item.Description)
		}
		if item.Fix != "" {
			fmt.Fprintf(b, "  Suggested fix: %s\n", item.Fix)
		}
	}
}
