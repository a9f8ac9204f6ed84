package review

import (
	"fmt"
	"strings"

	"github.com/ismoil793/mega-miyya/internal/domain"
)

// promptInstructions tells the generator what to analyze and the exact
// JSON shape the parser expects back.
const promptInstructions = `You are a senior engineer reviewing a pull request. Analyze the changed files below for correctness, security, performance and maintainability.

Respond with a single JSON object and nothing else:
{
  "summary": "one-paragraph overview of the change and its quality",
  "score": 0-100,
  "suggestions": [{"kind": "suggestion", "title": "...", "description": "...", "severity": "low|medium|high|critical", "file": "path", "line": 0, "code": "offending code", "fix": "proposed fix"}],
  "issues": [{"kind": "issue", "title": "...", "description": "...", "severity": "low|medium|high|critical", "file": "path", "line": 0, "code": "offending code", "fix": "proposed fix"}],
  "positives": ["things done well"]
}`

// BuildPrompt assembles the generation prompt from the pull request title,
// description and the fetched file contents. Each file's content is
// truncated to maxFileChars; files keep their original listing order.
func BuildPrompt(title, description string, files []domain.FileContent, maxFileChars int) string {
	var b strings.Builder

	b.WriteString(promptInstructions)
	b.WriteString("\n\n## Pull request\n\n")
	b.WriteString("Title: ")
	b.WriteString(title)
	b.WriteString("\n")
	if description != "" {
		b.WriteString("Description:\n")
		b.WriteString(description)
		b.WriteString("\n")
	}

	b.WriteString("\n## Changed files\n")
	for _, file := range files {
		content := file.Content
		truncated := false
		if len(content) > maxFileChars {
			content = content[:maxFileChars]
			truncated = true
		}

		fmt.Fprintf(&b, "\n### %s\n```\n%s\n```\n", file.Path, content)
		if truncated {
			fmt.Fprintf(&b, "(content truncated at %d characters)\n", maxFileChars)
		}
	}

	return b.String()
}
