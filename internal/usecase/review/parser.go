package review

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/ismoil793/mega-miyya/internal/domain"
)

// parseFallbackSummary explains a total parse failure to record consumers.
const parseFallbackSummary = "The generated review could not be parsed into a structured result."

var (
	// reasoningRegex strips chain-of-thought delimiters some models emit
	// before their actual answer.
	reasoningRegex = regexp.MustCompile(`(?s)<think(?:ing)?>.*?</think(?:ing)?>`)

	// fenceRegex extracts content from markdown code fences. Greedy from the
	// first opening fence to the last closing fence so that code examples
	// nested inside the JSON survive extraction.
	fenceRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*)```")
)

// rawResult mirrors the generator's JSON output. Every field is optional;
// generator output is untrusted and defaulted per field rather than cast.
type rawResult struct {
	Summary     string    `json:"summary"`
	Score       *float64  `json:"score"`
	Suggestions []rawItem `json:"suggestions"`
	Issues      []rawItem `json:"issues"`
	Positives   []string  `json:"positives"`
}

type rawItem struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	Code        string `json:"code"`
	Fix         string `json:"fix"`
}

// ParseReviewResponse normalizes raw generated text into a ReviewResult.
// It strips reasoning delimiters and code fences, parses the remainder as
// JSON, and falls back to the first balanced brace-delimited substring when
// the cleaned text still is not valid JSON. It never returns an error: a
// completely unparseable response yields the zero-score fallback result.
func ParseReviewResponse(text string) *domain.ReviewResult {
	cleaned := strings.TrimSpace(reasoningRegex.ReplaceAllString(text, ""))
	if matches := fenceRegex.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = strings.TrimSpace(matches[1])
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		candidate, ok := firstBalancedObject(cleaned)
		if !ok {
			return domain.FallbackResult(parseFallbackSummary)
		}
		if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
			return domain.FallbackResult(parseFallbackSummary)
		}
	}

	return normalizeResult(raw)
}

// normalizeResult applies the defaulting rules: clamped score, empty arrays
// instead of nil, and generated placeholder IDs combining kind and index.
func normalizeResult(raw rawResult) *domain.ReviewResult {
	score := 0
	if raw.Score != nil {
		score = domain.ClampScore(int(math.Round(*raw.Score)))
	}

	positives := raw.Positives
	if positives == nil {
		positives = []string{}
	}

	return &domain.ReviewResult{
		Summary:     raw.Summary,
		Score:       score,
		Suggestions: normalizeItems(raw.Suggestions, domain.KindSuggestion),
		Issues:      normalizeItems(raw.Issues, domain.KindIssue),
		Positives:   positives,
	}
}

func normalizeItems(items []rawItem, defaultKind string) []domain.ReviewItem {
	normalized := make([]domain.ReviewItem, 0, len(items))
	for i, item := range items {
		kind := item.Kind
		if kind == "" {
			kind = defaultKind
		}
		id := item.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", kind, i+1)
		}
		normalized = append(normalized, domain.ReviewItem{
			ID:          id,
			Kind:        kind,
			Title:       item.Title,
			Description: item.Description,
			Severity:    item.Severity,
			File:        item.File,
			Line:        item.Line,
			Code:        item.Code,
			Fix:         item.Fix,
		})
	}
	return normalized
}

// firstBalancedObject returns the first balanced brace-delimited substring,
// tracking string literals and escapes so braces inside JSON strings do not
// affect the depth count.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
