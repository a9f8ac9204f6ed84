package review

import (
	"path/filepath"
	"strings"

	"github.com/ismoil793/mega-miyya/internal/domain"
)

// reviewableExtensions is the fixed allow-list of file extensions included
// in a review: scripts, markup and common programming languages. Everything
// else (lockfiles, images, binaries, generated assets) is skipped.
var reviewableExtensions = map[string]bool{
	".go":     true,
	".js":     true,
	".jsx":    true,
	".ts":     true,
	".tsx":    true,
	".py":     true,
	".rb":     true,
	".java":   true,
	".kt":     true,
	".swift":  true,
	".scala":  true,
	".c":      true,
	".h":      true,
	".cc":     true,
	".cpp":    true,
	".hpp":    true,
	".cs":     true,
	".php":    true,
	".rs":     true,
	".sh":     true,
	".bash":   true,
	".sql":    true,
	".html":   true,
	".css":    true,
	".scss":   true,
	".vue":    true,
	".svelte": true,
	".yaml":   true,
	".yml":    true,
}

// FilterReviewable keeps changed files whose extension is on the review
// allow-list, preserving the original order. Removed files are dropped
// because their content no longer exists at the head commit.
func FilterReviewable(files []domain.ChangedFile) []domain.ChangedFile {
	var reviewable []domain.ChangedFile
	for _, file := range files {
		if file.Status == "removed" {
			continue
		}
		ext := strings.ToLower(filepath.Ext(file.Path))
		if reviewableExtensions[ext] {
			reviewable = append(reviewable, file)
		}
	}
	return reviewable
}
