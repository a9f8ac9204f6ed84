package review

import "context"

// Logger provides structured logging for the review use case.
// This interface allows the orchestrator to log progress and failures
// with structured fields for better observability in production.
type Logger interface {
	// LogInfo logs an informational message with structured fields.
	LogInfo(ctx context.Context, message string, fields map[string]interface{})

	// LogWarning logs a warning message with structured fields.
	// Fields typically include error details, IDs, and context.
	LogWarning(ctx context.Context, message string, fields map[string]interface{})

	// LogError logs an error message with structured fields.
	LogError(ctx context.Context, message string, fields map[string]interface{})
}
