// Package observability provides the structured logger used by the review
// pipeline and the HTTP server.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	llmhttp "github.com/ismoil793/mega-miyya/internal/adapter/llm/http"
)

// LogLevel defines the logging verbosity level.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

// LogFormat defines the output format for logs.
type LogFormat int

const (
	LogFormatHuman LogFormat = iota
	LogFormatJSON
)

// ParseLevel maps a config string to a LogLevel. Unknown values fall back
// to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarning
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// ParseFormat maps a config string to a LogFormat. Unknown values fall back
// to human-readable output.
func ParseFormat(s string) LogFormat {
	if strings.ToLower(s) == "json" {
		return LogFormatJSON
	}
	return LogFormatHuman
}

// sensitive field names get their values redacted to the last 4 characters.
var sensitiveFields = map[string]bool{
	"token":       true,
	"api_key":     true,
	"private_key": true,
	"secret":      true,
}

// StructuredLogger writes leveled, structured logs to the standard logger.
type StructuredLogger struct {
	level   LogLevel
	format  LogFormat
	redact  bool
	printer func(string)
}

// NewStructuredLogger creates a logger with the specified config.
func NewStructuredLogger(level LogLevel, format LogFormat, redact bool) *StructuredLogger {
	return &StructuredLogger{
		level:   level,
		format:  format,
		redact:  redact,
		printer: func(line string) { log.Print(line) },
	}
}

// SetPrinter overrides the output sink (for testing).
func (l *StructuredLogger) SetPrinter(printer func(string)) {
	l.printer = printer
}

// LogInfo logs an informational message with structured fields.
func (l *StructuredLogger) LogInfo(ctx context.Context, message string, fields map[string]interface{}) {
	l.write(LogLevelInfo, "info", message, fields)
}

// LogWarning logs a warning message with structured fields.
func (l *StructuredLogger) LogWarning(ctx context.Context, message string, fields map[string]interface{}) {
	l.write(LogLevelWarning, "warning", message, fields)
}

// LogError logs an error message with structured fields.
func (l *StructuredLogger) LogError(ctx context.Context, message string, fields map[string]interface{}) {
	l.write(LogLevelError, "error", message, fields)
}

func (l *StructuredLogger) write(level LogLevel, levelName, message string, fields map[string]interface{}) {
	if level < l.level {
		return
	}

	cleaned := l.cleanFields(fields)

	if l.format == LogFormatJSON {
		entry := map[string]interface{}{
			"level":     levelName,
			"timestamp": time.Now().Format(time.RFC3339),
			"message":   message,
		}
		for k, v := range cleaned {
			entry[k] = v
		}
		data, err := json.Marshal(entry)
		if err != nil {
			l.printer(fmt.Sprintf(`{"level":"%s","message":"%s"}`, levelName, message))
			return
		}
		l.printer(string(data))
		return
	}

	l.printer(fmt.Sprintf("[%s] %s%s", strings.ToUpper(levelName), message, formatFields(cleaned)))
}

// cleanFields redacts sensitive values into a fresh map so callers can
// reuse their field maps.
func (l *StructuredLogger) cleanFields(fields map[string]interface{}) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}

	cleaned := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if l.redact && sensitiveFields[strings.ToLower(k)] {
			if s, ok := v.(string); ok {
				cleaned[k] = llmhttp.RedactToken(s)
				continue
			}
		}
		cleaned[k] = v
	}
	return cleaned
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(" (")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, fields[k])
	}
	b.WriteString(")")
	return b.String()
}
