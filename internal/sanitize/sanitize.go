// Package sanitize converts raw backend error strings into short messages
// that are safe to show in the UI. Raw errors routinely contain filesystem
// paths and stack traces; those stay in the logs only.
package sanitize

import (
	"log"
	"regexp"
	"strings"
)

const (
	// MaxLength is the longest message Sanitize returns, marker included.
	MaxLength = 100

	// minMeaningful is the shortest result considered worth showing.
	minMeaningful = 5

	pathPlaceholder = "<path>"

	// Fallback is returned when sanitization leaves nothing meaningful.
	Fallback = "Something went wrong"
)

// pathPattern matches absolute or relative filesystem paths with at least
// two separators, including Windows drive prefixes.
var pathPattern = regexp.MustCompile(`(?:[A-Za-z]:)?(?:\.\.?)?(?:[\\/][\w.@~$+-]+){2,}[\\/]?`)

// leadingPrefix matches noise prefixes the backend tends to prepend.
var leadingPrefix = regexp.MustCompile(`(?i)^(error:\s*|failed to\s+)`)

// codeMessages maps known error codes (and their common phrasings) to
// friendly text. First match wins and replaces the whole message.
var codeMessages = []struct {
	needle   string
	friendly string
}{
	{"ENOENT", "Resource not found"},
	{"EACCES", "Permission denied"},
	{"permission denied", "Permission denied"},
	{"EPERM", "Operation not permitted"},
	{"operation not permitted", "Operation not permitted"},
	{"EADDRINUSE", "Address already in use"},
	{"address already in use", "Address already in use"},
	{"ECONNREFUSED", "Connection refused"},
	{"connection refused", "Connection refused"},
	{"ENOTFOUND", "Not found"},
	{"not found", "Not found"},
	{"ETIMEDOUT", "Operation timed out"},
	{"timed out", "Operation timed out"},
}

// Sanitize reduces a raw error string to a single short line with no
// filesystem paths. The raw string is logged for operator diagnostics
// before any transformation.
func Sanitize(raw string) string {
	if raw != "" {
		log.Printf("sanitize: raw error: %s", raw)
	}

	msg := pathPattern.ReplaceAllString(raw, pathPlaceholder)

	// Keep only the first line; everything after is stack trace.
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		msg = msg[:i]
	}
	msg = strings.TrimSpace(msg)

	msg = leadingPrefix.ReplaceAllString(msg, "")
	msg = strings.TrimSpace(msg)

	lower := strings.ToLower(msg)
	for _, cm := range codeMessages {
		if strings.Contains(lower, strings.ToLower(cm.needle)) {
			msg = cm.friendly
			break
		}
	}

	if len(msg) > MaxLength {
		msg = msg[:MaxLength-3] + "..."
	}

	if len(msg) < minMeaningful {
		return Fallback
	}
	return msg
}
