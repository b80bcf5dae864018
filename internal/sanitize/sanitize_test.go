package sanitize

import (
	"strings"
	"testing"
)

func TestSanitizeStripsPathsAndStackTrace(t *testing.T) {
	raw := "Error: cannot open /home/alice/projects/demo/config.json\n    at readConfig (/home/alice/projects/demo/src/config.ts:12:3)\n    at main"

	got := Sanitize(raw)

	if strings.Contains(got, "/home/alice") {
		t.Errorf("sanitized message still contains a path: %q", got)
	}
	if strings.Contains(got, "\n") {
		t.Errorf("sanitized message spans multiple lines: %q", got)
	}
	if strings.Contains(got, "at readConfig") {
		t.Errorf("stack trace leaked into message: %q", got)
	}
}

func TestSanitizeKnownCodes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"enoent", "ENOENT: no such file or directory, open '/tmp/x/y'", "Resource not found"},
		{"eacces", "EACCES: permission denied, mkdir '/var/lib/app'", "Permission denied"},
		{"eaddrinuse", "listen EADDRINUSE: address already in use :::3000", "Address already in use"},
		{"econnrefused", "connect ECONNREFUSED 127.0.0.1:4173", "Connection refused"},
		{"etimedout", "request ETIMEDOUT after 30000ms", "Operation timed out"},
		{"eperm", "EPERM: operation not permitted", "Operation not permitted"},
		{"phrase not found", "server returned: run not found", "Not found"},
		{"phrase timed out", "Error: upstream request timed out", "Operation timed out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.raw); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitizeStripsLeadingPrefixes(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Error: something broke badly", "something broke badly"},
		{"error:   something broke badly", "something broke badly"},
		{"Failed to start preview server", "start preview server"},
		{"failed to   start preview server", "start preview server"},
	}

	for _, tt := range tests {
		if got := Sanitize(tt.raw); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestSanitizeTruncatesLongMessages(t *testing.T) {
	raw := strings.Repeat("x", 250)

	got := Sanitize(raw)

	if len(got) > MaxLength {
		t.Errorf("len = %d, want <= %d", len(got), MaxLength)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated message missing marker: %q", got)
	}
}

func TestSanitizeFallback(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   \n\n"},
		{"too short", "err"},
		{"only a prefix", "Error: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.raw); got != Fallback {
				t.Errorf("Sanitize(%q) = %q, want fallback %q", tt.raw, got, Fallback)
			}
		})
	}
}

func TestSanitizeBarePathBecomesPlaceholder(t *testing.T) {
	// A message that is nothing but a path keeps the placeholder; it is
	// longer than the meaningful minimum so no fallback applies.
	if got := Sanitize("/usr/local/bin/node"); got != "<path>" {
		t.Errorf("Sanitize(path) = %q, want %q", got, "<path>")
	}
}
