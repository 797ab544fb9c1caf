// Package redact strips identifying details from error text before it
// reaches the user: file-system paths and credential-like tokens are replaced
// with fixed markers.
package redact

import (
	"regexp"
	"strings"
)

const (
	pathMarker  = "[path]"
	tokenMarker = "[redacted]"
	// fallback replaces messages that carried nothing but redacted content.
	fallback = "an error occurred"
)

var (
	// Two or more slash-joined segments anchored at a message/word start
	// look like a POSIX path. The anchor group keeps URL paths intact:
	// inside "http://host/api/generate" the slashes are preceded by host
	// characters, not by whitespace.
	posixPathRe = regexp.MustCompile(`(^|[\s"'(\[=])((?:~|\.{1,2})?/(?:[\w.\-]+/)+[\w.\-]+/?)`)
	// Windows drive or UNC prefixes.
	windowsPathRe = regexp.MustCompile(`(?:[A-Za-z]:\\|\\\\)(?:[\w.\-]+\\?)+`)

	// Credential-like: a known prefix followed by enough opaque material.
	tokenRe = regexp.MustCompile(`(?i)\b(?:sk|pk|key|token|secret|bearer|api[-_]?key|ghp|gho|glpat)[-_:=\s]?[A-Za-z0-9\-_.]{16,}`)
)

// String sanitizes a message for display. If redaction leaves nothing of
// substance, a generic message is returned instead of an empty string.
func String(msg string) string {
	out := tokenRe.ReplaceAllString(msg, tokenMarker)
	out = windowsPathRe.ReplaceAllString(out, pathMarker)
	out = posixPathRe.ReplaceAllString(out, "${1}"+pathMarker)

	if isEmptied(out) {
		return fallback
	}
	return strings.TrimSpace(out)
}

// Error sanitizes an error for display. A nil error redacts to "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// isEmptied reports whether nothing but markers and punctuation remains.
func isEmptied(s string) bool {
	residual := strings.ReplaceAll(s, pathMarker, "")
	residual = strings.ReplaceAll(residual, tokenMarker, "")
	residual = strings.Trim(residual, " \t\r\n:;,.-\"'()")
	return residual == ""
}
