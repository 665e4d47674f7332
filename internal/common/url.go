package common

import (
	"regexp"
	"strings"
)

// Schemes allowed in rendered src/href attributes
var allowedURLSchemes = []string{"http", "https"}

var schemePattern = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.\-]*):`)

// controlChars are stripped before scheme detection ("java\tscript:" 우회 방지)
var controlChars = regexp.MustCompile(`[\x00-\x20\x7f]`)

// SanitizeURL returns the URL if it is relative or uses an allowed scheme, "" otherwise
func SanitizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	probe := controlChars.ReplaceAllString(trimmed, "")
	m := schemePattern.FindStringSubmatch(probe)
	if m == nil {
		// relative or protocol-relative
		return trimmed
	}
	scheme := strings.ToLower(m[1])
	for _, s := range allowedURLSchemes {
		if scheme == s {
			return trimmed
		}
	}
	return ""
}
