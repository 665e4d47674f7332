package domain

import (
	"html"
	"regexp"
	"strings"
)

var (
	// 스크립트/스타일은 내용까지 제거
	scriptStylePattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagPattern         = regexp.MustCompile(`<[^>]*>`)
	spacePattern       = regexp.MustCompile(`\s+`)
)

// StripTags removes all markup and returns plain text; entities are decoded
// because html/template escapes the result again on output
func StripTags(input string) string {
	if input == "" {
		return ""
	}
	result := scriptStylePattern.ReplaceAllString(input, "")
	result = tagPattern.ReplaceAllString(result, " ")
	result = html.UnescapeString(result)
	return strings.TrimSpace(spacePattern.ReplaceAllString(result, " "))
}
