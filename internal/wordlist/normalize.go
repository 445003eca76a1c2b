package wordlist

import (
	"regexp"
	"strings"
)

var (
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
	entityPattern = regexp.MustCompile(`&[a-zA-Z0-9#]+;`)
)

// CleanText strips markup from article text and collapses whitespace.
func CleanText(raw string) string {
	text := tagPattern.ReplaceAllString(raw, "")
	text = entityPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// Words splits cleaned text into at most limit words. limit <= 0 keeps all.
func Words(text string, limit int) []string {
	words := strings.Fields(text)
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}
	return words
}

// Normalize unifies the upstream article shapes into a word sequence: an
// explicit word array wins, otherwise the summary text is cleaned and split.
func Normalize(words []string, summary string, limit int) []string {
	if len(words) > 0 {
		joined := strings.Join(words, " ")
		return Words(CleanText(joined), limit)
	}
	return Words(CleanText(summary), limit)
}
