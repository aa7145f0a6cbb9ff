package domain

import "strings"

// SplitSentences splits text on sentence-terminating punctuation (.!?).
// Empty fragments and fragments of pure whitespace are dropped, so
// punctuation-only input yields no sentences.
func SplitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		b.Reset()
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	for _, r := range text {
		switch r {
		case '.', '!', '?':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return sentences
}

// TruncateSnippet cuts text to at most maxChars runes, appending an ellipsis
// when truncation occurred.
func TruncateSnippet(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + "..."
}
