package domain

import "strings"

// shortTokenWhitelist keeps single-character tokens that carry meaning in
// scientific text (units, percent signs) through the length filter.
var shortTokenWhitelist = map[string]bool{
	"g": true,
	"%": true,
}

// Tokenize lower-cases the input and extracts word tokens, keeping hyphens
// inside words so terms like "multi-omics" and "x-ray" survive as single
// tokens. Tokens shorter than two characters are dropped unless whitelisted.
// Pure function: no state, no I/O.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	tokens := make([]string, 0, len(lower)/5)

	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := strings.Trim(b.String(), "-")
		b.Reset()
		if len(tok) >= 2 || shortTokenWhitelist[tok] {
			tokens = append(tokens, tok)
		}
	}

	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == '%':
			flush()
			tokens = append(tokens, "%")
		default:
			flush()
		}
	}
	flush()
	return tokens
}

// TokenSet returns the unique tokens of text.
func TokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokenize(text) {
		set[tok] = true
	}
	return set
}

// JaccardSimilarity computes |a ∩ b| / |a ∪ b| over two token sets.
// Two empty sets are considered dissimilar (0).
func JaccardSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
