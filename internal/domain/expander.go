package domain

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxExpansions caps how many expansion terms a single query may
// accumulate, so pathological dictionaries cannot blow up the lexical query.
const DefaultMaxExpansions = 50

var accentStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTerm lower-cases, strips accents, and applies light suffix
// stemming so dictionary keys and query terms meet on one form.
// "Densities" and "densité" both normalize toward "density"-like keys.
func NormalizeTerm(term string) string {
	t := strings.ToLower(strings.TrimSpace(term))
	if stripped, _, err := transform.String(accentStripper, t); err == nil {
		t = stripped
	}
	switch {
	case strings.HasSuffix(t, "ies") && len(t) > 4:
		t = t[:len(t)-3] + "y"
	case strings.HasSuffix(t, "s") && !strings.HasSuffix(t, "ss") && len(t) > 3:
		t = t[:len(t)-1]
	}
	return t
}

// TermExpander maps query keywords to a controlled vocabulary of domain
// expansion terms. The dictionary is an externally supplied, versioned
// artifact; keys are normalized at construction and the structure is
// immutable afterwards, so it is safe for concurrent use.
type TermExpander struct {
	entries       map[string][]string
	multiWordKeys []string
	maxExpansions int
}

// NewTermExpander builds an expander from a raw term → expansions table.
// maxExpansions <= 0 selects DefaultMaxExpansions.
func NewTermExpander(table map[string][]string, maxExpansions int) *TermExpander {
	if maxExpansions <= 0 {
		maxExpansions = DefaultMaxExpansions
	}
	entries := make(map[string][]string, len(table))
	var multiWord []string
	for key, expansions := range table {
		normalized := NormalizeTerm(key)
		if normalized == "" {
			continue
		}
		entries[normalized] = append(entries[normalized], expansions...)
		if strings.Contains(normalized, " ") {
			multiWord = append(multiWord, normalized)
		}
	}
	sort.Strings(multiWord)
	return &TermExpander{
		entries:       entries,
		multiWordKeys: multiWord,
		maxExpansions: maxExpansions,
	}
}

// Len returns the number of dictionary keys.
func (e *TermExpander) Len() int { return len(e.entries) }

// Expansion is the result of matching a query against the dictionary.
type Expansion struct {
	// MatchedKeys are the normalized dictionary keys found in the query,
	// sorted for determinism.
	MatchedKeys []string
	// Terms is the deduplicated union of the matched keys' expansion terms,
	// capped at the expander's maximum, in first-match order.
	Terms []string
}

// Expand matches query tokens (and multi-word keys against the full
// lower-cased query) and returns the matched keys plus their expansion terms.
func (e *TermExpander) Expand(query string) Expansion {
	queryLower := strings.ToLower(query)

	matched := make(map[string]bool)
	var orderedKeys []string
	addKey := func(key string) {
		if !matched[key] {
			matched[key] = true
			orderedKeys = append(orderedKeys, key)
		}
	}

	for _, tok := range Tokenize(query) {
		key := NormalizeTerm(tok)
		if _, ok := e.entries[key]; ok {
			addKey(key)
		}
	}
	for _, key := range e.multiWordKeys {
		if strings.Contains(queryLower, key) {
			addKey(key)
		}
	}

	seen := make(map[string]bool)
	var terms []string
	for _, key := range orderedKeys {
		for _, term := range e.entries[key] {
			if len(terms) >= e.maxExpansions {
				break
			}
			lower := strings.ToLower(term)
			if lower == "" || seen[lower] {
				continue
			}
			seen[lower] = true
			terms = append(terms, term)
		}
	}

	keys := make([]string, len(orderedKeys))
	copy(keys, orderedKeys)
	sort.Strings(keys)

	return Expansion{MatchedKeys: keys, Terms: terms}
}
