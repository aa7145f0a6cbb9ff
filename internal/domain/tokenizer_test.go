package domain_test

import (
	"testing"

	"scholar-rag/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "lowercases and splits on punctuation",
			input:    "Bone Density, in Microgravity!",
			expected: []string{"bone", "density", "in", "microgravity"},
		},
		{
			name:     "keeps hyphenated scientific terms",
			input:    "multi-omics and X-ray analysis",
			expected: []string{"multi-omics", "and", "x-ray", "analysis"},
		},
		{
			name:     "keeps whitelisted short tokens",
			input:    "exposed to 0 g and 5% CO2",
			expected: []string{"exposed", "to", "g", "and", "%", "co2"},
		},
		{
			name:     "drops short tokens",
			input:    "a b vitamin c",
			expected: []string{"vitamin"},
		},
		{
			name:     "trims leading and trailing hyphens",
			input:    "-omics pre-",
			expected: []string{"omics", "pre"},
		},
		{
			name:     "empty input",
			input:    "",
			expected: []string{},
		},
		{
			name:     "punctuation only",
			input:    "... !!! ???",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.expected, domain.Tokenize(tt.input))
		})
	}
}

func TestTokenize_NumberPrefixDropped(t *testing.T) {
	// "0" and "5" are dropped by the length filter; the percent sign itself
	// survives as a token.
	tokens := domain.Tokenize("5%")
	assert.Equal(t, []string{"%"}, tokens)
}

func TestJaccardSimilarity(t *testing.T) {
	a := domain.TokenSet("bone density loss")
	b := domain.TokenSet("bone density gain")
	// intersection {bone, density} = 2, union {bone, density, loss, gain} = 4
	assert.InDelta(t, 0.5, domain.JaccardSimilarity(a, b), 1e-9)

	assert.Equal(t, 1.0, domain.JaccardSimilarity(a, a))
	assert.Equal(t, 0.0, domain.JaccardSimilarity(a, domain.TokenSet("")))
	assert.Equal(t, 0.0, domain.JaccardSimilarity(nil, nil))
}
