package usecase_test

import (
	"strings"
	"testing"

	"scholar-rag/internal/domain"
	"scholar-rag/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCitations(t *testing.T) {
	candidates := domain.RankedList{
		{
			ID:          "p1",
			DocumentID:  "docA",
			DOI:         "10.1/a",
			Title:       "Bone Study",
			Section:     domain.SectionResults,
			Year:        2021,
			Text:        strings.Repeat("Bone density decreased. ", 20),
			DenseScore:  0.87,
			RerankScore: 0.97,
			Signals: domain.SignalBreakdown{
				Similarity:   0.87,
				SectionBoost: 0.10,
				Final:        0.97,
			},
		},
		{
			ID:          "p2",
			DocumentID:  "docB",
			Text:        "Short passage.",
			RerankScore: 0.42,
		},
	}

	citations := usecase.BuildCitations(candidates, 200)
	require.Len(t, citations, 2)

	first := citations[0]
	assert.Equal(t, 1, first.Marker)
	assert.Equal(t, "p1", first.ID)
	assert.LessOrEqual(t, len([]rune(first.Snippet)), 203) // 200 chars + ellipsis
	assert.True(t, strings.HasSuffix(first.Snippet, "..."))
	assert.Contains(t, first.RelevanceReason, "similarity 0.870")
	assert.Contains(t, first.RelevanceReason, "section boost 0.100")
	assert.Contains(t, first.RelevanceReason, "final 0.970")
	assert.NotContains(t, first.RelevanceReason, "recency", "zero signals are omitted")

	second := citations[1]
	assert.Equal(t, 2, second.Marker)
	assert.Equal(t, domain.SectionUnknown, second.Section)
	assert.Equal(t, "model relevance 0.420", second.RelevanceReason)
	assert.Equal(t, "Short passage.", second.Snippet)
}

func TestEstimateGrounding(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		expected float64
	}{
		{
			name:     "two of three sentences grounded",
			answer:   "Bone loss occurs [1]. No citation here. Muscle atrophy is noted [2][3].",
			expected: 2.0 / 3.0,
		},
		{
			name:     "no markers",
			answer:   "Bone loss occurs. Muscle atrophy is noted.",
			expected: 0.0,
		},
		{
			name:     "every sentence grounded",
			answer:   "First claim [1]. Second claim [2]!",
			expected: 1.0,
		},
		{
			name:     "empty answer",
			answer:   "",
			expected: 0.0,
		},
		{
			name:     "markers but no sentences",
			answer:   "...",
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usecase.EstimateGrounding(tt.answer)
			assert.InDelta(t, tt.expected, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}
