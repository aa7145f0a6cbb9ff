package usecase_test

import (
	"fmt"
	"strings"
	"testing"

	"scholar-rag/internal/domain"
	"scholar-rag/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assembler(maxTokens int) *usecase.ContextAssembler {
	cfg := usecase.DefaultContextConfig()
	cfg.MaxTokens = maxTokens
	return usecase.NewContextAssembler(cfg)
}

func TestContextAssembler_GroupsByDocumentAndNumbersPassages(t *testing.T) {
	candidates := domain.RankedList{
		{ID: "p1", DocumentID: "docA", Title: "Bone Study", Year: 2021, DOI: "10.1/a", Text: "First passage.", Section: domain.SectionResults},
		{ID: "p2", DocumentID: "docB", Title: "Plant Study", Year: 2019, Text: "Second passage.", Section: domain.SectionAbstract},
		{ID: "p3", DocumentID: "docA", Title: "Bone Study", Year: 2021, DOI: "10.1/a", Text: "Third passage.", Section: domain.SectionDiscussion},
	}

	block := assembler(4000).Build(candidates)
	require.Len(t, block.Candidates, 3)

	// docA's passages are grouped together, preserving first-appearance
	// order of documents; markers follow emission order.
	assert.Equal(t, "p1", block.Candidates[0].ID)
	assert.Equal(t, "p3", block.Candidates[1].ID)
	assert.Equal(t, "p2", block.Candidates[2].ID)
	assert.Contains(t, block.Text, "[1] Section: results\nFirst passage.")
	assert.Contains(t, block.Text, "[2] Section: discussion\nThird passage.")
	assert.Contains(t, block.Text, "[3] Section: abstract\nSecond passage.")
	assert.Equal(t, 1, strings.Count(block.Text, "Bone Study (2021)"), "document header appears once")
	assert.Equal(t, 2, block.DocumentCount)
}

func TestContextAssembler_MaxTwoPassagesPerDocument(t *testing.T) {
	candidates := make(domain.RankedList, 5)
	for i := range candidates {
		candidates[i] = domain.Candidate{
			ID:         fmt.Sprintf("p%d", i),
			DocumentID: "docA",
			Title:      "Single Doc",
			Text:       fmt.Sprintf("Passage %d.", i),
		}
	}

	block := assembler(4000).Build(candidates)
	assert.Len(t, block.Candidates, 2)
}

func TestContextAssembler_BudgetInvariant(t *testing.T) {
	candidates := domain.RankedList{
		{ID: "p1", DocumentID: "docA", Title: "A", Text: strings.Repeat("alpha ", 100)},
		{ID: "p2", DocumentID: "docB", Title: "B", Text: strings.Repeat("beta ", 100)},
		{ID: "p3", DocumentID: "docC", Title: "C", Text: strings.Repeat("gamma ", 100)},
	}

	block := assembler(300).Build(candidates)
	assert.LessOrEqual(t, block.EstimatedTokens, 300)
	assert.Less(t, block.DocumentCount, 3, "budget must cut off later documents")
	assert.NotEmpty(t, block.Candidates)
}

func TestContextAssembler_FirstDocumentAlwaysIncluded(t *testing.T) {
	// A single 4000-character candidate with a 100-token budget is still
	// emitted once; the budget check applies between documents.
	oversized := domain.Candidate{
		ID:         "huge",
		DocumentID: "docA",
		Title:      "Oversized",
		Text:       strings.Repeat("word ", 800),
	}
	follower := domain.Candidate{ID: "next", DocumentID: "docB", Title: "Follower", Text: "Small passage."}

	block := assembler(100).Build(domain.RankedList{oversized, follower})
	require.Len(t, block.Candidates, 1)
	assert.Equal(t, "huge", block.Candidates[0].ID)
	assert.Contains(t, block.Text, strings.TrimSpace(oversized.Text), "first document is never truncated mid-passage")
	assert.Equal(t, 1, block.DocumentCount)
}

func TestContextAssembler_FallsBackToIDWithoutDocumentID(t *testing.T) {
	candidates := domain.RankedList{
		{ID: "p1", Text: "one"},
		{ID: "p2", Text: "two"},
	}
	block := assembler(4000).Build(candidates)
	assert.Len(t, block.Candidates, 2)
	assert.Equal(t, 2, block.DocumentCount)
}

func TestContextAssembler_EmptyInput(t *testing.T) {
	block := assembler(4000).Build(nil)
	assert.Empty(t, block.Candidates)
	assert.Empty(t, block.Text)
	assert.Zero(t, block.EstimatedTokens)
}
