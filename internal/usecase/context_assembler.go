package usecase

import (
	"fmt"
	"strings"

	"scholar-rag/internal/domain"
)

// ContextBlock is the assembled synthesis input: the emitted passages in
// citation order (the Nth passage corresponds to marker [N]), the rendered
// context text and a coarse token estimate that never exceeds the budget.
type ContextBlock struct {
	Candidates      domain.RankedList
	Text            string
	EstimatedTokens int
	DocumentCount   int
}

// ContextAssembler groups final candidates by document, enforces the token
// budget and serializes them into the structured context block fed to the
// LLM. Exact tokenization belongs to the model boundary; the assembler uses
// the ~4 characters per token estimate.
type ContextAssembler struct {
	cfg ContextConfig
}

func NewContextAssembler(cfg ContextConfig) *ContextAssembler {
	return &ContextAssembler{cfg: cfg}
}

// estimateTokens is the coarse length/4 proxy used for budgeting.
func estimateTokens(text string) int {
	return len(text) / 4
}

// Build groups candidates by DocumentID (falling back to ID), preserving the
// rerank order of first appearance. Each document emits a header once, then
// up to MaxPassagesPerDoc passages. The budget check applies between
// documents: once the next document would exceed MaxTokens assembly stops,
// but the first document is always included so the context is never empty
// when candidates exist.
func (a *ContextAssembler) Build(candidates domain.RankedList) ContextBlock {
	if len(candidates) == 0 {
		return ContextBlock{}
	}

	type docGroup struct {
		key        string
		candidates domain.RankedList
	}
	groupIndex := make(map[string]int)
	var groups []docGroup
	for _, cand := range candidates {
		key := cand.DocumentID
		if key == "" {
			key = cand.ID
		}
		idx, ok := groupIndex[key]
		if !ok {
			idx = len(groups)
			groupIndex[key] = idx
			groups = append(groups, docGroup{key: key})
		}
		if len(groups[idx].candidates) < a.cfg.MaxPassagesPerDoc {
			groups[idx].candidates = append(groups[idx].candidates, cand)
		}
	}

	var (
		parts    []string
		emitted  domain.RankedList
		tokens   int
		docCount int
	)
	for _, group := range groups {
		var b strings.Builder
		writeDocHeader(&b, group.candidates[0])
		for i, cand := range group.candidates {
			fmt.Fprintf(&b, "[%d] Section: %s\n%s\n", len(emitted)+i+1, sectionLabel(cand.Section), cand.Text)
		}
		docText := b.String()
		docTokens := estimateTokens(docText)
		if docCount > 0 && tokens+docTokens > a.cfg.MaxTokens {
			break
		}
		parts = append(parts, docText)
		emitted = append(emitted, group.candidates...)
		tokens += docTokens
		docCount++
	}

	return ContextBlock{
		Candidates:      emitted,
		Text:            strings.Join(parts, "\n---\n"),
		EstimatedTokens: tokens,
		DocumentCount:   docCount,
	}
}

func writeDocHeader(b *strings.Builder, cand domain.Candidate) {
	title := cand.Title
	if title == "" {
		title = "Untitled"
	}
	if cand.Year > 0 {
		fmt.Fprintf(b, "%s (%d)\n", title, cand.Year)
	} else {
		fmt.Fprintf(b, "%s\n", title)
	}
	doi := cand.DOI
	if doi == "" {
		doi = "N/A"
	}
	extID := cand.ExternalID
	if extID == "" {
		extID = "N/A"
	}
	fmt.Fprintf(b, "DOI: %s | ID: %s\n", doi, extID)
}

func sectionLabel(section string) string {
	if strings.TrimSpace(section) == "" {
		return domain.SectionUnknown
	}
	return section
}
