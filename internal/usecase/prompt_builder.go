package usecase

import (
	"fmt"
	"strings"
)

// PromptInput contains the pieces that feed into the prompt builder.
type PromptInput struct {
	Query   string
	Context string
}

// PromptBuilder renders the synthesis prompt sent to the LLM.
type PromptBuilder interface {
	Build(input PromptInput) (string, error)
}

// SynthesisPromptBuilder produces the strict grounded-answer prompt: the
// model may only use the numbered context and must cite every claim with
// [N] markers matching the context numbering.
type SynthesisPromptBuilder struct {
	additionalInstructions []string
}

// NewSynthesisPromptBuilder creates a prompt builder with optional extra
// instructions appended.
func NewSynthesisPromptBuilder(additionalInstructions ...string) PromptBuilder {
	return &SynthesisPromptBuilder{additionalInstructions: additionalInstructions}
}

// Build renders the prompt.
func (b *SynthesisPromptBuilder) Build(input PromptInput) (string, error) {
	if strings.TrimSpace(input.Query) == "" {
		return "", fmt.Errorf("query is required")
	}
	if strings.TrimSpace(input.Context) == "" {
		return "", fmt.Errorf("context is required")
	}

	instructions := []string{
		"You are a space biology research assistant. Answer the user's question based ONLY on the provided scientific context.",
		"1. Synthesize information from the context to answer the question.",
		"2. CITE every factual claim using [N] notation (e.g., [1], [2]) matching the context numbering.",
		"3. If multiple sources support a claim, cite all of them (e.g., [1][2]).",
		"4. Identify consensus vs. disagreement across studies when sources conflict.",
		"5. Highlight knowledge gaps or limitations present in the context.",
		"6. If the context does not contain enough information, say so explicitly.",
		"7. Do not use external knowledge or invent facts.",
	}
	instructions = append(instructions, b.additionalInstructions...)

	var sb strings.Builder
	for _, inst := range instructions {
		sb.WriteString(inst)
		sb.WriteString("\n")
	}
	sb.WriteString("\nContext:\n")
	sb.WriteString(input.Context)
	sb.WriteString("\n\nQuestion:\n")
	sb.WriteString(input.Query)
	sb.WriteString("\n\nAnswer:\n")
	return sb.String(), nil
}
