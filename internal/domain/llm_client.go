package domain

import "context"

// LLMClient sends a synthesis prompt to the LLM and returns the generated
// text. Single timeout-bounded call per request; no retries inside the core.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (*LLMResponse, error)
	Version() string
}

// LLMResponse carries the LLM output and whether the generation finished.
type LLMResponse struct {
	Text string
	Done bool
}
