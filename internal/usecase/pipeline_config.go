package usecase

import (
	"fmt"
	"time"

	"scholar-rag/internal/usecase/retrieval"
)

// HybridRetrievalConfig holds the knobs of the parallel dense+lexical stage.
type HybridRetrievalConfig struct {
	// TopKDense is the dense branch candidate pool size.
	TopKDense int
	// TopKLexical is the lexical branch candidate pool size.
	TopKLexical int
	// TopKFusion is how many candidates survive RRF fusion into reranking.
	TopKFusion int
	// RRFK is the reciprocal rank fusion constant. Standard value is 60.
	RRFK float64
	// MinSimilarity is the dense-branch similarity floor.
	MinSimilarity float64
	// ExpansionWeight is the influence of expansion terms on the lexical
	// query relative to original tokens (0.5 means half).
	ExpansionWeight float64
	// BranchTimeout bounds each retrieval branch. A branch that times out is
	// dropped; the pipeline continues with whatever completed.
	BranchTimeout time.Duration
}

// DefaultHybridRetrievalConfig returns the production defaults: 25+25
// candidates fused to 24, matching the pool sizes the reranker is sized for.
func DefaultHybridRetrievalConfig() HybridRetrievalConfig {
	return HybridRetrievalConfig{
		TopKDense:       25,
		TopKLexical:     25,
		TopKFusion:      24,
		RRFK:            retrieval.DefaultRRFK,
		MinSimilarity:   0.3,
		ExpansionWeight: 0.5,
		BranchTimeout:   5 * time.Second,
	}
}

// Validate checks the hybrid retrieval configuration.
func (c HybridRetrievalConfig) Validate() error {
	if c.TopKDense <= 0 {
		return fmt.Errorf("topKDense must be positive, got %d", c.TopKDense)
	}
	if c.TopKLexical <= 0 {
		return fmt.Errorf("topKLexical must be positive, got %d", c.TopKLexical)
	}
	if c.TopKFusion <= 0 {
		return fmt.Errorf("topKFusion must be positive, got %d", c.TopKFusion)
	}
	if c.RRFK <= 0 {
		return fmt.Errorf("rrfK must be positive, got %f", c.RRFK)
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return fmt.Errorf("minSimilarity must be in [0,1], got %f", c.MinSimilarity)
	}
	if c.ExpansionWeight < 0 || c.ExpansionWeight > 1 {
		return fmt.Errorf("expansionWeight must be in [0,1], got %f", c.ExpansionWeight)
	}
	if c.BranchTimeout <= 0 {
		return fmt.Errorf("branchTimeout must be positive, got %v", c.BranchTimeout)
	}
	return nil
}

// RerankConfig holds the reranking stage settings shared by both strategies.
type RerankConfig struct {
	// TopSynthesis is how many candidates feed answer synthesis.
	TopSynthesis int
	// Timeout bounds the reranker call, which may hit an external model.
	Timeout time.Duration
	// FallbackToHeuristic switches to the heuristic multi-signal reranker
	// when the cross-encoder call fails, instead of failing the request.
	FallbackToHeuristic bool
}

// DefaultRerankConfig returns the production defaults.
func DefaultRerankConfig() RerankConfig {
	return RerankConfig{
		TopSynthesis:        6,
		Timeout:             30 * time.Second,
		FallbackToHeuristic: true,
	}
}

// Validate checks the rerank configuration.
func (c RerankConfig) Validate() error {
	if c.TopSynthesis <= 0 {
		return fmt.Errorf("topSynthesis must be positive, got %d", c.TopSynthesis)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("rerank timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// ContextConfig holds the context assembly settings.
type ContextConfig struct {
	// MaxTokens is the assembled context budget (coarse estimate, ~4 chars
	// per token).
	MaxTokens int
	// MaxPassagesPerDoc caps how many passages one document contributes.
	MaxPassagesPerDoc int
	// SnippetMaxChars truncates citation snippets.
	SnippetMaxChars int
}

// DefaultContextConfig returns the production defaults.
func DefaultContextConfig() ContextConfig {
	return ContextConfig{
		MaxTokens:         4000,
		MaxPassagesPerDoc: 2,
		SnippetMaxChars:   200,
	}
}

// Validate checks the context configuration.
func (c ContextConfig) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("context maxTokens must be positive, got %d", c.MaxTokens)
	}
	if c.MaxPassagesPerDoc <= 0 {
		return fmt.Errorf("maxPassagesPerDoc must be positive, got %d", c.MaxPassagesPerDoc)
	}
	if c.SnippetMaxChars <= 0 {
		return fmt.Errorf("snippetMaxChars must be positive, got %d", c.SnippetMaxChars)
	}
	return nil
}

// SynthesisConfig holds the LLM answer-generation settings.
type SynthesisConfig struct {
	// MaxTokens is the generation budget passed to the model.
	MaxTokens int
	// Timeout bounds the single synthesis call; no retries inside the core.
	Timeout time.Duration
}

// DefaultSynthesisConfig returns the production defaults.
func DefaultSynthesisConfig() SynthesisConfig {
	return SynthesisConfig{
		MaxTokens: 1024,
		Timeout:   60 * time.Second,
	}
}

// Validate checks the synthesis configuration.
func (c SynthesisConfig) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("synthesis maxTokens must be positive, got %d", c.MaxTokens)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("synthesis timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// PipelineConfig aggregates the tunables of the full answer pipeline.
type PipelineConfig struct {
	Retrieval HybridRetrievalConfig
	Rerank    RerankConfig
	Context   ContextConfig
	Synthesis SynthesisConfig
}

// DefaultPipelineConfig returns the production defaults for every stage.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Retrieval: DefaultHybridRetrievalConfig(),
		Rerank:    DefaultRerankConfig(),
		Context:   DefaultContextConfig(),
		Synthesis: DefaultSynthesisConfig(),
	}
}

// Validate checks every stage configuration.
func (c PipelineConfig) Validate() error {
	if err := c.Retrieval.Validate(); err != nil {
		return fmt.Errorf("retrieval config invalid: %w", err)
	}
	if err := c.Rerank.Validate(); err != nil {
		return fmt.Errorf("rerank config invalid: %w", err)
	}
	if err := c.Context.Validate(); err != nil {
		return fmt.Errorf("context config invalid: %w", err)
	}
	if err := c.Synthesis.Validate(); err != nil {
		return fmt.Errorf("synthesis config invalid: %w", err)
	}
	return nil
}
