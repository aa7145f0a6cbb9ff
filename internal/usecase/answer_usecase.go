package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scholar-rag/internal/domain"

	"github.com/google/uuid"
)

// EmptyResultAnswer is the fixed message returned when retrieval finds no
// relevant passages. It is a valid business outcome, not an error.
const EmptyResultAnswer = "No relevant results found in the corpus for your query. " +
	"Try adjusting filters, rephrasing the question, or broadening the search terms."

// AnswerInput encapsulates the parameters of an answer request.
type AnswerInput struct {
	Query   string
	Filters domain.FilterFacets
	TopK    int
}

// RetrievalMetrics summarizes one pipeline run for callers and dashboards.
type RetrievalMetrics struct {
	LatencyMS           float64
	RetrievedK          int
	GroundedRatio       float64
	DedupCount          int
	SectionDistribution map[string]int
}

// AnswerOutput is the response envelope: the synthesized answer, one
// citation per context passage, run metrics and the filters actually used
// after auto-expansion.
type AnswerOutput struct {
	Answer      string
	Citations   []Citation
	Metrics     RetrievalMetrics
	UsedFilters domain.FilterFacets
	// Empty marks the fixed no-results response.
	Empty bool
	// RequestID correlates logs across pipeline stages.
	RequestID string
}

// AnswerUsecase defines the contract for generating grounded answers.
type AnswerUsecase interface {
	Execute(ctx context.Context, input AnswerInput) (*AnswerOutput, error)
}

type answerUsecase struct {
	retrieve      RetrieveUsecase
	assembler     *ContextAssembler
	promptBuilder PromptBuilder
	llm           domain.LLMClient
	cfg           PipelineConfig
	logger        *slog.Logger
}

// NewAnswerUsecase wires together the components of the full answer pipeline.
func NewAnswerUsecase(
	retrieve RetrieveUsecase,
	assembler *ContextAssembler,
	promptBuilder PromptBuilder,
	llm domain.LLMClient,
	cfg PipelineConfig,
	logger *slog.Logger,
) AnswerUsecase {
	return &answerUsecase{
		retrieve:      retrieve,
		assembler:     assembler,
		promptBuilder: promptBuilder,
		llm:           llm,
		cfg:           cfg,
		logger:        logger,
	}
}

func (u *answerUsecase) Execute(ctx context.Context, input AnswerInput) (*AnswerOutput, error) {
	start := time.Now()
	requestID := uuid.NewString()
	logger := u.logger.With(slog.String("request_id", requestID))

	retrieved, err := u.retrieve.Execute(ctx, RetrieveInput{
		Query:   input.Query,
		Filters: input.Filters,
		TopK:    input.TopK,
	})
	if err != nil {
		return nil, err
	}
	if len(retrieved.Candidates) == 0 {
		logger.Info("empty_result_response", slog.String("query", input.Query))
		return u.emptyResponse(requestID, retrieved.UsedFilters), nil
	}

	block := u.assembler.Build(retrieved.Candidates)
	prompt, err := u.promptBuilder.Build(PromptInput{Query: input.Query, Context: block.Text})
	if err != nil {
		return nil, fmt.Errorf("prompt build: %w", err)
	}

	synthCtx, cancel := context.WithTimeout(ctx, u.cfg.Synthesis.Timeout)
	defer cancel()
	resp, err := u.llm.Generate(synthCtx, prompt, u.cfg.Synthesis.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("answer synthesis: %w", domain.WrapExternalModel(err))
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, fmt.Errorf("answer synthesis: %w", domain.WrapExternalModel(fmt.Errorf("empty response")))
	}
	if !resp.Done {
		logger.Warn("llm_response_incomplete", slog.Int("context_tokens", block.EstimatedTokens))
	}
	answer := strings.TrimSpace(resp.Text)

	citations := BuildCitations(block.Candidates, u.cfg.Context.SnippetMaxChars)
	groundedRatio := EstimateGrounding(answer)

	sectionDist := make(map[string]int)
	for _, cand := range block.Candidates {
		section := cand.Section
		if strings.TrimSpace(section) == "" {
			section = domain.SectionUnknown
		}
		sectionDist[section]++
	}

	latency := time.Since(start)
	logger.Info("answer_pipeline_completed",
		slog.Int64("latency_ms", latency.Milliseconds()),
		slog.Int("retrieved_k", len(block.Candidates)),
		slog.Float64("grounded_ratio", groundedRatio),
		slog.String("reranker", retrieved.RerankerUsed),
		slog.Int("context_tokens", block.EstimatedTokens))

	return &AnswerOutput{
		Answer:    answer,
		Citations: citations,
		Metrics: RetrievalMetrics{
			LatencyMS:           float64(latency.Microseconds()) / 1000.0,
			RetrievedK:          len(block.Candidates),
			GroundedRatio:       groundedRatio,
			DedupCount:          retrieved.FusedCount - len(block.Candidates),
			SectionDistribution: sectionDist,
		},
		UsedFilters: retrieved.UsedFilters,
		RequestID:   requestID,
	}, nil
}

func (u *answerUsecase) emptyResponse(requestID string, usedFilters domain.FilterFacets) *AnswerOutput {
	return &AnswerOutput{
		Answer:      EmptyResultAnswer,
		Citations:   []Citation{},
		Metrics:     RetrievalMetrics{SectionDistribution: map[string]int{}},
		UsedFilters: usedFilters,
		Empty:       true,
		RequestID:   requestID,
	}
}
