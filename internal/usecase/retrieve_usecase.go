package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"scholar-rag/internal/domain"
	"scholar-rag/internal/usecase/retrieval"

	"golang.org/x/sync/errgroup"
)

// RetrieveInput encapsulates the parameters of a retrieval request.
type RetrieveInput struct {
	Query   string
	Filters domain.FilterFacets
	// TopK overrides the configured synthesis budget when positive.
	TopK int
}

// RetrieveOutput is the ranked, reranked candidate set plus the request-level
// retrieval facts callers need for metrics and diagnostics.
type RetrieveOutput struct {
	Candidates   domain.RankedList
	Expansion    domain.Expansion
	UsedFilters  domain.FilterFacets
	FusedCount   int
	RerankerUsed string
}

// RetrieveUsecase is the pure-retrieval entry point: term expansion, parallel
// dense+lexical retrieval, RRF fusion and reranking, without synthesis. It
// doubles as the diagnostic endpoint for offline recall auditing.
type RetrieveUsecase interface {
	Execute(ctx context.Context, input RetrieveInput) (*RetrieveOutput, error)
}

type retrieveUsecase struct {
	encoder  domain.VectorEncoder
	searcher domain.VectorSearcher
	index    *domain.IndexHolder
	expander *domain.TermExpander
	reranker domain.Reranker
	fallback domain.Reranker
	cfg      PipelineConfig
	logger   *slog.Logger
}

// NewRetrieveUsecase wires the retrieval stages together. fallback may be
// nil; when set and cfg.Rerank.FallbackToHeuristic is true, a failing
// primary reranker degrades to it instead of failing the request.
func NewRetrieveUsecase(
	encoder domain.VectorEncoder,
	searcher domain.VectorSearcher,
	index *domain.IndexHolder,
	expander *domain.TermExpander,
	reranker domain.Reranker,
	fallback domain.Reranker,
	cfg PipelineConfig,
	logger *slog.Logger,
) RetrieveUsecase {
	return &retrieveUsecase{
		encoder:  encoder,
		searcher: searcher,
		index:    index,
		expander: expander,
		reranker: reranker,
		fallback: fallback,
		cfg:      cfg,
		logger:   logger,
	}
}

func (u *retrieveUsecase) Execute(ctx context.Context, input RetrieveInput) (*RetrieveOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if err := input.Filters.Validate(); err != nil {
		return nil, err
	}

	expansion := u.expander.Expand(query)
	usedFilters := input.Filters.MergeTags(expansion.Terms)
	if len(expansion.MatchedKeys) > 0 {
		u.logger.Info("query_expanded",
			slog.Any("matched_keys", expansion.MatchedKeys),
			slog.Int("expansion_terms", len(expansion.Terms)))
	}

	out := &RetrieveOutput{Expansion: expansion, UsedFilters: usedFilters}

	queryVector, err := u.embedQuery(ctx, query, expansion.Terms)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", domain.WrapExternalModel(err))
	}

	dense, lexical := u.retrieveBranches(ctx, query, queryVector, usedFilters, expansion.Terms)
	if len(dense) == 0 && len(lexical) == 0 {
		// Both branches empty or failed: a valid empty business outcome.
		u.logger.Warn("retrieval_returned_nothing", slog.String("query", query))
		return out, nil
	}

	fused := retrieval.Fuse(dense, lexical, u.cfg.Retrieval.RRFK, u.cfg.Retrieval.TopKFusion, u.logger)
	out.FusedCount = len(fused)

	topK := input.TopK
	if topK <= 0 {
		topK = u.cfg.Rerank.TopSynthesis
	}
	reranked, rerankerName, err := u.rerank(ctx, query, expansion.Terms, fused, topK)
	if err != nil {
		return nil, err
	}

	out.Candidates = reranked
	out.RerankerUsed = rerankerName
	return out, nil
}

// embedQuery encodes the query enriched with its expansion terms in one call.
func (u *retrieveUsecase) embedQuery(ctx context.Context, query string, expansionTerms []string) ([]float32, error) {
	text := query
	if len(expansionTerms) > 0 {
		text = query + " " + strings.Join(expansionTerms, " ")
	}
	vectors, err := u.encoder.Encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("encoder returned %d vectors for one input", len(vectors))
	}
	return vectors[0], nil
}

// retrieveBranches runs the dense and lexical branches concurrently, each
// under its own timeout. A failed or timed-out branch is logged and dropped;
// the pipeline continues with whatever completed.
func (u *retrieveUsecase) retrieveBranches(
	ctx context.Context,
	query string,
	queryVector []float32,
	filters domain.FilterFacets,
	expansionTerms []string,
) (dense, lexical domain.RankedList) {
	var g errgroup.Group

	g.Go(func() error {
		branchCtx, cancel := context.WithTimeout(ctx, u.cfg.Retrieval.BranchTimeout)
		defer cancel()
		results, err := u.searcher.Search(branchCtx, queryVector, filters, u.cfg.Retrieval.TopKDense, u.cfg.Retrieval.MinSimilarity)
		if err != nil {
			u.logger.Warn("dense_branch_failed", slog.String("error", err.Error()))
			return nil
		}
		dense = results
		return nil
	})

	g.Go(func() error {
		idx := u.index.Load()
		if idx == nil {
			u.logger.Warn("lexical_branch_unavailable", slog.String("reason", "index not built"))
			return nil
		}
		lexical = idx.Search(query, expansionTerms, u.cfg.Retrieval.TopKLexical, u.cfg.Retrieval.ExpansionWeight)
		return nil
	})

	// Branch funcs always return nil; errors degrade, never abort.
	_ = g.Wait()

	u.logger.Info("retrieval_branches_completed",
		slog.Int("dense_count", len(dense)),
		slog.Int("lexical_count", len(lexical)))
	return dense, lexical
}

// rerank applies the primary reranker under its timeout, degrading to the
// heuristic fallback when configured.
func (u *retrieveUsecase) rerank(ctx context.Context, query string, expansionTerms []string, fused domain.RankedList, topK int) (domain.RankedList, string, error) {
	rerankCtx, cancel := context.WithTimeout(ctx, u.cfg.Rerank.Timeout)
	defer cancel()

	reranked, err := u.reranker.Rerank(rerankCtx, query, expansionTerms, fused, topK)
	if err == nil {
		return reranked, u.reranker.Name(), nil
	}

	if u.cfg.Rerank.FallbackToHeuristic && u.fallback != nil {
		u.logger.Warn("primary_reranker_failed_falling_back",
			slog.String("primary", u.reranker.Name()),
			slog.String("fallback", u.fallback.Name()),
			slog.String("error", err.Error()))
		reranked, fbErr := u.fallback.Rerank(ctx, query, expansionTerms, fused, topK)
		if fbErr != nil {
			return nil, "", fmt.Errorf("fallback reranking: %w", fbErr)
		}
		return reranked, u.fallback.Name(), nil
	}
	return nil, "", fmt.Errorf("reranking: %w", err)
}
