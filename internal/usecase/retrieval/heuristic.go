package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"scholar-rag/internal/domain"
)

// Weights of the heuristic reranker's signals. Fixed constants keep signal
// breakdowns comparable across requests.
const (
	weightSimilarity       = 0.36
	weightLexical          = 0.18
	weightKeywordOverlap   = 0.14
	weightSectionBoost     = 0.12
	weightRecency          = 0.08
	weightAuthority        = 0.07
	weightLengthFit        = 0.05
	weightDuplicatePenalty = -0.10

	// duplicateJaccardThreshold marks two passages as near-duplicates.
	duplicateJaccardThreshold = 0.95
)

// HeuristicConfig holds the knobs of the multi-signal reranking stage.
type HeuristicConfig struct {
	// TopRerank is how many candidates survive the score cut before the
	// per-document cap is applied.
	TopRerank int
	// MaxPerDoc caps how many passages one document may contribute.
	MaxPerDoc int
}

// DefaultHeuristicConfig returns the production defaults.
func DefaultHeuristicConfig() HeuristicConfig {
	return HeuristicConfig{TopRerank: 12, MaxPerDoc: 2}
}

// HeuristicReranker combines eight relevance signals with fixed weights:
// dense similarity, lexical score, keyword overlap, section boost, recency,
// authority, length fit and a near-duplicate penalty. It needs no external
// model, so it doubles as the fallback when the cross-encoder is down.
// Fully deterministic: identical inputs produce identical ordering and
// identical signal breakdowns.
type HeuristicReranker struct {
	cfg    HeuristicConfig
	now    func() time.Time
	logger *slog.Logger
}

func NewHeuristicReranker(cfg HeuristicConfig, logger *slog.Logger) *HeuristicReranker {
	return &HeuristicReranker{cfg: cfg, now: time.Now, logger: logger}
}

// Name implements domain.Reranker.
func (r *HeuristicReranker) Name() string { return "heuristic_multi_signal" }

// Rerank implements domain.Reranker. topK is the synthesis budget applied
// after the TopRerank cut and the per-document cap.
func (r *HeuristicReranker) Rerank(ctx context.Context, query string, expansionTerms []string, candidates domain.RankedList, topK int) (domain.RankedList, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryTokens := domain.TokenSet(query + " " + strings.Join(expansionTerms, " "))
	now := r.now()

	// Token sets are reused by keyword overlap and duplicate detection.
	tokenSets := make([]map[string]bool, len(candidates))
	for i, cand := range candidates {
		tokenSets[i] = domain.TokenSet(cand.Text)
	}

	scored := make(domain.RankedList, len(candidates))
	for i, cand := range candidates {
		sig := domain.SignalBreakdown{
			Similarity:     normalizeSimilarity(cand.DenseScore),
			Lexical:        normalizeLexical(cand.LexicalScore),
			KeywordOverlap: domain.JaccardSimilarity(queryTokens, tokenSets[i]),
			SectionBoost:   domain.SectionBoost(cand.Section),
			Recency:        recencyScore(cand.Year, now),
			Authority:      authorityScore(cand),
			LengthFit:      lengthFitScore(cand.Text),
		}
		// A candidate is a near-duplicate when its token set overlaps a
		// higher-ranked candidate beyond the threshold.
		for j := 0; j < i; j++ {
			if domain.JaccardSimilarity(tokenSets[i], tokenSets[j]) > duplicateJaccardThreshold {
				sig.DuplicatePenalty = 1.0
				break
			}
		}

		sig.Final = weightSimilarity*sig.Similarity +
			weightLexical*sig.Lexical +
			weightKeywordOverlap*sig.KeywordOverlap +
			weightSectionBoost*sig.SectionBoost +
			weightRecency*sig.Recency +
			weightAuthority*sig.Authority +
			weightLengthFit*sig.LengthFit +
			weightDuplicatePenalty*sig.DuplicatePenalty

		cand.Signals = sig
		cand.RerankScore = sig.Final
		scored[i] = cand
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].RerankScore > scored[j].RerankScore
	})

	topRerank := r.cfg.TopRerank
	if topRerank > 0 && len(scored) > topRerank {
		scored = scored[:topRerank]
	}

	maxPerDoc := r.cfg.MaxPerDoc
	if maxPerDoc <= 0 {
		maxPerDoc = 2
	}
	docCounts := make(map[string]int)
	result := make(domain.RankedList, 0, len(scored))
	for _, cand := range scored {
		if docCounts[cand.DocumentID] >= maxPerDoc {
			continue
		}
		docCounts[cand.DocumentID]++
		result = append(result, cand)
	}
	if topK > 0 && len(result) > topK {
		result = result[:topK]
	}

	for i := range result {
		result[i].RerankPosition = i + 1
	}

	if r.logger != nil {
		r.logger.Info("heuristic_rerank_completed",
			slog.Int("candidate_count", len(candidates)),
			slog.Int("reranked_count", len(result)),
			slog.Int("unique_documents", len(docCounts)))
	}
	return result, nil
}
