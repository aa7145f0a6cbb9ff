package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"scholar-rag/internal/domain"
)

// CrossEncoderConfig holds the knobs of the cross-encoder reranking stage.
type CrossEncoderConfig struct {
	// MMRLambda balances relevance against novelty: 1.0 disables MMR, 0.7
	// means 70% weight on relevance and 30% on diversity.
	MMRLambda float64
	// MaxPerDoc caps how many passages one document may contribute.
	MaxPerDoc int
	// ApplySectionBoost adds the per-section bonus on top of model scores.
	ApplySectionBoost bool
}

// DefaultCrossEncoderConfig returns the production defaults.
func DefaultCrossEncoderConfig() CrossEncoderConfig {
	return CrossEncoderConfig{
		MMRLambda:         0.7,
		MaxPerDoc:         2,
		ApplySectionBoost: true,
	}
}

// CrossEncoderReranker scores (query, passage) pairs with an external
// relevance model in one batched call, then applies section boosts, section
// exclusions, MMR diversity and a per-document cap.
type CrossEncoderReranker struct {
	model  domain.RelevanceModel
	cfg    CrossEncoderConfig
	logger *slog.Logger
}

func NewCrossEncoderReranker(model domain.RelevanceModel, cfg CrossEncoderConfig, logger *slog.Logger) *CrossEncoderReranker {
	return &CrossEncoderReranker{model: model, cfg: cfg, logger: logger}
}

// Name implements domain.Reranker.
func (r *CrossEncoderReranker) Name() string { return "cross_encoder" }

// Rerank implements domain.Reranker.
func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, expansionTerms []string, candidates domain.RankedList, topK int) (domain.RankedList, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	passages := make([]string, len(candidates))
	for i, cand := range candidates {
		passages[i] = cand.Text
	}
	scores, err := r.model.Score(ctx, query, passages)
	if err != nil {
		return nil, fmt.Errorf("cross-encoder scoring: %w", domain.WrapExternalModel(err))
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("cross-encoder scoring: %w", domain.WrapExternalModel(
			fmt.Errorf("got %d scores for %d passages", len(scores), len(candidates))))
	}

	scores = normalizeModelScores(scores)

	type scoredCandidate struct {
		cand  domain.Candidate
		score float64
	}
	scored := make([]scoredCandidate, 0, len(candidates))
	for i, cand := range candidates {
		if domain.IsExcludedSection(cand.Section) {
			continue
		}
		s := scores[i]
		if r.cfg.ApplySectionBoost {
			s += domain.SectionBoost(cand.Section)
		}
		scored = append(scored, scoredCandidate{cand: cand, score: s})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	ordered := make(domain.RankedList, len(scored))
	relevance := make([]float64, len(scored))
	for i, sc := range scored {
		ordered[i] = sc.cand
		relevance[i] = sc.score
	}

	if r.cfg.MMRLambda < 1.0 {
		ordered, relevance = applyMMR(ordered, relevance, r.cfg.MMRLambda)
	}

	maxPerDoc := r.cfg.MaxPerDoc
	if maxPerDoc <= 0 {
		maxPerDoc = 2
	}
	result := make(domain.RankedList, 0, topK)
	resultScores := make([]float64, 0, topK)
	docCounts := make(map[string]int)
	for i, cand := range ordered {
		if docCounts[cand.DocumentID] >= maxPerDoc {
			continue
		}
		docCounts[cand.DocumentID]++
		result = append(result, cand)
		resultScores = append(resultScores, relevance[i])
		if topK > 0 && len(result) == topK {
			break
		}
	}

	for i := range result {
		result[i].RerankScore = resultScores[i]
		result[i].RerankPosition = i + 1
	}

	if r.logger != nil {
		r.logger.Info("cross_encoder_rerank_completed",
			slog.Int("candidate_count", len(candidates)),
			slog.Int("reranked_count", len(result)),
			slog.String("model", r.model.ModelName()))
	}
	return result, nil
}

// normalizeModelScores min-max scales scores whose native range exceeds
// [0,1]; already-normalized scores pass through unchanged.
func normalizeModelScores(scores []float64) []float64 {
	maxScore, minScore := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
		if s < minScore {
			minScore = s
		}
	}
	if maxScore <= 1.0 && minScore >= 0.0 {
		return scores
	}
	out := make([]float64, len(scores))
	spread := maxScore - minScore
	if spread == 0 {
		return out
	}
	for i, s := range scores {
		out[i] = (s - minScore) / spread
	}
	return out
}

// applyMMR reorders the relevance-sorted candidates with Maximal Marginal
// Relevance: the top candidate is taken as-is, then each step picks
// argmax(lambda*relevance - (1-lambda)*maxSimilarityToSelected) where
// similarity is Jaccard over token sets. Ties keep the earlier candidate.
func applyMMR(ordered domain.RankedList, relevance []float64, lambda float64) (domain.RankedList, []float64) {
	if len(ordered) <= 1 {
		return ordered, relevance
	}

	tokenSets := make([]map[string]bool, len(ordered))
	for i, cand := range ordered {
		tokenSets[i] = domain.TokenSet(cand.Text)
	}

	selected := make(domain.RankedList, 0, len(ordered))
	selectedScores := make([]float64, 0, len(ordered))
	selectedSets := make([]map[string]bool, 0, len(ordered))
	remaining := make([]int, 0, len(ordered)-1)
	for i := 1; i < len(ordered); i++ {
		remaining = append(remaining, i)
	}

	selected = append(selected, ordered[0])
	selectedScores = append(selectedScores, relevance[0])
	selectedSets = append(selectedSets, tokenSets[0])

	for len(remaining) > 0 {
		bestPos := 0
		bestMMR := mmrScore(relevance[remaining[0]], tokenSets[remaining[0]], selectedSets, lambda)
		for pos := 1; pos < len(remaining); pos++ {
			idx := remaining[pos]
			if score := mmrScore(relevance[idx], tokenSets[idx], selectedSets, lambda); score > bestMMR {
				bestMMR = score
				bestPos = pos
			}
		}
		idx := remaining[bestPos]
		selected = append(selected, ordered[idx])
		selectedScores = append(selectedScores, relevance[idx])
		selectedSets = append(selectedSets, tokenSets[idx])
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}
	return selected, selectedScores
}

func mmrScore(relevance float64, tokens map[string]bool, selectedSets []map[string]bool, lambda float64) float64 {
	maxSim := 0.0
	for _, sel := range selectedSets {
		if sim := domain.JaccardSimilarity(tokens, sel); sim > maxSim {
			maxSim = sim
		}
	}
	return lambda*relevance - (1-lambda)*maxSim
}
