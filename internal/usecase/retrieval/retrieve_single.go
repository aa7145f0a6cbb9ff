package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"scholar-rag/internal/domain"
)

// sectionPriorityStep converts a section priority rank into an additive
// score boost for the single-branch path.
const sectionPriorityStep = 0.025

// SingleBranchRetriever is the dense-only retrieval path, used when the
// lexical index is unavailable. It over-fetches, boosts by section priority
// and deduplicates by DOI, which keeps it a correct minimum ranking policy
// in isolation.
type SingleBranchRetriever struct {
	store         domain.VectorSearcher
	minSimilarity float64
	logger        *slog.Logger
}

func NewSingleBranchRetriever(store domain.VectorSearcher, minSimilarity float64, logger *slog.Logger) *SingleBranchRetriever {
	return &SingleBranchRetriever{store: store, minSimilarity: minSimilarity, logger: logger}
}

// Retrieve requests 2*topK dense candidates above the similarity floor,
// re-scores them as base similarity plus a section-priority boost, sorts
// descending, drops candidates repeating an already-seen non-empty DOI and
// returns the first topK survivors.
func (r *SingleBranchRetriever) Retrieve(ctx context.Context, queryVector []float32, filters domain.FilterFacets, topK int) (domain.RankedList, error) {
	if topK <= 0 {
		return nil, nil
	}

	candidates, err := r.store.Search(ctx, queryVector, filters, 2*topK, r.minSimilarity)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	type boosted struct {
		cand  domain.Candidate
		score float64
	}
	scored := make([]boosted, len(candidates))
	for i, cand := range candidates {
		boost := float64(domain.SectionPriorityRank(cand.Section)) * sectionPriorityStep
		scored[i] = boosted{cand: cand, score: cand.DenseScore + boost}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	seenDOI := make(map[string]bool)
	result := make(domain.RankedList, 0, topK)
	dedupCount := 0
	for _, sc := range scored {
		if sc.cand.DOI != "" {
			if seenDOI[sc.cand.DOI] {
				dedupCount++
				continue
			}
			seenDOI[sc.cand.DOI] = true
		}
		cand := sc.cand
		cand.FusionScore = sc.score
		result = append(result, cand)
		if len(result) == topK {
			break
		}
	}

	if r.logger != nil {
		r.logger.Info("single_branch_retrieval_completed",
			slog.Int("fetched", len(candidates)),
			slog.Int("deduplicated", dedupCount),
			slog.Int("returned", len(result)))
	}
	return result, nil
}
