package retrieval

import (
	"log/slog"
	"sort"

	"scholar-rag/internal/domain"
)

// DefaultRRFK dampens the advantage of very-top-ranked items in reciprocal
// rank fusion. 60 is the value from the original RRF paper.
const DefaultRRFK = 60.0

// FusionEntry pairs a candidate with its accumulated reciprocal-rank score.
// The score is monotonically non-decreasing in the number of branches that
// retrieved the candidate.
type FusionEntry struct {
	Candidate domain.Candidate
	RRFScore  float64
}

// Fuse merges the dense and lexical branch rankings with reciprocal rank
// fusion: each candidate accumulates weight/(k+rank) for every branch it
// appears in, rank being its 0-based position in that branch. Candidates
// present in both branches accumulate both contributions and therefore rank
// above single-branch candidates at similar positions. Ties are broken by
// first-seen order (dense branch first, then lexical), so repeated runs are
// deterministic. An empty branch degenerates to a rank-based rescoring of
// the other branch.
func Fuse(dense, lexical domain.RankedList, k float64, topK int, logger *slog.Logger) domain.RankedList {
	if k <= 0 {
		k = DefaultRRFK
	}

	entries := make(map[string]*FusionEntry, len(dense)+len(lexical))
	order := make([]string, 0, len(dense)+len(lexical))

	accumulate := func(branch domain.RankedList, merge func(dst *domain.Candidate, src domain.Candidate)) {
		for rank, cand := range branch {
			entry, seen := entries[cand.ID]
			if !seen {
				entry = &FusionEntry{Candidate: cand}
				entries[cand.ID] = entry
				order = append(order, cand.ID)
			} else {
				merge(&entry.Candidate, cand)
			}
			entry.RRFScore += 1.0 / (k + float64(rank))
		}
	}

	accumulate(dense, func(dst *domain.Candidate, src domain.Candidate) {
		dst.DenseScore = src.DenseScore
	})
	accumulate(lexical, func(dst *domain.Candidate, src domain.Candidate) {
		dst.LexicalScore = src.LexicalScore
	})

	fused := make([]*FusionEntry, 0, len(order))
	for _, id := range order {
		fused = append(fused, entries[id])
	}
	// SliceStable keeps first-seen order for equal scores.
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].RRFScore > fused[j].RRFScore
	})
	if topK > 0 && len(fused) > topK {
		fused = fused[:topK]
	}

	ranked := make(domain.RankedList, len(fused))
	for i, entry := range fused {
		cand := entry.Candidate
		cand.FusionScore = entry.RRFScore
		ranked[i] = cand
	}

	if logger != nil {
		logger.Info("rrf_fusion_completed",
			slog.Int("dense_count", len(dense)),
			slog.Int("lexical_count", len(lexical)),
			slog.Int("fused_count", len(ranked)))
	}
	return ranked
}
