package domain

import "context"

// Reranker reorders fused candidates by relevance to the query. The two
// implementations (cross-encoder and heuristic multi-signal) are
// interchangeable strategies behind this contract; tests validate each
// independently.
type Reranker interface {
	// Rerank returns at most topK candidates ordered by descending relevance,
	// with RerankScore and RerankPosition attached to each survivor.
	Rerank(ctx context.Context, query string, expansionTerms []string, candidates RankedList, topK int) (RankedList, error)

	// Name identifies the strategy for logging and metrics.
	Name() string
}

// RelevanceModel scores (query, passage) pairs with an external
// cross-encoder-style model. One batched call per request; scores are in the
// model's native range and may need normalization to [0,1] by the caller.
type RelevanceModel interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
	ModelName() string
}
