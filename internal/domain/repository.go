package domain

import "context"

// VectorSearcher is the query contract of the external vector store. The
// store applies facet filters and the similarity floor itself and returns
// candidates already carrying DenseScore and all metadata fields.
type VectorSearcher interface {
	Search(ctx context.Context, queryVector []float32, filters FilterFacets, topK int, minSimilarity float64) (RankedList, error)
}

// DocumentRepository is the full document-store contract. One concrete
// implementation per backend, selected at construction time.
type DocumentRepository interface {
	VectorSearcher

	// GetByIDs resolves candidates by passage ID, preserving input order.
	// Unknown IDs are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]Candidate, error)

	// FacetCounts returns the distinct values and passage counts for one
	// facet field, for filter UIs and diagnostics.
	FacetCounts(ctx context.Context, facet string) (map[string]int, error)

	// SnapshotChunks streams the full indexable corpus for lexical index
	// construction.
	SnapshotChunks(ctx context.Context) ([]Candidate, error)

	// HealthCheck verifies the backing store is reachable.
	HealthCheck(ctx context.Context) error
}
