package domain

import "context"

// VectorEncoder generates embeddings for query text. Fixed dimensionality
// per deployment; one synchronous call per request from the pipeline's
// perspective.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}
