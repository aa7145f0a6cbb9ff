package modelgateway

import (
	"context"
	"fmt"
	"log/slog"

	"scholar-rag/internal/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEncoder wraps a VectorEncoder with a per-text LRU cache. Queries
// repeat heavily in interactive use, and a cache hit skips the model call
// entirely. Entries are keyed by model version plus text so a model swap
// never serves stale vectors.
type CachedEncoder struct {
	inner  domain.VectorEncoder
	cache  *lru.Cache[string, []float32]
	logger *slog.Logger
}

func NewCachedEncoder(inner domain.VectorEncoder, size int, logger *slog.Logger) (*CachedEncoder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &CachedEncoder{inner: inner, cache: cache, logger: logger}, nil
}

func (c *CachedEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.key(text)); ok {
			results[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vectors, err := c.inner.Encode(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(missTexts) {
			return nil, fmt.Errorf("encoder returned %d vectors for %d inputs", len(vectors), len(missTexts))
		}
		for j, vec := range vectors {
			results[missIdx[j]] = vec
			c.cache.Add(c.key(missTexts[j]), vec)
		}
	}

	c.logger.Debug("embedding_cache_lookup",
		slog.Int("hits", len(texts)-len(missTexts)),
		slog.Int("misses", len(missTexts)))
	return results, nil
}

func (c *CachedEncoder) Version() string {
	return c.inner.Version()
}

func (c *CachedEncoder) key(text string) string {
	return c.inner.Version() + "\x00" + text
}

var _ domain.VectorEncoder = (*CachedEncoder)(nil)
