package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"scholar-rag/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	mu     sync.Mutex
	chunks []domain.Candidate
	err    error
	calls  int
}

func (s *stubRepo) Search(ctx context.Context, v []float32, f domain.FilterFacets, topK int, minSim float64) (domain.RankedList, error) {
	return nil, nil
}
func (s *stubRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Candidate, error) {
	return nil, nil
}
func (s *stubRepo) FacetCounts(ctx context.Context, facet string) (map[string]int, error) {
	return nil, nil
}
func (s *stubRepo) HealthCheck(ctx context.Context) error { return nil }

func (s *stubRepo) SnapshotChunks(ctx context.Context) ([]domain.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.chunks, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func corpus() []domain.Candidate {
	return []domain.Candidate{
		{ID: "p1", DocumentID: "docA", Text: "Bone density loss under microgravity."},
		{ID: "p2", DocumentID: "docB", Text: "Plant growth in orbital habitats."},
	}
}

func TestIndexRebuilder_RebuildSwapsIndex(t *testing.T) {
	holder := domain.NewIndexHolder(nil)
	rebuilder := NewIndexRebuilder(&stubRepo{chunks: corpus()}, holder, 0, testLogger())

	require.Nil(t, holder.Load())
	require.NoError(t, rebuilder.Rebuild(context.Background()))

	index := holder.Load()
	require.NotNil(t, index)
	results := index.Search("bone density", nil, 5, 0.5)
	require.NotEmpty(t, results)
	assert.Equal(t, "p1", results[0].ID)
}

func TestIndexRebuilder_SnapshotFailureKeepsOldIndex(t *testing.T) {
	old := domain.NewLexicalIndex(corpus())
	holder := domain.NewIndexHolder(old)
	rebuilder := NewIndexRebuilder(&stubRepo{err: errors.New("store down")}, holder, 0, testLogger())

	err := rebuilder.Rebuild(context.Background())
	require.Error(t, err)
	assert.Same(t, old, holder.Load())
}

func TestIndexRebuilder_EmptySnapshotIsError(t *testing.T) {
	holder := domain.NewIndexHolder(nil)
	rebuilder := NewIndexRebuilder(&stubRepo{}, holder, 0, testLogger())

	err := rebuilder.Rebuild(context.Background())
	require.Error(t, err)
	assert.Nil(t, holder.Load())
}

func TestIndexRebuilder_PeriodicLoop(t *testing.T) {
	repo := &stubRepo{chunks: corpus()}
	holder := domain.NewIndexHolder(nil)
	rebuilder := NewIndexRebuilder(repo, holder, 10*time.Millisecond, testLogger())

	rebuilder.Start()
	defer rebuilder.Stop()

	assert.Eventually(t, func() bool {
		return holder.Load() != nil
	}, time.Second, 5*time.Millisecond)
}

func TestIndexRebuilder_StartWithZeroIntervalIsNoop(t *testing.T) {
	repo := &stubRepo{chunks: corpus()}
	rebuilder := NewIndexRebuilder(repo, domain.NewIndexHolder(nil), 0, testLogger())

	rebuilder.Start()
	time.Sleep(20 * time.Millisecond)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Zero(t, repo.calls)
}

func TestIndexRebuilder_BackoffGrowsAndResets(t *testing.T) {
	rebuilder := NewIndexRebuilder(&stubRepo{}, domain.NewIndexHolder(nil), 0, testLogger())

	b1 := rebuilder.nextBackoff(0)
	b2 := rebuilder.nextBackoff(b1)
	assert.Equal(t, initialBackoff, b1)
	assert.Equal(t, 2*initialBackoff, b2)
	assert.Equal(t, maxBackoff, rebuilder.nextBackoff(maxBackoff))
}
