package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"scholar-rag/internal/domain"
	"scholar-rag/internal/usecase"
	"scholar-rag/internal/usecase/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// MockVectorEncoder is a test double for domain.VectorEncoder.
type MockVectorEncoder struct {
	mock.Mock
}

func (m *MockVectorEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockVectorEncoder) Version() string { return "mock-encoder" }

// MockSearcher is a test double for domain.VectorSearcher.
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, queryVector []float32, filters domain.FilterFacets, topK int, minSimilarity float64) (domain.RankedList, error) {
	args := m.Called(ctx, queryVector, filters, topK, minSimilarity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.RankedList), args.Error(1)
}

// MockReranker is a test double for domain.Reranker.
type MockReranker struct {
	mock.Mock
}

func (m *MockReranker) Rerank(ctx context.Context, query string, expansionTerms []string, candidates domain.RankedList, topK int) (domain.RankedList, error) {
	args := m.Called(ctx, query, expansionTerms, candidates, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.RankedList), args.Error(1)
}

func (m *MockReranker) Name() string { return "mock-reranker" }

func testExpander() *domain.TermExpander {
	return domain.NewTermExpander(map[string][]string{
		"microgravity": {"microgravity", "weightlessness", "gravity"},
		"bone":         {"bone", "skeletal", "osteo"},
	}, 0)
}

func corpusSnapshot() []domain.Candidate {
	return []domain.Candidate{
		{ID: "lex1", DocumentID: "docL1", Text: "Bone density loss was observed under microgravity conditions.", Section: domain.SectionResults},
		{ID: "lex2", DocumentID: "docL2", Text: "Plant roots showed altered growth in orbit.", Section: domain.SectionResults},
	}
}

func newRetrieveUsecase(encoder domain.VectorEncoder, searcher domain.VectorSearcher, index *domain.IndexHolder, primary, fallback domain.Reranker) usecase.RetrieveUsecase {
	return usecase.NewRetrieveUsecase(
		encoder, searcher, index, testExpander(), primary, fallback,
		usecase.DefaultPipelineConfig(), discardLogger(),
	)
}

func heuristic() *retrieval.HeuristicReranker {
	return retrieval.NewHeuristicReranker(retrieval.DefaultHeuristicConfig(), discardLogger())
}

func TestRetrieveUsecase_HybridHappyPath(t *testing.T) {
	encoder := new(MockVectorEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.1, 0.2}}, nil)

	searcher := new(MockSearcher)
	dense := domain.RankedList{
		{ID: "d1", DocumentID: "docD1", Text: "Skeletal unloading reduced bone formation.", Section: domain.SectionResults, DenseScore: 0.6},
		{ID: "lex1", DocumentID: "docL1", Text: "Bone density loss was observed under microgravity conditions.", Section: domain.SectionResults, DenseScore: 0.9},
	}
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(dense, nil)

	index := domain.NewIndexHolder(domain.NewLexicalIndex(corpusSnapshot()))

	out, err := newRetrieveUsecase(encoder, searcher, index, heuristic(), nil).
		Execute(context.Background(), usecase.RetrieveInput{Query: "bone density in microgravity"})
	require.NoError(t, err)

	require.NotEmpty(t, out.Candidates)
	// lex1 appears in both branches, so fusion must rank it first.
	assert.Equal(t, "lex1", out.Candidates[0].ID)
	assert.Equal(t, "heuristic_multi_signal", out.RerankerUsed)
	assert.ElementsMatch(t, []string{"bone", "microgravity"}, out.Expansion.MatchedKeys)
	assert.Contains(t, out.UsedFilters.Tags, "skeletal")
	assert.Greater(t, out.FusedCount, 0)
}

func TestRetrieveUsecase_DenseBranchFailureDegradesToLexical(t *testing.T) {
	encoder := new(MockVectorEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.1}}, nil)

	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("vector store unreachable"))

	index := domain.NewIndexHolder(domain.NewLexicalIndex(corpusSnapshot()))

	out, err := newRetrieveUsecase(encoder, searcher, index, heuristic(), nil).
		Execute(context.Background(), usecase.RetrieveInput{Query: "bone density loss"})
	require.NoError(t, err)
	require.NotEmpty(t, out.Candidates)
	assert.Equal(t, "lex1", out.Candidates[0].ID)
}

func TestRetrieveUsecase_AllBranchesFailedIsEmptyNotError(t *testing.T) {
	encoder := new(MockVectorEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.1}}, nil)

	searcher := new(MockSearcher)
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("vector store unreachable"))

	index := domain.NewIndexHolder(nil) // lexical unavailable

	out, err := newRetrieveUsecase(encoder, searcher, index, heuristic(), nil).
		Execute(context.Background(), usecase.RetrieveInput{Query: "bone density"})
	require.NoError(t, err)
	assert.Empty(t, out.Candidates)
}

func TestRetrieveUsecase_EncoderFailureIsExternalModelError(t *testing.T) {
	encoder := new(MockVectorEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).Return(nil, errors.New("embedding service down"))

	searcher := new(MockSearcher)
	index := domain.NewIndexHolder(domain.NewLexicalIndex(corpusSnapshot()))

	_, err := newRetrieveUsecase(encoder, searcher, index, heuristic(), nil).
		Execute(context.Background(), usecase.RetrieveInput{Query: "bone density"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalModel)
}

func TestRetrieveUsecase_MalformedFilterRejectedBeforeRetrieval(t *testing.T) {
	encoder := new(MockVectorEncoder)
	searcher := new(MockSearcher)
	index := domain.NewIndexHolder(nil)

	_, err := newRetrieveUsecase(encoder, searcher, index, heuristic(), nil).
		Execute(context.Background(), usecase.RetrieveInput{
			Query:   "bone density",
			Filters: domain.FilterFacets{Years: &domain.YearRange{From: 2024, To: 2000}},
		})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedFilter)
	encoder.AssertNotCalled(t, "Encode")
	searcher.AssertNotCalled(t, "Search")
}

func TestRetrieveUsecase_EmptyQueryRejected(t *testing.T) {
	_, err := newRetrieveUsecase(new(MockVectorEncoder), new(MockSearcher), domain.NewIndexHolder(nil), heuristic(), nil).
		Execute(context.Background(), usecase.RetrieveInput{Query: "   "})
	assert.Error(t, err)
}

func TestRetrieveUsecase_FallbackRerankerOnPrimaryFailure(t *testing.T) {
	encoder := new(MockVectorEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.1}}, nil)

	searcher := new(MockSearcher)
	dense := domain.RankedList{
		{ID: "d1", DocumentID: "docD1", Text: "Skeletal unloading reduced bone formation.", DenseScore: 0.9},
	}
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(dense, nil)

	primary := new(MockReranker)
	primary.On("Rerank", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("cross-encoder down"))

	index := domain.NewIndexHolder(domain.NewLexicalIndex(corpusSnapshot()))

	out, err := newRetrieveUsecase(encoder, searcher, index, primary, heuristic()).
		Execute(context.Background(), usecase.RetrieveInput{Query: "bone density"})
	require.NoError(t, err)
	assert.Equal(t, "heuristic_multi_signal", out.RerankerUsed)
	assert.NotEmpty(t, out.Candidates)
}

func TestRetrieveUsecase_PrimaryFailureWithoutFallbackPropagates(t *testing.T) {
	encoder := new(MockVectorEncoder)
	encoder.On("Encode", mock.Anything, mock.Anything).Return([][]float32{{0.1}}, nil)

	searcher := new(MockSearcher)
	dense := domain.RankedList{{ID: "d1", DocumentID: "docD1", Text: "passage", DenseScore: 0.9}}
	searcher.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(dense, nil)

	primary := new(MockReranker)
	primary.On("Rerank", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("cross-encoder down"))

	index := domain.NewIndexHolder(nil)

	_, err := newRetrieveUsecase(encoder, searcher, index, primary, nil).
		Execute(context.Background(), usecase.RetrieveInput{Query: "bone density"})
	assert.Error(t, err)
}
