package usecase_test

import (
	"context"
	"errors"
	"testing"

	"scholar-rag/internal/domain"
	"scholar-rag/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLLMClient is a test double for domain.LLMClient.
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string, maxTokens int) (*domain.LLMResponse, error) {
	args := m.Called(ctx, prompt, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LLMResponse), args.Error(1)
}

func (m *MockLLMClient) Version() string { return "mock-llm" }

// stubRetrieve returns a canned retrieval result.
type stubRetrieve struct {
	out *usecase.RetrieveOutput
	err error
}

func (s *stubRetrieve) Execute(ctx context.Context, input usecase.RetrieveInput) (*usecase.RetrieveOutput, error) {
	return s.out, s.err
}

func retrievedCandidates() domain.RankedList {
	return domain.RankedList{
		{ID: "p1", DocumentID: "docA", Title: "Bone Study", Year: 2021, Text: "Bone density decreased by 20% after 30 days.", Section: domain.SectionResults, DenseScore: 0.9, RerankScore: 0.8, RerankPosition: 1},
		{ID: "p2", DocumentID: "docB", Title: "Muscle Study", Year: 2020, Text: "Muscle atrophy was observed in hindlimbs.", Section: domain.SectionDiscussion, DenseScore: 0.8, RerankScore: 0.7, RerankPosition: 2},
	}
}

func newAnswerUsecase(retrieve usecase.RetrieveUsecase, llm domain.LLMClient) usecase.AnswerUsecase {
	cfg := usecase.DefaultPipelineConfig()
	return usecase.NewAnswerUsecase(
		retrieve,
		usecase.NewContextAssembler(cfg.Context),
		usecase.NewSynthesisPromptBuilder(),
		llm,
		cfg,
		discardLogger(),
	)
}

func TestAnswerUsecase_HappyPath(t *testing.T) {
	retrieve := &stubRetrieve{out: &usecase.RetrieveOutput{
		Candidates:   retrievedCandidates(),
		FusedCount:   5,
		RerankerUsed: "cross_encoder",
	}}
	llm := new(MockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.LLMResponse{Text: "Bone density decreased [1]. Muscle atrophy was noted [2].", Done: true}, nil)

	out, err := newAnswerUsecase(retrieve, llm).Execute(context.Background(), usecase.AnswerInput{Query: "what happens to bone in space"})
	require.NoError(t, err)

	assert.False(t, out.Empty)
	assert.Equal(t, "Bone density decreased [1]. Muscle atrophy was noted [2].", out.Answer)
	require.Len(t, out.Citations, 2)
	assert.Equal(t, 1, out.Citations[0].Marker)
	assert.Equal(t, "p1", out.Citations[0].ID)

	assert.Equal(t, 2, out.Metrics.RetrievedK)
	assert.Equal(t, 3, out.Metrics.DedupCount) // 5 fused - 2 assembled
	assert.InDelta(t, 1.0, out.Metrics.GroundedRatio, 1e-9)
	assert.Equal(t, map[string]int{"results": 1, "discussion": 1}, out.Metrics.SectionDistribution)
	assert.NotEmpty(t, out.RequestID)

	// The prompt carries the numbered context and the question.
	promptArg := llm.Calls[0].Arguments.String(1)
	assert.Contains(t, promptArg, "[1] Section: results")
	assert.Contains(t, promptArg, "what happens to bone in space")
}

func TestAnswerUsecase_EmptyRetrievalYieldsFixedMessage(t *testing.T) {
	retrieve := &stubRetrieve{out: &usecase.RetrieveOutput{}}
	llm := new(MockLLMClient)

	out, err := newAnswerUsecase(retrieve, llm).Execute(context.Background(), usecase.AnswerInput{Query: "anything"})
	require.NoError(t, err)

	assert.True(t, out.Empty)
	assert.Equal(t, usecase.EmptyResultAnswer, out.Answer)
	assert.Empty(t, out.Citations)
	assert.Zero(t, out.Metrics.RetrievedK)
	assert.Zero(t, out.Metrics.GroundedRatio)
	llm.AssertNotCalled(t, "Generate")
}

func TestAnswerUsecase_LLMFailureIsExternalModelError(t *testing.T) {
	retrieve := &stubRetrieve{out: &usecase.RetrieveOutput{Candidates: retrievedCandidates(), FusedCount: 2}}
	llm := new(MockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("model unreachable"))

	_, err := newAnswerUsecase(retrieve, llm).Execute(context.Background(), usecase.AnswerInput{Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalModel)
}

func TestAnswerUsecase_BlankLLMResponseIsFailure(t *testing.T) {
	retrieve := &stubRetrieve{out: &usecase.RetrieveOutput{Candidates: retrievedCandidates(), FusedCount: 2}}
	llm := new(MockLLMClient)
	llm.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(&domain.LLMResponse{Text: "   ", Done: true}, nil)

	_, err := newAnswerUsecase(retrieve, llm).Execute(context.Background(), usecase.AnswerInput{Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalModel)
}

func TestAnswerUsecase_RetrievalErrorPropagates(t *testing.T) {
	retrieve := &stubRetrieve{err: domain.ErrMalformedFilter}
	llm := new(MockLLMClient)

	_, err := newAnswerUsecase(retrieve, llm).Execute(context.Background(), usecase.AnswerInput{Query: "q"})
	assert.ErrorIs(t, err, domain.ErrMalformedFilter)
}
