package di

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"scholar-rag/internal/adapter/expansion"
	"scholar-rag/internal/adapter/modelgateway"
	"scholar-rag/internal/adapter/vectorstore"
	"scholar-rag/internal/domain"
	"scholar-rag/internal/infra/config"
	"scholar-rag/internal/infra/httpclient"
	"scholar-rag/internal/usecase"
	"scholar-rag/internal/usecase/retrieval"
	"scholar-rag/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	Repo        domain.DocumentRepository
	Encoder     domain.VectorEncoder
	IndexHolder *domain.IndexHolder
	Rebuilder   *worker.IndexRebuilder

	RetrieveUsecase usecase.RetrieveUsecase
	AnswerUsecase   usecase.AnswerUsecase

	SnapshotRunner *vectorstore.SnapshotRunner
}

// NewApplicationComponents wires all dependencies from config and database
// pool. The lexical index holder starts empty; callers run an initial
// Rebuilder.Rebuild before serving.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) (*ApplicationComponents, error) {
	repo := vectorstore.NewPostgresDocumentRepository(pool, log)

	// Shared HTTP clients with connection pooling.
	embedderHTTP := httpclient.NewPooledClient(cfg.Embedder.Timeout)
	generatorHTTP := httpclient.NewPooledClient(cfg.Generator.Timeout)
	rerankHTTP := httpclient.NewPooledClient(cfg.Reranker.Timeout)

	// Model gateway.
	embedder := modelgateway.NewOllamaEmbedder(cfg.Embedder.URL, cfg.Embedder.Model, cfg.Embedder.Timeout, log, embedderHTTP)
	encoder, err := modelgateway.NewCachedEncoder(embedder, cfg.Embedder.CacheSize, log)
	if err != nil {
		return nil, fmt.Errorf("failed to wire embedding cache: %w", err)
	}
	generator := modelgateway.NewOllamaGenerator(
		cfg.Generator.URL, cfg.Generator.Model, cfg.Generator.Timeout,
		cfg.Generator.RequestsPerSecond, log, generatorHTTP,
	)

	// Term expansion dictionary.
	dict, err := expansion.LoadDictionary(cfg.Expansion.DictionaryPath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load expansion dictionary: %w", err)
	}
	expander := dict.NewExpander(cfg.Expansion.MaxTerms)

	// Pipeline configuration from env overrides.
	pipelineCfg := usecase.DefaultPipelineConfig()
	pipelineCfg.Retrieval.TopKDense = cfg.Retrieval.TopKDense
	pipelineCfg.Retrieval.TopKLexical = cfg.Retrieval.TopKLexical
	pipelineCfg.Retrieval.TopKFusion = cfg.Retrieval.TopKFusion
	pipelineCfg.Retrieval.RRFK = cfg.Retrieval.RRFK
	pipelineCfg.Retrieval.MinSimilarity = cfg.Retrieval.MinSimilarity
	pipelineCfg.Retrieval.ExpansionWeight = cfg.Retrieval.ExpansionWeight
	pipelineCfg.Retrieval.BranchTimeout = cfg.Retrieval.BranchTimeout
	pipelineCfg.Rerank.TopSynthesis = cfg.Retrieval.TopSynthesis
	pipelineCfg.Rerank.Timeout = cfg.Reranker.Timeout
	pipelineCfg.Context.MaxTokens = cfg.Retrieval.ContextTokens
	pipelineCfg.Synthesis.MaxTokens = cfg.Retrieval.SynthesisTokens
	pipelineCfg.Synthesis.Timeout = cfg.Generator.Timeout
	if err := pipelineCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}

	// Rerankers: heuristic is always available; the cross-encoder, when
	// enabled, becomes primary with the heuristic as fallback.
	heuristic := retrieval.NewHeuristicReranker(retrieval.DefaultHeuristicConfig(), log)
	var primary domain.Reranker = heuristic
	var fallback domain.Reranker
	if cfg.Reranker.Enabled {
		relevanceModel := modelgateway.NewCrossEncoderClient(
			cfg.Reranker.URL, cfg.Reranker.Model, cfg.Reranker.Timeout, log, rerankHTTP,
		)
		primary = retrieval.NewCrossEncoderReranker(relevanceModel, retrieval.DefaultCrossEncoderConfig(), log)
		fallback = heuristic
		log.Info("cross_encoder_enabled",
			slog.String("url", cfg.Reranker.URL),
			slog.String("model", cfg.Reranker.Model))
	}

	holder := domain.NewIndexHolder(nil)
	rebuilder := worker.NewIndexRebuilder(repo, holder, cfg.IndexRebuildInterval, log)

	retrieveUsecase := usecase.NewRetrieveUsecase(
		encoder, repo, holder, expander, primary, fallback, pipelineCfg, log,
	)

	answerUsecase := usecase.NewAnswerUsecase(
		retrieveUsecase,
		usecase.NewContextAssembler(pipelineCfg.Context),
		usecase.NewSynthesisPromptBuilder(),
		generator,
		pipelineCfg,
		log,
	)

	return &ApplicationComponents{
		Repo:            repo,
		Encoder:         encoder,
		IndexHolder:     holder,
		Rebuilder:       rebuilder,
		RetrieveUsecase: retrieveUsecase,
		AnswerUsecase:   answerUsecase,
		SnapshotRunner:  vectorstore.NewSnapshotRunner(pool),
	}, nil
}
