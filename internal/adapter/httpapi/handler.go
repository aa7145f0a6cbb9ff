package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"scholar-rag/internal/domain"
	"scholar-rag/internal/usecase"

	"github.com/labstack/echo/v4"
)

// IndexReloader rebuilds the lexical index from the current corpus snapshot.
type IndexReloader interface {
	Rebuild(ctx context.Context) error
}

type Handler struct {
	retrieveUsecase usecase.RetrieveUsecase
	answerUsecase   usecase.AnswerUsecase
	repo            domain.DocumentRepository
	reloader        IndexReloader
	logger          *slog.Logger
}

func NewHandler(
	retrieveUsecase usecase.RetrieveUsecase,
	answerUsecase usecase.AnswerUsecase,
	repo domain.DocumentRepository,
	reloader IndexReloader,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		retrieveUsecase: retrieveUsecase,
		answerUsecase:   answerUsecase,
		repo:            repo,
		reloader:        reloader,
		logger:          logger,
	}
}

// Register attaches all routes to the echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/v1/answer", h.Answer)
	e.POST("/v1/retrieve", h.Retrieve)
	e.GET("/v1/facets/:facet", h.FacetCounts)
	e.POST("/internal/index/reload", h.ReloadIndex)
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
}

// Answer runs the full pipeline and synthesizes a grounded answer.
// (POST /v1/answer)
func (h *Handler) Answer(ctx echo.Context) error {
	var req AnswerRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	output, err := h.answerUsecase.Execute(ctx.Request().Context(), usecase.AnswerInput{
		Query:   req.Query,
		Filters: req.Filters.toDomain(),
		TopK:    req.TopK,
	})
	if err != nil {
		return h.errorResponse(ctx, err)
	}

	citations := make([]CitationDTO, 0, len(output.Citations))
	for _, c := range output.Citations {
		citations = append(citations, citationFromUsecase(c))
	}

	return ctx.JSON(http.StatusOK, AnswerResponse{
		Answer:    output.Answer,
		Citations: citations,
		Metrics: MetricsDTO{
			LatencyMS:           output.Metrics.LatencyMS,
			RetrievedK:          output.Metrics.RetrievedK,
			GroundedRatio:       output.Metrics.GroundedRatio,
			DedupCount:          output.Metrics.DedupCount,
			SectionDistribution: output.Metrics.SectionDistribution,
		},
		UsedFilters: filterFromDomain(output.UsedFilters),
		Empty:       output.Empty,
		RequestID:   output.RequestID,
	})
}

// Retrieve returns ranked candidates without synthesis, for diagnostics and
// recall audits.
// (POST /v1/retrieve)
func (h *Handler) Retrieve(ctx echo.Context) error {
	var req RetrieveRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	output, err := h.retrieveUsecase.Execute(ctx.Request().Context(), usecase.RetrieveInput{
		Query:   req.Query,
		Filters: req.Filters.toDomain(),
		TopK:    req.TopK,
	})
	if err != nil {
		return h.errorResponse(ctx, err)
	}

	candidates := make([]CandidateDTO, 0, len(output.Candidates))
	for _, c := range output.Candidates {
		candidates = append(candidates, candidateFromDomain(c))
	}

	return ctx.JSON(http.StatusOK, RetrieveResponse{
		Candidates: candidates,
		Expansion: ExpansionDTO{
			MatchedKeys: output.Expansion.MatchedKeys,
			Terms:       output.Expansion.Terms,
		},
		UsedFilters:  filterFromDomain(output.UsedFilters),
		FusedCount:   output.FusedCount,
		RerankerUsed: output.RerankerUsed,
	})
}

// FacetCounts returns the distinct values and passage counts for one facet
// field, for filter UIs and diagnostics.
// (GET /v1/facets/:facet)
func (h *Handler) FacetCounts(ctx echo.Context) error {
	counts, err := h.repo.FacetCounts(ctx.Request().Context(), ctx.Param("facet"))
	if err != nil {
		return h.errorResponse(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"facet":  ctx.Param("facet"),
		"counts": counts,
	})
}

// ReloadIndex rebuilds the lexical index from the current corpus and swaps it
// in atomically. In-flight searches keep the old index.
// (POST /internal/index/reload)
func (h *Handler) ReloadIndex(ctx echo.Context) error {
	if h.reloader == nil {
		return ctx.JSON(http.StatusNotImplemented, map[string]string{"error": "index reload not configured"})
	}
	if err := h.reloader.Rebuild(ctx.Request().Context()); err != nil {
		h.logger.Error("index_reload_failed", slog.String("error", err.Error()))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "reloaded"})
}

// Healthz reports process liveness.
// (GET /healthz)
func (h *Handler) Healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports readiness: the document store must be reachable.
// (GET /readyz)
func (h *Handler) Readyz(ctx echo.Context) error {
	if err := h.repo.HealthCheck(ctx.Request().Context()); err != nil {
		return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "store down", "error": err.Error()})
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) errorResponse(ctx echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrMalformedFilter):
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrExternalModel):
		h.logger.Error("external_model_error", slog.String("error", err.Error()))
		return ctx.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("request_failed", slog.String("error", err.Error()))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
