package modelgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"scholar-rag/internal/domain"
)

// RerankRequest is the request payload for the rerank endpoint.
type RerankRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
	Model      string   `json:"model,omitempty"`
}

// RerankResponseResult is a single result in the rerank response.
type RerankResponseResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// RerankResponse is the response from the rerank endpoint.
type RerankResponse struct {
	Results []RerankResponseResult `json:"results"`
	Model   string                 `json:"model"`
}

// CrossEncoderClient implements domain.RelevanceModel against an HTTP
// /v1/rerank endpoint serving a cross-encoder model.
type CrossEncoderClient struct {
	BaseURL string
	Model   string
	Client  *http.Client
	logger  *slog.Logger
}

// NewCrossEncoderClient constructs a client for the given service URL and
// model name (e.g. bge-reranker-v2-m3). If client is nil, a default
// http.Client is created with the given timeout.
func NewCrossEncoderClient(baseURL, model string, timeout time.Duration, logger *slog.Logger, client ...*http.Client) *CrossEncoderClient {
	var c *http.Client
	if len(client) > 0 && client[0] != nil {
		c = client[0]
	} else {
		c = &http.Client{Timeout: timeout}
	}
	return &CrossEncoderClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  c,
		logger:  logger,
	}
}

// Score returns one relevance score per passage, in input order. The remote
// endpoint returns results ordered by score with their original index, so
// scores are mapped back by index.
func (c *CrossEncoderClient) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return []float64{}, nil
	}
	start := time.Now()

	reqBody := RerankRequest{
		Query:      query,
		Candidates: passages,
		Model:      c.Model,
	}
	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/rerank", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		c.logger.Warn("cross_encoder_failed",
			slog.String("error", err.Error()),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("failed to call rerank endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Warn("cross_encoder_bad_status",
			slog.Int("status_code", resp.StatusCode),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, fmt.Errorf("rerank endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var rerankResp RerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rerankResp); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}
	if len(rerankResp.Results) != len(passages) {
		return nil, fmt.Errorf("rerank endpoint returned %d results for %d passages", len(rerankResp.Results), len(passages))
	}

	scores := make([]float64, len(passages))
	for _, r := range rerankResp.Results {
		if r.Index < 0 || r.Index >= len(passages) {
			return nil, fmt.Errorf("invalid result index %d for %d passages", r.Index, len(passages))
		}
		scores[r.Index] = r.Score
	}

	c.logger.Info("cross_encoder_completed",
		slog.Int("passage_count", len(passages)),
		slog.String("model", rerankResp.Model),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	return scores, nil
}

// ModelName returns the model identifier for logging.
func (c *CrossEncoderClient) ModelName() string {
	return c.Model
}

var _ domain.RelevanceModel = (*CrossEncoderClient)(nil)
