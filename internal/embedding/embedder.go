// Package embedding wraps the OpenAI-compatible embeddings API.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/opsgraph/opsgraph/internal/metrics"
)

// ErrProvider wraps all embedding API failures for uniform handling upstream.
var ErrProvider = errors.New("embedding: provider error")

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// Embedder is an embedding provider using the OpenAI-compatible API.
type Embedder struct {
	client     *openai.Client
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		logger:     cfg.Logger,
	}
}

// Embed converts text into a vector using the configured model. An empty
// model argument uses the default; callers may override per request.
func (e *Embedder) Embed(ctx context.Context, text, model string) ([]float32, error) {
	if model == "" {
		model = e.model
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(model, "api_error").Inc()
		return nil, parseAPIError(err)
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(model, "empty_response").Inc()
		return nil, fmt.Errorf("empty embedding response: %w", ErrProvider)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	return resp.Data[0].Embedding, nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with ErrProvider for correct 500 mapping.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), ErrProvider)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, ErrProvider)
	}

	return fmt.Errorf("embedding request failed: %w", ErrProvider)
}
