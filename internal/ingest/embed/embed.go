// Package embed computes VECTOR field values for ingest events that arrive
// without a precomputed embedding, via an OpenAI-compatible embeddings
// endpoint.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// ErrProviderError wraps any failure from the embeddings endpoint itself,
// as distinct from a caller mistake (bad config, empty input).
var ErrProviderError = errors.New("embedding provider error")

// Config holds the embedding provider's connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Dims    int
}

// Embedder computes a single dense vector per call via the configured
// OpenAI-compatible endpoint.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dims   int
	logger *slog.Logger
}

// New builds an Embedder from cfg.
func New(cfg Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Embedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  openai.EmbeddingModel(cfg.Model),
		dims:   cfg.Dims,
		logger: slog.Default().With("component", "embedder"),
	}
}

// Embed returns the dense embedding for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dims > 0 {
		req.Dimensions = e.dims
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		e.logger.Error("embedding request failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProviderError, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", ErrProviderError)
	}
	return resp.Data[0].Embedding, nil
}
