// Package embeddings turns text into fixed-length vectors.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mikeboe/sitechat/pkg/config"
	"github.com/mikeboe/sitechat/pkg/retry"
)

var ErrEmptyEmbedding = errors.New("empty embedding returned")

// Embedder embeds one text at a time.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	// Dimension is the length of every vector the embedder returns.
	Dimension() int
}

// NewFromConfig builds the configured provider wrapped in the retry policy.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Retrying, error) {
	var (
		base Embedder
		err  error
	)
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		base, err = NewOpenAIEmbedder(cfg.EmbeddingModel, cfg.OpenAIApiKey, cfg.EmbeddingDimension)
	case config.ProviderGoogle:
		base, err = NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey, cfg.EmbeddingDimension)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.EmbeddingProvider)
	}
	if err != nil {
		return nil, err
	}

	policy := retry.Policy{
		MaxAttempts: cfg.RetryAttempts,
		Delay:       cfg.RetryDelay,
		Retryable:   IsTransient,
	}
	return NewRetrying(base, policy, WithLogger(logger), WithRateLimit(cfg.EmbedRPS)), nil
}
