package embeddings

import (
	"context"
	"fmt"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIEmbedder embeds text through the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	embedder  lcembeddings.Embedder
	dimension int
}

// NewOpenAIEmbedder creates an embedder for model. Extra options (base URL,
// HTTP client) are passed to the underlying client.
func NewOpenAIEmbedder(model, apiKey string, dimension int, opts ...openai.Option) (*OpenAIEmbedder, error) {
	opts = append([]openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	}, opts...)

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	embedder, err := lcembeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI embedder: %w", err)
	}

	return &OpenAIEmbedder{embedder: embedder, dimension: dimension}, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	if len(vec) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return vec, nil
}
