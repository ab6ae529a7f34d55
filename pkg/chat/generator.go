package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/mikeboe/sitechat/pkg/config"
)

var ErrNoAnswer = errors.New("model returned no answer")

// Generator produces one assistant message from an ordered message list.
type Generator interface {
	Generate(ctx context.Context, messages []llms.MessageContent) (string, error)
}

// LLMGenerator adapts a langchaingo model.
type LLMGenerator struct {
	model llms.Model
	opts  []llms.CallOption
}

func NewLLMGenerator(model llms.Model, opts ...llms.CallOption) *LLMGenerator {
	return &LLMGenerator{model: model, opts: opts}
}

// NewGeneratorFromConfig creates the chat model for the configured provider.
func NewGeneratorFromConfig(ctx context.Context, cfg *config.Config) (*LLMGenerator, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		llm, err := openai.New(openai.WithToken(cfg.OpenAIApiKey), openai.WithModel(cfg.ChatModel))
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
		}
		return NewLLMGenerator(llm), nil
	case config.ProviderGoogle:
		llm, err := googleai.New(ctx, googleai.WithAPIKey(cfg.GoogleApiKey), googleai.WithDefaultModel(cfg.ChatModel))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return NewLLMGenerator(llm), nil
	case config.ProviderAnthropic:
		llm, err := anthropic.New(anthropic.WithToken(cfg.AnthropicApiKey), anthropic.WithModel(cfg.ChatModel))
		if err != nil {
			return nil, fmt.Errorf("failed to create Anthropic client: %w", err)
		}
		return NewLLMGenerator(llm), nil
	default:
		return nil, fmt.Errorf("%w: llm provider %q", config.ErrUnknownProvider, cfg.LLMProvider)
	}
}

func (g *LLMGenerator) Generate(ctx context.Context, messages []llms.MessageContent) (string, error) {
	resp, err := g.model.GenerateContent(ctx, messages, g.opts...)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrNoAnswer
	}
	return resp.Choices[0].Content, nil
}
