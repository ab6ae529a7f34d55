// Package chat answers questions about the indexed site from retrieved
// context and keeps conversation history.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mikeboe/sitechat/pkg/embeddings"
	"github.com/mikeboe/sitechat/pkg/metrics"
	"github.com/mikeboe/sitechat/pkg/retry"
	"github.com/mikeboe/sitechat/pkg/vectorstore"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	DefaultTopK = 5
)

var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrInvalidRole   = errors.New("invalid role")
)

// Turn is one message of the conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Answer is a generated reply together with the chunks it was grounded on.
type Answer struct {
	Text    string              `json:"answer"`
	Sources []vectorstore.Match `json:"sources"`
}

// Responder retrieves the top-K chunks for a question and asks the model to
// answer from them.
type Responder struct {
	embedder    embeddings.Embedder
	store       vectorstore.Store
	generator   Generator
	topK        int
	persona     func() string
	generateRun retry.Policy
	logger      *slog.Logger
}

type Option func(*Responder)

func WithTopK(k int) Option {
	return func(r *Responder) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithPersona sets the name the assistant speaks as. It is read on every
// request, so settings changes apply immediately.
func WithPersona(fn func() string) Option {
	return func(r *Responder) {
		if fn != nil {
			r.persona = fn
		}
	}
}

// WithGeneratePolicy sets the retry policy for generation calls.
func WithGeneratePolicy(p retry.Policy) Option {
	return func(r *Responder) {
		r.generateRun = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Responder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResponder wires the embedder, store and generator. Generation shares the
// embedder's retry policy when it has one.
func NewResponder(embedder embeddings.Embedder, store vectorstore.Store, generator Generator, opts ...Option) *Responder {
	policy := retry.Policy{MaxAttempts: 1}
	if p, ok := embedder.(interface{ Policy() retry.Policy }); ok {
		policy = p.Policy()
	}
	policy.Retryable = embeddings.IsTransient

	r := &Responder{
		embedder:    embedder,
		store:       store,
		generator:   generator,
		topK:        DefaultTopK,
		persona:     func() string { return "this company" },
		generateRun: policy,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search returns the topK chunks most similar to query.
func (r *Responder) Search(ctx context.Context, query string, topK int) ([]vectorstore.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuestion
	}
	if topK <= 0 {
		topK = r.topK
	}
	vec, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	matches, err := r.store.Query(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}
	return matches, nil
}

// Respond answers question given the prior history and returns the trimmed text.
func (r *Responder) Respond(ctx context.Context, history []Turn, question string) (string, error) {
	answer, err := r.Answer(ctx, history, question)
	if err != nil {
		return "", err
	}
	return answer.Text, nil
}

// Answer is Respond with the retrieved sources attached.
func (r *Responder) Answer(ctx context.Context, history []Turn, question string) (*Answer, error) {
	start := time.Now()
	answer, err := r.answer(ctx, history, question)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.Get().Responses.WithLabelValues(status).Inc()
	metrics.Get().ResponseDuration.Observe(time.Since(start).Seconds())
	return answer, err
}

func (r *Responder) answer(ctx context.Context, history []Turn, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	matches, err := r.Search(ctx, question, r.topK)
	if err != nil {
		return nil, err
	}
	contextBlock := BuildContext(matches)

	messages, err := BuildMessages(r.persona(), history, contextBlock, question)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Generating answer", "matches", len(matches), "history", len(history), "context_chars", len(contextBlock))

	text, err := retry.Do(ctx, r.generateRun, func(ctx context.Context) (string, error) {
		return r.generator.Generate(ctx, messages)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	return &Answer{Text: strings.TrimSpace(text), Sources: matches}, nil
}
