// Package indexer embeds chunks and upserts them into a vector store in batches.
package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mikeboe/sitechat/pkg/chunker"
	"github.com/mikeboe/sitechat/pkg/embeddings"
	"github.com/mikeboe/sitechat/pkg/metrics"
	"github.com/mikeboe/sitechat/pkg/retry"
	"github.com/mikeboe/sitechat/pkg/vectorstore"
)

const (
	DefaultBatchSize = 100
	// ExcerptLength caps the chunk text stored as metadata, in runes.
	ExcerptLength = 500
)

// ChunkError records a chunk that was skipped.
type ChunkError struct {
	ID  string
	Err error
}

func (e ChunkError) Error() string {
	return fmt.Sprintf("chunk %s: %v", e.ID, e.Err)
}

func (e ChunkError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	}{e.ID, e.Err.Error()})
}

// Result summarizes one indexing run.
type Result struct {
	Embedded int          `json:"embedded"`
	Skipped  int          `json:"skipped"`
	Upserted int          `json:"upserted"`
	Batches  int          `json:"batches"`
	Failed   []ChunkError `json:"failed,omitempty"`
}

// Progress is reported after every embedded chunk and every upserted batch.
type Progress struct {
	Embedded int
	Total    int
	Batches  int
	Upserted int
}

type Indexer struct {
	embedder    embeddings.Embedder
	store       vectorstore.Store
	batchSize   int
	upsertRetry retry.Policy
	skipFailed  bool
	progress    func(Progress)
	logger      *slog.Logger
}

type Option func(*Indexer)

func WithBatchSize(n int) Option {
	return func(ix *Indexer) {
		if n > 0 {
			ix.batchSize = n
		}
	}
}

// WithUpsertPolicy sets the retry policy for batch upserts.
func WithUpsertPolicy(p retry.Policy) Option {
	return func(ix *Indexer) {
		ix.upsertRetry = p
	}
}

// SkipFailed keeps going when a chunk cannot be embedded and reports it in
// Result.Failed. Without it the first such chunk aborts the run.
func SkipFailed() Option {
	return func(ix *Indexer) {
		ix.skipFailed = true
	}
}

func WithProgress(fn func(Progress)) Option {
	return func(ix *Indexer) {
		ix.progress = fn
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// New creates an indexer. Batch upserts reuse the embedder's retry policy
// when it has one.
func New(embedder embeddings.Embedder, store vectorstore.Store, opts ...Option) *Indexer {
	policy := retry.Default(nil)
	if p, ok := embedder.(interface{ Policy() retry.Policy }); ok {
		policy.MaxAttempts = p.Policy().MaxAttempts
		policy.Delay = p.Policy().Delay
	}
	policy.Retryable = retryableUpsert

	ix := &Indexer{
		embedder:    embedder,
		store:       store,
		batchSize:   DefaultBatchSize,
		upsertRetry: policy,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

func retryableUpsert(err error) bool {
	return !errors.Is(err, vectorstore.ErrDimensionMismatch) &&
		!errors.Is(err, vectorstore.ErrEmptyID) &&
		!errors.Is(err, context.Canceled)
}

// Index embeds every chunk and upserts the vectors batch by batch.
func (ix *Indexer) Index(ctx context.Context, chunks []chunker.Chunk) (Result, error) {
	var res Result
	dim := ix.store.Dimension()
	if ix.embedder.Dimension() != dim {
		return res, fmt.Errorf("%w: embedder produces %d, store %d", vectorstore.ErrDimensionMismatch, ix.embedder.Dimension(), dim)
	}

	ix.logger.Info("Indexing chunks", "chunks", len(chunks), "batch_size", ix.batchSize)

	batch := make([]vectorstore.Record, 0, ix.batchSize)
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Text) == "" {
			res.Skipped++
			continue
		}

		vec, err := ix.embed(ctx, ch, dim)
		if err != nil {
			if ctx.Err() != nil {
				return res, err
			}
			if !ix.skipFailed {
				return res, err
			}
			res.Failed = append(res.Failed, ChunkError{ID: ch.ID, Err: err})
			metrics.Get().ChunkFailures.Inc()
			ix.logger.Warn("Skipping chunk", "chunk_id", ch.ID, "error", err)
			continue
		}

		res.Embedded++
		metrics.Get().ChunksEmbedded.Inc()
		batch = append(batch, vectorstore.Record{
			ID:        ch.ID,
			Embedding: vec,
			Metadata:  vectorstore.Metadata{URL: ch.URL, Text: Excerpt(ch.Text, ExcerptLength)},
		})
		ix.report(res, len(chunks))

		if len(batch) == ix.batchSize {
			if err := ix.flush(ctx, batch, &res); err != nil {
				return res, err
			}
			batch = make([]vectorstore.Record, 0, ix.batchSize)
			ix.report(res, len(chunks))
		}
	}

	if len(batch) > 0 {
		if err := ix.flush(ctx, batch, &res); err != nil {
			return res, err
		}
		ix.report(res, len(chunks))
	}

	ix.logger.Info("Indexing finished",
		"embedded", res.Embedded,
		"upserted", res.Upserted,
		"batches", res.Batches,
		"failed", len(res.Failed),
	)
	return res, nil
}

func (ix *Indexer) embed(ctx context.Context, ch chunker.Chunk, dim int) ([]float32, error) {
	vec, err := ix.embedder.EmbedText(ctx, ch.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunk %s: %w", ch.ID, err)
	}
	if len(vec) != dim {
		return nil, fmt.Errorf("failed to embed chunk %s: %w: got %d values, want %d", ch.ID, vectorstore.ErrDimensionMismatch, len(vec), dim)
	}
	return vec, nil
}

func (ix *Indexer) flush(ctx context.Context, batch []vectorstore.Record, res *Result) error {
	first, last := batch[0].ID, batch[len(batch)-1].ID
	policy := ix.upsertRetry
	policy.OnRetry = func(next int, err error) {
		ix.logger.Warn("Retrying batch upsert", "first", first, "last", last, "attempt", next, "error", err)
	}

	if err := policy.Do(ctx, func(ctx context.Context) error {
		return ix.store.Upsert(ctx, batch)
	}); err != nil {
		return fmt.Errorf("failed to upsert batch %d (%s .. %s): %w", res.Batches+1, first, last, err)
	}

	res.Batches++
	res.Upserted += len(batch)
	metrics.Get().BatchesUpserted.Inc()
	ix.logger.Info("Upserted batch", "batch", res.Batches, "size", len(batch), "upserted", res.Upserted)
	return nil
}

func (ix *Indexer) report(res Result, total int) {
	if ix.progress != nil {
		ix.progress(Progress{Embedded: res.Embedded, Total: total, Batches: res.Batches, Upserted: res.Upserted})
	}
}

// Excerpt returns at most n runes of text.
func Excerpt(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
