// Package vectorstore upserts embeddings with metadata and runs top-K
// similarity queries against pgvector, Qdrant or an embedded chromem DB.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrInvalidTopK       = errors.New("topK must be positive")
	ErrEmptyID           = errors.New("record id is empty")
)

// Metadata is stored next to every vector.
type Metadata struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Record is one vector to insert or overwrite, keyed by ID.
type Record struct {
	ID        string
	Embedding []float32
	Metadata  Metadata
}

// Match is one query hit. Higher Score means more similar.
type Match struct {
	ID       string   `json:"id"`
	Score    float32  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// Store is a namespace of fixed-dimension vectors.
type Store interface {
	// Upsert writes all records or fails. Existing IDs are overwritten.
	Upsert(ctx context.Context, records []Record) error
	// Query returns at most topK matches, most similar first.
	Query(ctx context.Context, embedding []float32, topK int) ([]Match, error)
	Dimension() int
	Close() error
}

// validateRecords checks ids and dimensions before anything is sent.
func validateRecords(records []Record, dimension int) error {
	for _, r := range records {
		if r.ID == "" {
			return ErrEmptyID
		}
		if len(r.Embedding) != dimension {
			return fmt.Errorf("%w: record %s has %d values, store expects %d", ErrDimensionMismatch, r.ID, len(r.Embedding), dimension)
		}
	}
	return nil
}

func validateQuery(embedding []float32, topK, dimension int) error {
	if topK <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidTopK, topK)
	}
	if len(embedding) != dimension {
		return fmt.Errorf("%w: query has %d values, store expects %d", ErrDimensionMismatch, len(embedding), dimension)
	}
	return nil
}
