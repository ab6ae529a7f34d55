package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/philippgille/chromem-go"
)

var errNoEmbeddingFunc = errors.New("chromem store only accepts precomputed embeddings")

// ChromemStore is an embedded vector store. An empty path keeps everything in memory.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimension  int
}

func NewChromemStore(path, collectionName string, dimension int) (*ChromemStore, error) {
	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", path, err)
		}
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem DB: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, func(context.Context, string) ([]float32, error) {
		return nil, errNoEmbeddingFunc
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection %s: %w", collectionName, err)
	}

	return &ChromemStore{db: db, collection: collection, dimension: dimension}, nil
}

func (s *ChromemStore) Dimension() int {
	return s.dimension
}

// Close is a no-op; persistent documents are written on every upsert.
func (s *ChromemStore) Close() error {
	return nil
}

// Count returns the number of vectors in the collection.
func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

func (s *ChromemStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateRecords(records, s.dimension); err != nil {
		return err
	}

	docs := make([]chromem.Document, len(records))
	for i, rec := range records {
		docs[i] = chromem.Document{
			ID:        rec.ID,
			Content:   rec.Metadata.Text,
			Embedding: append([]float32(nil), rec.Embedding...),
			Metadata: map[string]string{
				"url":  rec.Metadata.URL,
				"text": rec.Metadata.Text,
			},
		}
	}

	// Documents are keyed by ID, so a repeated ID replaces the old vector.
	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to upsert %d records: %w", len(records), err)
	}
	return nil
}

func (s *ChromemStore) Query(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	if err := validateQuery(embedding, topK, s.dimension); err != nil {
		return nil, err
	}

	// chromem requires nResults <= document count
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := s.collection.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", s.collection.Name, err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			ID:    r.ID,
			Score: r.Similarity,
			Metadata: Metadata{
				URL:  r.Metadata["url"],
				Text: r.Metadata["text"],
			},
		}
	}
	return matches, nil
}
