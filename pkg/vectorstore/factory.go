package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikeboe/sitechat/pkg/config"
	"github.com/mikeboe/sitechat/pkg/database"
)

// NewFromConfig opens the configured backend. db is only needed for pgvector.
func NewFromConfig(ctx context.Context, cfg *config.Config, db *database.PostgresDB) (Store, error) {
	switch cfg.VectorStore {
	case config.StorePGVector:
		if db == nil {
			return nil, errors.New("pgvector store needs a database connection")
		}
		if err := db.EnsureVectorExtension(ctx); err != nil {
			return nil, err
		}
		if err := db.CreateEmbeddingsTable(ctx, cfg.IndexName, cfg.EmbeddingDimension); err != nil {
			return nil, err
		}
		return NewPGVectorStore(db.Pool, cfg.IndexName, cfg.EmbeddingDimension)
	case config.StoreQdrant:
		return NewQdrantStore(ctx, QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantApiKey,
			UseTLS:     cfg.QdrantTLS,
			Collection: cfg.IndexName,
			Dimension:  cfg.EmbeddingDimension,
		})
	case config.StoreChromem:
		return NewChromemStore(cfg.ChromemPath, cfg.IndexName, cfg.EmbeddingDimension)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownVectorStore, cfg.VectorStore)
	}
}
