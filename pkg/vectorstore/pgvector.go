package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGVectorStore keeps vectors in a Postgres table with the pgvector extension.
// The table is created by database.CreateEmbeddingsTable.
type PGVectorStore struct {
	pool      *pgxpool.Pool
	tableName string
	dimension int
}

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-zA-Z0-9_]{0,62}$`)

// isValidTableName validates that a table name contains only safe characters
// to prevent SQL injection attacks
func isValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}

// NewPGVectorStore creates a new PGVector store
func NewPGVectorStore(pool *pgxpool.Pool, tableName string, dimension int) (*PGVectorStore, error) {
	if !isValidTableName(tableName) {
		return nil, fmt.Errorf("invalid table name: must contain only alphanumeric characters and underscores, start with a letter or underscore, and be 1-63 characters long")
	}
	return &PGVectorStore{
		pool:      pool,
		tableName: tableName,
		dimension: dimension,
	}, nil
}

func (vs *PGVectorStore) Dimension() int {
	return vs.dimension
}

// Close is a no-op; the pool belongs to database.PostgresDB.
func (vs *PGVectorStore) Close() error {
	return nil
}

func (vs *PGVectorStore) upsertQuery() string {
	return fmt.Sprintf(`
		INSERT INTO %s (id, url, metadata, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET url = EXCLUDED.url,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()
	`, pgx.Identifier{vs.tableName}.Sanitize())
}

// Upsert writes records in one transaction, so a batch lands entirely or not at all.
func (vs *PGVectorStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateRecords(records, vs.dimension); err != nil {
		return err
	}

	query := vs.upsertQuery()
	batch := &pgx.Batch{}
	for _, rec := range records {
		metadataJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", rec.ID, err)
		}
		batch.Queue(query, rec.ID, rec.Metadata.URL, metadataJSON, pgvector.NewVector(rec.Embedding))
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	br := tx.SendBatch(ctx, batch)
	for _, rec := range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("failed to upsert record %s: %w", rec.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// Query performs a cosine similarity search
func (vs *PGVectorStore) Query(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	if err := validateQuery(embedding, topK, vs.dimension); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, metadata, 1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pgx.Identifier{vs.tableName}.Sanitize())

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m            Match
			metadataJSON []byte
			similarity   float64
		)
		if err := rows.Scan(&m.ID, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", m.ID, err)
		}
		m.Score = float32(similarity)
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return matches, nil
}
