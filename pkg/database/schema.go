package database

import (
	"context"
	"fmt"
)

// InitSchema creates the tables used by the server: ingest jobs with their
// logs, and chat conversations with their messages.
func (db *PostgresDB) InitSchema(ctx context.Context) error {
	statements := []struct {
		name  string
		query string
	}{
		{"ingest_jobs", `
			CREATE TABLE IF NOT EXISTS ingest_jobs (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				base_url TEXT NOT NULL,
				max_pages INTEGER NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				pages INTEGER NOT NULL DEFAULT 0,
				chunks INTEGER NOT NULL DEFAULT 0,
				upserted INTEGER NOT NULL DEFAULT 0,
				error TEXT,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			)`},
		{"ingest_logs", `
			CREATE TABLE IF NOT EXISTS ingest_logs (
				id SERIAL PRIMARY KEY,
				job_id UUID NOT NULL REFERENCES ingest_jobs(id) ON DELETE CASCADE,
				timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				level TEXT NOT NULL,
				message TEXT NOT NULL,
				metadata JSONB
			)`},
		{"conversations", `
			CREATE TABLE IF NOT EXISTS conversations (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				title TEXT NOT NULL DEFAULT 'New Conversation',
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			)`},
		{"messages", `
			CREATE TABLE IF NOT EXISTS messages (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
				role TEXT NOT NULL,
				content TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			)`},
		{"ingest_logs index", "CREATE INDEX IF NOT EXISTS idx_ingest_logs_job_id ON ingest_logs(job_id)"},
		{"ingest_jobs index", "CREATE INDEX IF NOT EXISTS idx_ingest_jobs_created_at ON ingest_jobs(created_at DESC)"},
		{"messages index", "CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id)"},
		{"conversations index", "CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at DESC)"},
	}

	for _, st := range statements {
		if _, err := db.Pool.Exec(ctx, st.query); err != nil {
			return fmt.Errorf("failed to create %s: %w", st.name, err)
		}
	}
	return nil
}
