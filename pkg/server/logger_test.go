package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLogHandler(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryJobStore()
	job, err := store.CreateJob(ctx, "https://example.com", 5)
	require.NoError(t, err)

	logger := slog.New(NewJobLogHandler(store, job.ID, nil)).With("job_id", job.ID.String())
	logger.Debug("not stored")
	logger.Info("Scraped page", "url", "https://example.com/", "chars", 120)
	logger.Error("Ingest failed", "error", errors.New("boom"))

	logs, err := store.GetJobLogs(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, "Scraped page", logs[0].Message)
	assert.Equal(t, "INFO", logs[0].Level)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(logs[0].Metadata, &meta))
	assert.Equal(t, "https://example.com/", meta["url"])
	assert.Equal(t, job.ID.String(), meta["job_id"])

	require.NoError(t, json.Unmarshal(logs[1].Metadata, &meta))
	assert.Equal(t, "boom", meta["error"])
	assert.Equal(t, "ERROR", logs[1].Level)
	assert.Less(t, logs[0].ID, logs[1].ID)
}
