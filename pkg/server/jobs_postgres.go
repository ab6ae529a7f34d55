package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mikeboe/sitechat/pkg/database"
	"github.com/mikeboe/sitechat/pkg/pipeline"
)

// PostgresJobStore keeps jobs in the ingest_jobs and ingest_logs tables.
type PostgresJobStore struct {
	DB *database.PostgresDB
}

func NewPostgresJobStore(db *database.PostgresDB) *PostgresJobStore {
	return &PostgresJobStore{DB: db}
}

const jobColumns = `id, base_url, max_pages, status, pages, chunks, upserted, error, created_at, updated_at`

func scanJob(row pgx.Row) (*Job, error) {
	job := &Job{}
	err := row.Scan(&job.ID, &job.BaseURL, &job.MaxPages, &job.Status, &job.Pages, &job.Chunks, &job.Upserted, &job.Error, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *PostgresJobStore) CreateJob(ctx context.Context, baseURL string, maxPages int) (*Job, error) {
	query := `
		INSERT INTO ingest_jobs (id, base_url, max_pages, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING ` + jobColumns

	job, err := scanJob(s.DB.Pool.QueryRow(ctx, query, uuid.New(), baseURL, maxPages))
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

func (s *PostgresJobStore) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	job, err := scanJob(s.DB.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM ingest_jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *PostgresJobStore) ListJobs(ctx context.Context) ([]Job, error) {
	rows, err := s.DB.Pool.Query(ctx, `SELECT `+jobColumns+` FROM ingest_jobs ORDER BY created_at DESC LIMIT $1`, maxListedJobs)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (s *PostgresJobStore) SetStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error {
	_, err := s.DB.Pool.Exec(ctx,
		"UPDATE ingest_jobs SET status = $2, error = $3, updated_at = NOW() WHERE id = $1",
		id, status, errMsg)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) SetProgress(ctx context.Context, id uuid.UUID, report pipeline.Report) error {
	_, err := s.DB.Pool.Exec(ctx,
		"UPDATE ingest_jobs SET pages = $2, chunks = $3, upserted = $4, updated_at = NOW() WHERE id = $1",
		id, report.Pages, report.Chunks, report.Index.Upserted)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) AppendLog(ctx context.Context, id uuid.UUID, entry LogEntry) error {
	query := `
		INSERT INTO ingest_logs (job_id, timestamp, level, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.DB.Pool.Exec(ctx, query, id, entry.Timestamp, entry.Level, entry.Message, []byte(entry.Metadata))
	return err
}

func (s *PostgresJobStore) GetJobLogs(ctx context.Context, id uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM ingest_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}
