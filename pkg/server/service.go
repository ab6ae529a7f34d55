package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/mikeboe/sitechat/pkg/pipeline"
)

var ErrInvalidRequest = errors.New("invalid request")

// Service runs ingest jobs in the background, one at a time.
type Service struct {
	Jobs       JobStore
	Components pipeline.Components
	// MaxPages is used when a request does not set max_pages.
	MaxPages    int
	CrawlOutput string
	ChunksFile  string
	// LogSink also receives every job log record, e.g. the console handler.
	LogSink slog.Handler

	// runMu serializes jobs: a crawl owns its browser and the provider
	// clients are shared.
	runMu sync.Mutex
	wg    sync.WaitGroup
}

func NewService(jobs JobStore, components pipeline.Components, maxPages int) *Service {
	return &Service{
		Jobs:       jobs,
		Components: components,
		MaxPages:   maxPages,
	}
}

type CreateJobRequest struct {
	URL      string `json:"url"`
	MaxPages int    `json:"max_pages"`
}

func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: url must be an absolute http(s) URL", ErrInvalidRequest)
	}
	if req.MaxPages < 0 {
		return nil, fmt.Errorf("%w: max_pages must not be negative", ErrInvalidRequest)
	}
	maxPages := req.MaxPages
	if maxPages == 0 {
		maxPages = s.MaxPages
	}

	job, err := s.Jobs.CreateJob(ctx, req.URL, maxPages)
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runWorker(job.ID, job.BaseURL, job.MaxPages)
	}()

	return job, nil
}

// Wait blocks until all started jobs have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) runWorker(jobID uuid.UUID, baseURL string, maxPages int) {
	ctx := context.Background()
	jobLogger := slog.New(NewJobLogHandler(s.Jobs, jobID, s.LogSink)).With("job_id", jobID.String())

	s.runMu.Lock()
	defer s.runMu.Unlock()

	if err := s.Jobs.SetStatus(ctx, jobID, StatusRunning, nil); err != nil {
		slog.Error("Failed to mark job running", "job_id", jobID, "error", err)
	}
	jobLogger.Info("Starting ingest", "url", baseURL, "max_pages", maxPages)

	report, err := pipeline.Run(ctx, s.Components, pipeline.Options{
		BaseURL:     baseURL,
		MaxPages:    maxPages,
		CrawlOutput: s.CrawlOutput,
		ChunksFile:  s.ChunksFile,
		Logger:      jobLogger,
		OnUpdate: func(r pipeline.Report) {
			if err := s.Jobs.SetProgress(ctx, jobID, r); err != nil {
				slog.Error("Failed to save job progress", "job_id", jobID, "error", err)
			}
		},
	})
	if report != nil {
		_ = s.Jobs.SetProgress(ctx, jobID, *report)
	}
	if err != nil {
		s.failJob(ctx, jobLogger, jobID, err)
		return
	}

	jobLogger.Info("Ingest completed", "pages", report.Pages, "chunks", report.Chunks, "upserted", report.Index.Upserted)
	if err := s.Jobs.SetStatus(ctx, jobID, StatusCompleted, nil); err != nil {
		slog.Error("Failed to mark job completed", "job_id", jobID, "error", err)
	}
}

func (s *Service) failJob(ctx context.Context, jobLogger *slog.Logger, jobID uuid.UUID, cause error) {
	reason := cause.Error()
	jobLogger.Error("Ingest failed", "error", reason)
	if err := s.Jobs.SetStatus(ctx, jobID, StatusFailed, &reason); err != nil {
		slog.Error("Failed to mark job failed", "job_id", jobID, "error", err)
	}
}
