package server

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mikeboe/sitechat/pkg/pipeline"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var ErrJobNotFound = errors.New("job not found")

// Job is one ingest run started through the API.
type Job struct {
	ID        uuid.UUID `json:"id"`
	BaseURL   string    `json:"base_url"`
	MaxPages  int       `json:"max_pages"`
	Status    string    `json:"status"`
	Pages     int       `json:"pages"`
	Chunks    int       `json:"chunks"`
	Upserted  int       `json:"upserted"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

// JobStore persists ingest jobs and their log lines.
type JobStore interface {
	CreateJob(ctx context.Context, baseURL string, maxPages int) (*Job, error)
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	// ListJobs returns the newest jobs first.
	ListJobs(ctx context.Context) ([]Job, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error
	SetProgress(ctx context.Context, id uuid.UUID, report pipeline.Report) error
	AppendLog(ctx context.Context, id uuid.UUID, entry LogEntry) error
	GetJobLogs(ctx context.Context, id uuid.UUID) ([]LogEntry, error)
}

// maxListedJobs bounds ListJobs.
const maxListedJobs = 50

// MemoryJobStore keeps jobs for the lifetime of the process.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
	logs map[uuid.UUID][]LogEntry
	seq  int
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[uuid.UUID]*Job),
		logs: make(map[uuid.UUID][]LogEntry),
	}
}

func (s *MemoryJobStore) CreateJob(_ context.Context, baseURL string, maxPages int) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	job := &Job{ID: uuid.New(), BaseURL: baseURL, MaxPages: maxPages, Status: StatusPending, CreatedAt: now, UpdatedAt: now}
	s.jobs[job.ID] = job
	j := *job
	return &j, nil
}

func (s *MemoryJobStore) GetJob(_ context.Context, id uuid.UUID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	j := *job
	return &j, nil
}

func (s *MemoryJobStore) ListJobs(_ context.Context) ([]Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, *j)
	}
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].CreatedAt.After(jobs[k].CreatedAt)
	})
	if len(jobs) > maxListedJobs {
		jobs = jobs[:maxListedJobs]
	}
	return jobs, nil
}

func (s *MemoryJobStore) SetStatus(_ context.Context, id uuid.UUID, status string, errMsg *string) error {
	return s.update(id, func(j *Job) {
		j.Status = status
		j.Error = errMsg
	})
}

func (s *MemoryJobStore) SetProgress(_ context.Context, id uuid.UUID, report pipeline.Report) error {
	return s.update(id, func(j *Job) {
		j.Pages = report.Pages
		j.Chunks = report.Chunks
		j.Upserted = report.Index.Upserted
	})
}

func (s *MemoryJobStore) update(id uuid.UUID, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	fn(job)
	job.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryJobStore) AppendLog(_ context.Context, id uuid.UUID, entry LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return ErrJobNotFound
	}
	s.seq++
	entry.ID = s.seq
	s.logs[id] = append(s.logs[id], entry)
	return nil
}

func (s *MemoryJobStore) GetJobLogs(_ context.Context, id uuid.UUID) ([]LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.jobs[id]; !ok {
		return nil, ErrJobNotFound
	}
	return append([]LogEntry(nil), s.logs[id]...), nil
}
