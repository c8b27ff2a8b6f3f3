package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/flipkart-scraper/internal/models"
	"github.com/maltedev/flipkart-scraper/internal/queue"
	"github.com/maltedev/flipkart-scraper/internal/scraper"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrInvalidJob  = errors.New("invalid job")
)

const listLimit = 100

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Runner executes one scrape run.
type Runner interface {
	Run(ctx context.Context, req models.SearchRequest) (*scraper.RunResult, error)
}

// Job represents a scraping job
type Job struct {
	ID               string     `json:"id"`
	Keyword          string     `json:"keyword"`
	Pages            int        `json:"pages"`
	Status           Status     `json:"status"`
	RunID            string     `json:"run_id,omitempty"`
	PagesAttempted   int        `json:"pages_attempted"`
	PagesFailed      int        `json:"pages_failed"`
	ProductsFound    int        `json:"products_found"`
	ProductsInserted int        `json:"products_inserted"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// Stats represents scraper statistics
type Stats struct {
	TotalJobs     int     `json:"total_jobs"`
	PendingJobs   int     `json:"pending_jobs"`
	RunningJobs   int     `json:"running_jobs"`
	CompletedJobs int     `json:"completed_jobs"`
	FailedJobs    int     `json:"failed_jobs"`
	SuccessRate   float64 `json:"success_rate"`
}

// Manager keeps job state in memory and feeds jobs to a single worker, so at
// most one browser session is open at a time.
type Manager struct {
	runner Runner
	queue  *queue.InMemoryQueue
	logger *slog.Logger

	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
}

func NewManager(runner Runner, q *queue.InMemoryQueue, logger *slog.Logger) *Manager {
	return &Manager{
		runner: runner,
		queue:  q,
		logger: logger.With("component", "job_manager"),
		jobs:   make(map[string]*Job),
	}
}

// CreateJob creates a new scraping job
func (m *Manager) CreateJob(ctx context.Context, keyword string, pages int) (*Job, error) {
	req := models.SearchRequest{Keyword: keyword, PageCount: pages}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}

	job := &Job{
		ID:        uuid.New().String(),
		Keyword:   keyword,
		Pages:     pages,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	m.mu.Unlock()

	if err := m.queue.Push(&queue.Task{
		ID:        job.ID,
		Keyword:   keyword,
		Pages:     pages,
		CreatedAt: job.CreatedAt,
	}); err != nil {
		m.mu.Lock()
		delete(m.jobs, job.ID)
		m.order = m.order[:len(m.order)-1]
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	m.logger.Info("job created", "id", job.ID, "keyword", keyword, "pages", pages)
	return m.snapshot(job), nil
}

// GetJob retrieves a job by ID
func (m *Manager) GetJob(ctx context.Context, jobID string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return m.snapshot(job), nil
}

// ListJobs returns the most recent jobs, newest first.
func (m *Manager) ListJobs(ctx context.Context) ([]*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, min(len(m.order), listLimit))
	for i := len(m.order) - 1; i >= 0 && len(jobs) < listLimit; i-- {
		jobs = append(jobs, m.snapshot(m.jobs[m.order[i]]))
	}
	return jobs, nil
}

// GetStats retrieves scraper statistics
func (m *Manager) GetStats(ctx context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{TotalJobs: len(m.jobs)}
	for _, job := range m.jobs {
		switch job.Status {
		case StatusPending:
			stats.PendingJobs++
		case StatusRunning:
			stats.RunningJobs++
		case StatusCompleted:
			stats.CompletedJobs++
		case StatusFailed:
			stats.FailedJobs++
		}
	}

	if stats.TotalJobs > 0 {
		stats.SuccessRate = float64(stats.CompletedJobs) / float64(stats.TotalJobs) * 100
	}
	return stats, nil
}

func (m *Manager) update(jobID string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[jobID]; ok {
		fn(job)
	}
}

// snapshot copies a job so callers never share memory with the worker.
// Must be called with mu held.
func (m *Manager) snapshot(job *Job) *Job {
	cp := *job
	return &cp
}
