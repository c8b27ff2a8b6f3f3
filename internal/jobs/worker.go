package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/maltedev/flipkart-scraper/internal/models"
	"github.com/maltedev/flipkart-scraper/internal/queue"
)

// StartWorker processes queued jobs one at a time until ctx is done or the
// queue is closed.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("job worker started")

	for {
		task, err := m.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) || ctx.Err() != nil {
				m.logger.Info("job worker stopping")
				return
			}
			m.logger.Error("failed to take next job", "error", err)
			continue
		}

		m.processJob(ctx, task)
	}
}

func (m *Manager) processJob(ctx context.Context, task *queue.Task) {
	m.logger.Info("processing job", "id", task.ID, "keyword", task.Keyword)

	started := time.Now()
	m.update(task.ID, func(j *Job) {
		j.Status = StatusRunning
		j.StartedAt = &started
	})

	result, err := m.runner.Run(ctx, models.SearchRequest{Keyword: task.Keyword, PageCount: task.Pages})

	completed := time.Now()
	m.update(task.ID, func(j *Job) {
		j.CompletedAt = &completed
		if result != nil {
			j.RunID = result.RunID
			j.PagesAttempted = result.PagesAttempted
			j.PagesFailed = result.PagesFailed
			j.ProductsFound = len(result.Records)
			j.ProductsInserted = result.Inserted
		}
		if err != nil {
			j.Status = StatusFailed
			j.Error = err.Error()
			return
		}
		j.Status = StatusCompleted
	})

	if err != nil {
		m.logger.Error("job failed", "id", task.ID, "error", err)
		return
	}
	m.logger.Info("job completed", "id", task.ID, "products", len(result.Records))
}
