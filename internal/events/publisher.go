package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const EventScrapeCompleted = "scrape.completed"

// RunCompleted is emitted once per finished scrape run.
type RunCompleted struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	RunID          string    `json:"run_id"`
	Keyword        string    `json:"keyword"`
	PagesRequested int       `json:"pages_requested"`
	PagesAttempted int       `json:"pages_attempted"`
	PagesFailed    int       `json:"pages_failed"`
	Records        int       `json:"records"`
	Inserted       int       `json:"inserted"`
	Timestamp      time.Time `json:"timestamp"`
}

type Publisher interface {
	PublishRunCompleted(ctx context.Context, event *RunCompleted) error
	Close() error
}

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisPublisher appends events to a Redis stream.
type RedisPublisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewRedisPublisher(client RedisClient, stream string, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "events"),
	}
}

func (p *RedisPublisher) PublishRunCompleted(ctx context.Context, event *RunCompleted) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	event.EventType = EventScrapeCompleted
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_id":   event.EventID,
			"event_type": event.EventType,
			"run_id":     event.RunID,
			"timestamp":  fmt.Sprintf("%d", event.Timestamp.UnixNano()),
			"data":       string(data),
		},
	}

	id, err := p.redis.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Debug("event published", "stream", p.stream, "id", id, "run_id", event.RunID)
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.redis.Close()
}

// NopPublisher drops every event. Used when Redis is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishRunCompleted(context.Context, *RunCompleted) error { return nil }
func (NopPublisher) Close() error                                             { return nil }
