package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/flipkart-scraper/pkg/logger"
)

type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestPublishRunCompleted(t *testing.T) {
	client := new(MockRedisClient)
	pub := NewRedisPublisher(client, "flipkart-scraper-events", logger.Discard())

	var captured *redis.XAddArgs
	client.On("XAdd", mock.Anything, mock.AnythingOfType("*redis.XAddArgs")).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*redis.XAddArgs) }).
		Return(nil)

	event := &RunCompleted{
		RunID:          "run-1",
		Keyword:        "phone",
		PagesRequested: 2,
		PagesAttempted: 2,
		Records:        2,
		Inserted:       2,
	}
	require.NoError(t, pub.PublishRunCompleted(context.Background(), event))
	client.AssertExpectations(t)

	require.NotNil(t, captured)
	assert.Equal(t, "flipkart-scraper-events", captured.Stream)

	values := captured.Values.(map[string]interface{})
	assert.Equal(t, EventScrapeCompleted, values["event_type"])
	assert.Equal(t, "run-1", values["run_id"])
	assert.NotEmpty(t, values["event_id"])

	var decoded RunCompleted
	require.NoError(t, json.Unmarshal([]byte(values["data"].(string)), &decoded))
	assert.Equal(t, "phone", decoded.Keyword)
	assert.Equal(t, 2, decoded.Inserted)
	assert.False(t, decoded.Timestamp.IsZero())
}

func TestPublishKeepsExplicitFields(t *testing.T) {
	client := new(MockRedisClient)
	client.On("XAdd", mock.Anything, mock.Anything).Return(nil)
	pub := NewRedisPublisher(client, "s", logger.Discard())

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	event := &RunCompleted{EventID: "fixed", RunID: "r", Timestamp: ts}
	require.NoError(t, pub.PublishRunCompleted(context.Background(), event))

	assert.Equal(t, "fixed", event.EventID)
	assert.Equal(t, ts, event.Timestamp)
}

func TestPublishRedisFailure(t *testing.T) {
	client := new(MockRedisClient)
	client.On("XAdd", mock.Anything, mock.Anything).Return(errors.New("connection refused"))
	pub := NewRedisPublisher(client, "s", logger.Discard())

	err := pub.PublishRunCompleted(context.Background(), &RunCompleted{RunID: "r"})
	assert.ErrorContains(t, err, "connection refused")
}

func TestClose(t *testing.T) {
	client := new(MockRedisClient)
	client.On("Close").Return(nil)

	assert.NoError(t, NewRedisPublisher(client, "s", logger.Discard()).Close())
	client.AssertExpectations(t)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishRunCompleted(context.Background(), &RunCompleted{}))
	assert.NoError(t, p.Close())
}
