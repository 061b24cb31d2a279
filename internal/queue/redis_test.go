package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisTestConfig(t *testing.T) *Config {
	t.Helper()
	mr := miniredis.RunT(t)
	config := DefaultConfig(CallRecordQueueName)
	config.UseRedis = true
	config.RedisAddr = mr.Addr()
	return config
}

func decodeRecord(t *testing.T, item interface{}) map[string]interface{} {
	t.Helper()
	raw, ok := item.(json.RawMessage)
	require.True(t, ok, "redis queue items are raw JSON")
	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &record))
	return record
}

func TestRedisQueue_EnqueueDequeue(t *testing.T) {
	config := redisTestConfig(t)
	q, err := NewRedisQueue(config)
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, auditItem("/v1/draw/flux", 200)))

	items, err := q.Dequeue(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	record := decodeRecord(t, items[0])
	assert.Equal(t, "/v1/draw/flux", record["endpoint"])
}

func TestRedisQueue_BatchOrder(t *testing.T) {
	config := redisTestConfig(t)
	q, err := NewRedisQueue(config)
	require.NoError(t, err)
	defer q.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(ctx, auditItem("/v1/draw/flux", 200+i)))
	}

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, length)

	items, err := q.Dequeue(ctx, 3)
	require.NoError(t, err)
	require.Len(t, items, 3)
	// FIFO: the first enqueued record comes out first.
	assert.Equal(t, float64(200), decodeRecord(t, items[0])["status_code"])
	assert.Equal(t, float64(202), decodeRecord(t, items[2])["status_code"])
}

func TestRedisQueue_DequeueWithTimeout(t *testing.T) {
	config := redisTestConfig(t)
	q, err := NewRedisQueue(config)
	require.NoError(t, err)
	defer q.Close()

	items, err := q.DequeueWithTimeout(context.Background(), 10, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRedisQueue_PersistsAcrossClients(t *testing.T) {
	config := redisTestConfig(t)

	q1, err := NewRedisQueue(config)
	require.NoError(t, err)
	require.NoError(t, q1.Enqueue(context.Background(), auditItem("/v1/video/gen", 200)))
	require.NoError(t, q1.Close())

	// A fresh client sees the queued record.
	q2, err := NewRedisQueue(config)
	require.NoError(t, err)
	defer q2.Close()

	items, err := q2.Dequeue(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "/v1/video/gen", decodeRecord(t, items[0])["endpoint"])
}

func TestRedisDeadLetterQueue_AddListRemove(t *testing.T) {
	config := redisTestConfig(t)
	dlq, err := NewRedisDeadLetterQueue(config)
	require.NoError(t, err)
	defer dlq.Close()

	ctx := context.Background()
	require.NoError(t, dlq.Add(ctx, auditItem("/v1/draw/flux", 502), ErrMaxRetriesExceeded))

	items, err := dlq.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ErrMaxRetriesExceeded.Error(), items[0].Error)

	require.NoError(t, dlq.Remove(ctx, items[0].ID))
	items, err = dlq.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}
