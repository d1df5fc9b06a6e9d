package notificationinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abraxas-365/relay-match/recruitment/notification"
	"github.com/redis/go-redis/v9"
)

const DefaultQueueName = "relay-match:notifications"

// RedisTaskQueue implements notification.TaskQueue on a Redis list, with a
// sorted set holding tasks waiting for a retry
type RedisTaskQueue struct {
	client    *redis.Client
	queueName string
}

// NewRedisTaskQueue creates a new Redis-based task queue
func NewRedisTaskQueue(client *redis.Client, queueName string) *RedisTaskQueue {
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &RedisTaskQueue{
		client:    client,
		queueName: queueName,
	}
}

var _ notification.TaskQueue = (*RedisTaskQueue)(nil)

func (q *RedisTaskQueue) delayedQueue() string {
	return q.queueName + ":delayed"
}

// Enqueue adds a task to the ready list
func (q *RedisTaskQueue) Enqueue(ctx context.Context, task *notification.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}

	if err := q.client.LPush(ctx, q.queueName, data).Err(); err != nil {
		return fmt.Errorf("enqueue task %s: %w", task.ID, err)
	}

	return nil
}

// Dequeue blocks up to timeout for the next task. It returns nil, nil when
// nothing became ready.
func (q *RedisTaskQueue) Dequeue(ctx context.Context, timeout time.Duration) (*notification.Task, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue task: %w", err)
	}

	if len(result) < 2 {
		return nil, fmt.Errorf("invalid result from queue: expected 2 elements, got %d", len(result))
	}

	var task notification.Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w (data: %s)", err, result[1])
	}
	return &task, nil
}

// EnqueueDelayed schedules a task for a later attempt
func (q *RedisTaskQueue) EnqueueDelayed(ctx context.Context, task *notification.Task, delay time.Duration) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal delayed task %s: %w", task.ID, err)
	}

	score := float64(time.Now().Add(delay).Unix())
	if err := q.client.ZAdd(ctx, q.delayedQueue(), redis.Z{
		Score:  score,
		Member: data,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue delayed task %s: %w", task.ID, err)
	}

	return nil
}

// MoveDelayedToReady moves due tasks to the ready list
func (q *RedisTaskQueue) MoveDelayedToReady(ctx context.Context) (int, error) {
	now := float64(time.Now().Unix())

	due, err := q.client.ZRangeByScore(ctx, q.delayedQueue(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("get delayed tasks: %w", err)
	}

	if len(due) == 0 {
		return 0, nil
	}

	pipe := q.client.TxPipeline()
	for _, task := range due {
		pipe.LPush(ctx, q.queueName, task)
		pipe.ZRem(ctx, q.delayedQueue(), task)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("move delayed tasks to ready: %w", err)
	}

	return len(due), nil
}

// Stats returns the ready and delayed queue sizes
func (q *RedisTaskQueue) Stats(ctx context.Context) (ready, delayed int64, err error) {
	pipe := q.client.Pipeline()
	readyCmd := pipe.LLen(ctx, q.queueName)
	delayedCmd := pipe.ZCard(ctx, q.delayedQueue())
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("get queue stats: %w", err)
	}
	return readyCmd.Val(), delayedCmd.Val(), nil
}

// Ping checks if Redis connection is alive
func (q *RedisTaskQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}
