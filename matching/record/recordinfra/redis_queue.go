package recordinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/resumatch/resumatch/matching/record"
	"github.com/resumatch/resumatch/pkg/kernel"
)

// RedisQueue carries indexing job ids between the ingest API and the
// worker pool. Ready jobs live in a list, retries in a scored set keyed by
// their due time.
type RedisQueue struct {
	client    *redis.Client
	queueName string
}

func NewRedisQueue(client *redis.Client, queueName string) record.JobQueue {
	return &RedisQueue{
		client:    client,
		queueName: queueName,
	}
}

// Enqueue adds a job to the ready queue
func (q *RedisQueue) Enqueue(ctx context.Context, jobID kernel.IndexJobID) error {
	if err := q.client.LPush(ctx, q.queueName, jobID.String()).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next ready job. An empty id with a
// nil error means the timeout elapsed with nothing queued.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (kernel.IndexJobID, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", record.ErrQueueDequeueFailed(err)
	}

	if len(result) < 2 {
		return "", record.ErrQueueDequeueFailed(fmt.Errorf("expected 2 elements, got %d", len(result)))
	}

	return kernel.NewIndexJobID(result[1]), nil
}

// EnqueueDelayed schedules a retry for later
func (q *RedisQueue) EnqueueDelayed(ctx context.Context, jobID kernel.IndexJobID, delay time.Duration) error {
	score := float64(time.Now().Add(delay).Unix())

	err := q.client.ZAdd(ctx, q.delayedQueue(), redis.Z{
		Score:  score,
		Member: jobID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("enqueue delayed job %s: %w", jobID, err)
	}
	return nil
}

// MoveDelayedToReady promotes due delayed jobs to the ready queue
func (q *RedisQueue) MoveDelayedToReady(ctx context.Context) (int, error) {
	now := float64(time.Now().Unix())

	jobs, err := q.client.ZRangeByScore(ctx, q.delayedQueue(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%f", now),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("get delayed jobs: %w", err)
	}

	if len(jobs) == 0 {
		return 0, nil
	}

	pipe := q.client.Pipeline()
	for _, job := range jobs {
		pipe.LPush(ctx, q.queueName, job)
		pipe.ZRem(ctx, q.delayedQueue(), job)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("move delayed jobs to ready: %w", err)
	}

	return len(jobs), nil
}

// GetQueueSize returns the number of ready jobs
func (q *RedisQueue) GetQueueSize(ctx context.Context) (int64, error) {
	size, err := q.client.LLen(ctx, q.queueName).Result()
	if err != nil {
		return 0, fmt.Errorf("get queue size: %w", err)
	}
	return size, nil
}

func (q *RedisQueue) delayedQueue() string {
	return q.queueName + ":delayed"
}
