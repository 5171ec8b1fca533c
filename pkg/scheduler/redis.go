package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pubflow/pubflow/pkg/protocol"
)

const (
	redisJobsKey     = "pubflow:jobs"
	redisPayloadsKey = "pubflow:jobs:payloads"
)

// RedisStore keeps pending jobs in a Redis sorted set scored by run time, with
// payloads in a companion hash. Multiple workers may poll the same store; ZREM
// arbitrates so each job is claimed once.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Schedule(ctx context.Context, key string, payload protocol.JobPayload, runAt time.Time) error {
	raw, err := json.Marshal(Job{Key: key, Payload: payload, RunAt: runAt})
	if err != nil {
		return fmt.Errorf("failed to marshal job payload: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, redisJobsKey, redis.Z{Score: float64(runAt.UnixMilli()), Member: key})
	pipe.HSet(ctx, redisPayloadsKey, key, raw)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", key, err)
	}

	return nil
}

func (s *RedisStore) Unschedule(ctx context.Context, key string) error {
	pipe := s.client.TxPipeline()
	pipe.ZRem(ctx, redisJobsKey, key)
	pipe.HDel(ctx, redisPayloadsKey, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to unschedule job %s: %w", key, err)
	}

	return nil
}

func (s *RedisStore) Due(ctx context.Context, now time.Time) ([]Job, error) {
	keys, err := s.client.ZRangeByScore(ctx, redisJobsKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.UnixMilli()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to range due jobs: %w", err)
	}

	var due []Job

	for _, key := range keys {
		removed, err := s.client.ZRem(ctx, redisJobsKey, key).Result()
		if err != nil {
			return due, fmt.Errorf("failed to claim job %s: %w", key, err)
		}

		if removed == 0 {
			// Another worker claimed it first.
			continue
		}

		raw, err := s.client.HGet(ctx, redisPayloadsKey, key).Result()
		if err != nil {
			return due, fmt.Errorf("failed to load job payload %s: %w", key, err)
		}

		s.client.HDel(ctx, redisPayloadsKey, key)

		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			return due, fmt.Errorf("failed to unmarshal job payload %s: %w", key, err)
		}

		due = append(due, job)
	}

	return due, nil
}
