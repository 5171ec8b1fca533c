package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/pubflow/pubflow/pkg/engine"
	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/scheduler"
)

// NewJobStore builds the deferred job store. With no Redis URL the store is
// process-local, which only works when the API and the worker share a process.
func NewJobStore(logger *slog.Logger, redisURL string) scheduler.Store {
	if redisURL == "" {
		logger.Warn("Using in-memory job store, deferred jobs will not survive restarts")

		return scheduler.NewMemoryStore()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to parse redis URL: %w", err))
	}

	return scheduler.NewRedisStore(redis.NewClient(opts))
}

// NewJobHandler replays a due job through the executor. The executor pointer
// is resolved per call so the handler can be wired before the executor exists.
func NewJobHandler(executor func() *engine.Executor) scheduler.JobHandler {
	return func(ctx context.Context, job scheduler.Job) error {
		_, err := executor().RunActionInstance(ctx, engine.RunRequest{
			ActionInstanceID: job.Payload.ActionInstanceID,
			PubID:            job.Payload.PubID,
			Event:            job.Payload.Event,
			AutomationID:     job.Payload.AutomationID,
			OverrideConfig:   job.Payload.Config,
			Actor:            models.SystemActor(),
		})

		return err
	}
}
