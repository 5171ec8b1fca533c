// Package scheduler defers action work past its triggering transaction and
// replays it through the engine when due.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pubflow/pubflow/pkg/protocol"
)

// Job is one pending deferred trigger.
type Job struct {
	Key     string              `json:"key"`
	Payload protocol.JobPayload `json:"payload"`
	RunAt   time.Time           `json:"run_at"`
}

// Store persists pending jobs. Scheduling an existing key replaces it;
// unscheduling an unknown key is a no-op. Due atomically claims and removes
// every job whose run time has passed.
type Store interface {
	Schedule(ctx context.Context, key string, payload protocol.JobPayload, runAt time.Time) error
	Unschedule(ctx context.Context, key string) error
	Due(ctx context.Context, now time.Time) ([]Job, error)
}

// JobHandler replays one due job, typically by re-entering the engine's run
// contract.
type JobHandler func(ctx context.Context, job Job) error

// Scheduler implements protocol.JobScheduler over a Store and polls for due
// jobs on a cron tick. A handler error leaves the other due jobs unaffected.
type Scheduler struct {
	store   Store
	handler JobHandler
	cron    *cron.Cron
	logger  *slog.Logger
}

func NewScheduler(store Store, handler JobHandler, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:   store,
		handler: handler,
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger.With("module", "job_scheduler"),
	}
}

func (s *Scheduler) ScheduleJob(ctx context.Context, key string, payload protocol.JobPayload, runAt time.Time) error {
	return s.store.Schedule(ctx, key, payload, runAt)
}

func (s *Scheduler) UnscheduleJob(ctx context.Context, key string) error {
	return s.store.Unschedule(ctx, key)
}

// Start polls for due jobs every ten seconds until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc("*/10 * * * * *", func() {
		s.Tick(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()

	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()

	return nil
}

// Tick claims and replays every due job once.
func (s *Scheduler) Tick(ctx context.Context) {
	jobs, err := s.store.Due(ctx, time.Now().UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to claim due jobs", "error", err)

		return
	}

	for _, job := range jobs {
		logger := s.logger.With("job_key", job.Key, "pub_id", job.Payload.PubID)
		logger.InfoContext(ctx, "Replaying deferred job")

		if err := s.handler(ctx, job); err != nil {
			logger.ErrorContext(ctx, "Deferred job failed", "error", err)
		}
	}
}
