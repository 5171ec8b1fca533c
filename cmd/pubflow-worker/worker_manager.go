package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pubflow/pubflow/pkg/blame"
	"github.com/pubflow/pubflow/pkg/cmd"
	"github.com/pubflow/pubflow/pkg/condition"
	"github.com/pubflow/pubflow/pkg/engine"
	"github.com/pubflow/pubflow/pkg/eventbus"
	"github.com/pubflow/pubflow/pkg/events"
	"github.com/pubflow/pubflow/pkg/expression"
	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/otelhelper"
	"github.com/pubflow/pubflow/pkg/persistence"
	"github.com/pubflow/pubflow/pkg/scheduler"
)

// WorkerManager consumes stage lifecycle events and turns them into trigger
// firings, and polls the deferred job store for due jobs.
type WorkerManager struct {
	id           string
	logger       *slog.Logger
	persistence  persistence.Persistence
	eventBus     eventbus.EventBus
	executor     *engine.Executor
	jobScheduler *scheduler.Scheduler
}

func NewWorkerManager(
	ctx context.Context,
	id string,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	redisURL string,
	maxDepth int,
) *WorkerManager {
	w := &WorkerManager{
		id:          id,
		logger:      logger.With("module", "pubflow-worker", "worker_id", id),
		persistence: p,
		eventBus:    eventBus,
	}

	tracer, err := otelhelper.NewTracer(ctx, "pubflow-worker")
	if err != nil {
		w.logger.WarnContext(ctx, "Failed to initialize tracer, tracing disabled", "error", err)
	}

	jobStore := cmd.NewJobStore(w.logger, redisURL)
	w.jobScheduler = scheduler.NewScheduler(jobStore, cmd.NewJobHandler(func() *engine.Executor {
		return w.executor
	}), w.logger)

	registry := cmd.NewRegistry(w.logger, w.jobScheduler)

	w.executor = engine.NewExecutor(engine.Config{
		Persistence: p,
		Registry:    registry,
		Conditions:  condition.NewEvaluator(expression.NewEvaluator()),
		Blame:       blame.NewRecorder(w.logger),
		Scheduler:   w.jobScheduler,
		Notifier:    eventBus,
		Tracer:      tracer,
		MaxDepth:    maxDepth,
		Logger:      w.logger,
	})

	return w
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	err := w.eventBus.Handle(events.PubEnteredStageEvent, w.handlePubEnteredStage)
	if err != nil {
		return err
	}

	err = w.eventBus.Handle(events.PubLeftStageEvent, w.handlePubLeftStage)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	err = w.jobScheduler.Start(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to start job scheduler", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

func (w *WorkerManager) handlePubEnteredStage(ctx context.Context, event any) error {
	entered, ok := event.(*events.PubEnteredStage)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for PubEnteredStage")

		return nil
	}

	logger := w.logger.With(
		"pub_id", entered.PubID,
		"stage_id", entered.StageID,
		"event_id", entered.ID,
	)
	logger.InfoContext(ctx, "Processing pub entered stage event")

	_, err := w.executor.HandleStageEvent(ctx, entered.StageID, entered.PubID, models.EventPubEnteredStage, entered.Actor)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to handle stage event", "error", err)

		return err
	}

	return nil
}

func (w *WorkerManager) handlePubLeftStage(ctx context.Context, event any) error {
	left, ok := event.(*events.PubLeftStage)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for PubLeftStage")

		return nil
	}

	logger := w.logger.With(
		"pub_id", left.PubID,
		"stage_id", left.StageID,
		"event_id", left.ID,
	)
	logger.InfoContext(ctx, "Processing pub left stage event")

	_, err := w.executor.HandleStageEvent(ctx, left.StageID, left.PubID, models.EventPubLeftStage, left.Actor)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to handle stage event", "error", err)

		return err
	}

	return nil
}
