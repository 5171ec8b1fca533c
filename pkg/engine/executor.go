// Package engine executes action instances when automations fire, recording
// immutable run rows and blaming every pub value change on its run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pubflow/pubflow/pkg/blame"
	"github.com/pubflow/pubflow/pkg/condition"
	"github.com/pubflow/pubflow/pkg/eventbus"
	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/otelhelper"
	"github.com/pubflow/pubflow/pkg/persistence"
	"github.com/pubflow/pubflow/pkg/protocol"
	"github.com/pubflow/pubflow/pkg/registry"
)

// ErrChainTooDeep reports a trigger chain deeper than the validated maximum.
// The validator guarantees authored chains stay within bounds, so hitting
// this means rows were inserted by another path; the firing aborts rather
// than trusting the data.
var ErrChainTooDeep = errors.New("trigger chain exceeds validated maximum depth")

// Config wires the executor's collaborators.
type Config struct {
	Persistence persistence.Persistence
	Registry    *registry.Registry
	Conditions  *condition.Evaluator
	Blame       *blame.Recorder
	Scheduler   protocol.JobScheduler    // may be nil: duration automations disabled
	Notifier    eventbus.EventPublisher  // may be nil: no change notifications
	Tracer      trace.Tracer             // may be nil: no tracing
	MaxDepth    int
	Logger      *slog.Logger
}

// Executor runs one trigger firing synchronously to completion, including its
// sequential fan-out, inside one transaction. Multiple top-level triggers may
// run concurrently as independent transactions; storage isolation is the only
// concurrency control.
type Executor struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	conditions  *condition.Evaluator
	blame       *blame.Recorder
	scheduler   protocol.JobScheduler
	notifier    eventbus.EventPublisher
	tracer      trace.Tracer
	maxDepth    int
	logger      *slog.Logger
}

func NewExecutor(cfg Config) *Executor {
	return &Executor{
		persistence: cfg.Persistence,
		registry:    cfg.Registry,
		conditions:  cfg.Conditions,
		blame:       cfg.Blame,
		scheduler:   cfg.Scheduler,
		notifier:    cfg.Notifier,
		tracer:      cfg.Tracer,
		maxDepth:    cfg.MaxDepth,
		logger:      cfg.Logger.With("module", "engine_executor"),
	}
}

// HandleStageEvent fires every regular automation matching (stage, event) for
// the pub, draining sequential fan-out before returning. Duration jobs are
// scheduled or cancelled after the transaction commits.
func (e *Executor) HandleStageEvent(ctx context.Context, stageID, pubID string, event models.AutomationEvent, actor models.Actor) ([]*models.ActionRun, error) {
	logger := e.logger.With("stage_id", stageID, "pub_id", pubID, "event", event)
	logger.InfoContext(ctx, "Handling stage event")

	var runs []*models.ActionRun

	err := e.persistence.WithinTx(ctx, func(tx persistence.Persistence) error {
		matches, err := tx.Automations().ListForEvent(ctx, stageID, event)
		if err != nil {
			return fmt.Errorf("failed to match automations: %w", err)
		}

		queue := make([]trigger, 0, len(matches))
		for _, match := range matches {
			queue = append(queue, trigger{
				automation:     match,
				actionInstance: match.ActionInstanceID,
				pubID:          pubID,
				event:          event,
				actor:          actor,
			})
		}

		runs, err = e.drain(ctx, tx, queue)

		return err
	})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, runs)
	e.manageDurationJobs(ctx, stageID, pubID, event)

	return runs, nil
}

// RunActionInstance runs one action instance directly, draining any
// sequential automations its completion fires. This is the re-entry point for
// deferred jobs and the manual trigger endpoint.
func (e *Executor) RunActionInstance(ctx context.Context, req RunRequest) ([]*models.ActionRun, error) {
	var runs []*models.ActionRun

	err := e.persistence.WithinTx(ctx, func(tx persistence.Persistence) error {
		first := trigger{
			actionInstance: req.ActionInstanceID,
			pubID:          req.PubID,
			event:          req.Event,
			overrideConfig: req.OverrideConfig,
			actor:          req.Actor,
		}

		if req.AutomationID != "" {
			automation, err := tx.Automations().GetByID(ctx, req.AutomationID)
			if err != nil {
				return err
			}

			pub, err := tx.Pubs().GetByID(ctx, req.PubID)
			if err != nil {
				return err
			}

			// A deferred duration job can outlive the residency that
			// scheduled it; a pub that already moved on does not fire.
			if pub.StageID != automation.StageID {
				e.logger.InfoContext(ctx, "Pub left stage before deferred trigger, skipping",
					"pub_id", req.PubID,
					"automation_id", req.AutomationID,
				)

				return nil
			}

			first.automation = automation
		}

		var err error
		runs, err = e.drain(ctx, tx, []trigger{first})

		return err
	})
	if err != nil {
		return nil, err
	}

	e.notify(ctx, runs)

	return runs, nil
}

// drain executes queued triggers in order, appending sequential matches as
// completions occur. A condition evaluation error or storage failure aborts
// the whole firing; an action failure only records a failure run and still
// fires its own actionFailed matches.
func (e *Executor) drain(ctx context.Context, tx persistence.Persistence, queue []trigger) ([]*models.ActionRun, error) {
	var runs []*models.ActionRun

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if e.maxDepth > 0 && item.depth > e.maxDepth {
			return nil, fmt.Errorf("%w: depth %d at action instance %s", ErrChainTooDeep, item.depth, item.actionInstance)
		}

		run, err := e.runOne(ctx, tx, item)
		if err != nil {
			return nil, err
		}

		if run == nil {
			// Condition evaluated false: a silent non-fire, not a failure.
			continue
		}

		runs = append(runs, run)

		completion, ok := completionEvent(run.Status)
		if !ok {
			// Scheduled runs complete later through RunActionInstance.
			continue
		}

		matches, err := tx.Automations().ListBySource(ctx, item.actionInstance, completion)
		if err != nil {
			return nil, fmt.Errorf("failed to match sequential automations: %w", err)
		}

		for _, match := range matches {
			queue = append(queue, trigger{
				automation:     match,
				actionInstance: match.ActionInstanceID,
				pubID:          item.pubID,
				event:          completion,
				actor:          models.RunActor(run.ID),
				depth:          item.depth + 1,
			})
		}
	}

	return runs, nil
}

// runOne executes a single trigger. It returns (nil, nil) when the condition
// gate evaluates false.
func (e *Executor) runOne(ctx context.Context, tx persistence.Persistence, item trigger) (*models.ActionRun, error) {
	instance, err := tx.ActionInstances().GetByID(ctx, item.actionInstance)
	if err != nil {
		return nil, err
	}

	pub, err := tx.Pubs().GetByID(ctx, item.pubID)
	if err != nil {
		return nil, err
	}

	runID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run ID: %w", err)
	}

	execCtx := models.NewExecutionContext(runID.String(), instance.ID, pub, item.event, nil)

	if item.automation != nil && item.automation.Condition != nil {
		ok, err := e.conditions.Evaluate(ctx, item.automation.Condition, execCtx.ConditionEnv())
		if err != nil {
			// Distinct from "condition is false": the firing aborts.
			return nil, err
		}

		if !ok {
			e.logger.DebugContext(ctx, "Condition evaluated false, not firing",
				"automation_id", item.automation.ID,
				"pub_id", item.pubID,
			)

			return nil, nil
		}
	}

	logger := e.logger.With(
		"action_instance_id", instance.ID,
		"action_type", instance.Type,
		"pub_id", item.pubID,
		"run_id", runID.String(),
	)

	ctx, span := e.startSpan(ctx, instance, item)
	result := e.execute(ctx, instance, item, execCtx, logger)

	if err := result.Validate(); err != nil {
		// An action that breaks the result contract is recorded as a failure
		// rather than trusted.
		result = models.Failed("action returned a malformed result", err)
	}

	run := &models.ActionRun{
		ID:               runID.String(),
		ActionInstanceID: instance.ID,
		PubID:            item.pubID,
		Event:            item.event,
		Status:           result.Status,
		Result:           result,
		Actor:            item.actor,
	}

	if err := tx.ActionRuns().Create(ctx, run); err != nil {
		e.endSpan(span, err)

		return nil, fmt.Errorf("failed to record action run: %w", err)
	}

	if result.Status == models.RunStatusSuccess {
		for _, change := range execCtx.Changes() {
			err := e.blame.RecordValueChange(ctx, tx, item.pubID, change.FieldID, change.OldValue, change.NewValue, run.ID)
			if err != nil {
				e.endSpan(span, err)

				return nil, err
			}
		}
	}

	e.endSpan(span, nil)
	logger.InfoContext(ctx, "Action run recorded", "status", run.Status)

	return run, nil
}

// execute invokes the action implementation, folding creation failures and
// returned errors into the failure result shape. A failing action never
// aborts sibling automations.
func (e *Executor) execute(ctx context.Context, instance *models.ActionInstance, item trigger, execCtx *models.ExecutionContext, logger *slog.Logger) models.ActionRunResult {
	merged := instance.MergedConfiguration(item.overrideConfig)

	action, err := e.registry.CreateAction(ctx, instance.Type, merged)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create action", "error", err)

		return models.Failed("failed to create action", err)
	}

	result, err := action.Execute(ctx, execCtx, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Action failed", "error", err)

		return models.Failed(result.Report, err)
	}

	return result
}

func completionEvent(status models.ActionRunStatus) (models.AutomationEvent, bool) {
	switch status {
	case models.RunStatusSuccess:
		return models.EventActionSucceeded, true
	case models.RunStatusFailure:
		return models.EventActionFailed, true
	default:
		return "", false
	}
}

func (e *Executor) startSpan(ctx context.Context, instance *models.ActionInstance, item trigger) (context.Context, trace.Span) {
	if e.tracer == nil {
		return ctx, nil
	}

	return otelhelper.StartSpan(ctx, e.tracer, "engine.run_action",
		attribute.String(otelhelper.ActionInstanceIDKey, instance.ID),
		attribute.String(otelhelper.ActionTypeKey, instance.Type),
		attribute.String(otelhelper.PubIDKey, item.pubID),
		attribute.String(otelhelper.EventKey, string(item.event)),
	)
}

func (e *Executor) endSpan(span trace.Span, err error) {
	if span == nil {
		return
	}

	if err != nil {
		otelhelper.SetError(span, err)
	}

	span.End()
}
