package engine

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pubflow/pubflow/pkg/blame"
	"github.com/pubflow/pubflow/pkg/condition"
	"github.com/pubflow/pubflow/pkg/expression"
	"github.com/pubflow/pubflow/pkg/mocks"
	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/persistence"
	"github.com/pubflow/pubflow/pkg/persistence/memory"
	"github.com/pubflow/pubflow/pkg/protocol"
	"github.com/pubflow/pubflow/pkg/registry"
)

type actionFunc func(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (models.ActionRunResult, error)

func (f actionFunc) Execute(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (models.ActionRunResult, error) {
	return f(ctx, execCtx, logger)
}

// stubFactory registers an inline action implementation under a type tag.
// A nil schema skips configuration validation.
type stubFactory struct {
	id     string
	create func(ctx context.Context, config map[string]any) (protocol.Action, error)
}

func (f *stubFactory) ID() string             { return f.id }
func (f *stubFactory) Name() string           { return f.id }
func (f *stubFactory) Description() string    { return "test action" }
func (f *stubFactory) Schema() map[string]any { return nil }

func (f *stubFactory) Create(ctx context.Context, config map[string]any) (protocol.Action, error) {
	return f.create(ctx, config)
}

func factoryOf(id string, action actionFunc) protocol.ActionFactory {
	return &stubFactory{
		id: id,
		create: func(ctx context.Context, config map[string]any) (protocol.Action, error) {
			return action, nil
		},
	}
}

func succeedFactory(id string) protocol.ActionFactory {
	return factoryOf(id, func(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (models.ActionRunResult, error) {
		return models.Succeeded("done", nil), nil
	})
}

func failFactory(id string) protocol.ActionFactory {
	return factoryOf(id, func(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (models.ActionRunResult, error) {
		return models.ActionRunResult{}, errors.New("boom")
	})
}

func setValueFactory(id, field string, value any) protocol.ActionFactory {
	return factoryOf(id, func(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (models.ActionRunResult, error) {
		execCtx.SetValue(field, value)

		return models.Succeeded("value set", nil), nil
	})
}

func newTestExecutor(t *testing.T, maxDepth int, scheduler protocol.JobScheduler, factories ...protocol.ActionFactory) (*Executor, persistence.Persistence) {
	t.Helper()

	store := memory.NewPersistence()

	reg := registry.NewRegistry(slog.Default())
	for _, factory := range factories {
		reg.RegisterAction(factory)
	}

	executor := NewExecutor(Config{
		Persistence: store,
		Registry:    reg,
		Conditions:  condition.NewEvaluator(expression.NewEvaluator()),
		Blame:       blame.NewRecorder(slog.Default()),
		Scheduler:   scheduler,
		MaxDepth:    maxDepth,
		Logger:      slog.Default(),
	})

	return executor, store
}

func seedPub(t *testing.T, store persistence.Persistence, id, stageID string, values map[string]any) {
	t.Helper()

	err := store.Pubs().Save(context.Background(), &models.Pub{
		ID:      id,
		Title:   "Launch post",
		StageID: stageID,
		Status:  models.PubStatusDraft,
		Values:  values,
	})
	require.NoError(t, err)
}

func seedInstance(t *testing.T, store persistence.Persistence, id, stageID, actionType string) {
	t.Helper()

	err := store.ActionInstances().Save(context.Background(), &models.ActionInstance{
		ID:      id,
		StageID: stageID,
		Type:    actionType,
		Name:    id,
	})
	require.NoError(t, err)
}

func seedAutomation(t *testing.T, store persistence.Persistence, automation *models.Automation) {
	t.Helper()

	require.NoError(t, store.Automations().Save(context.Background(), automation))
}

func listRuns(t *testing.T, store persistence.Persistence, pubID string) []*models.ActionRun {
	t.Helper()

	runs, err := store.ActionRuns().ListByPub(context.Background(), pubID)
	require.NoError(t, err)

	return runs
}

func TestHandleStageEventRecordsRuns(t *testing.T) {
	executor, store := newTestExecutor(t, 0, nil, succeedFactory("ok"), failFactory("broken"))

	seedPub(t, store, "pub-1", "stage-1", nil)
	seedInstance(t, store, "inst-ok", "stage-1", "ok")
	seedInstance(t, store, "inst-broken", "stage-1", "broken")
	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-ok",
		Event:            models.EventPubEnteredStage,
	})
	seedAutomation(t, store, &models.Automation{
		ID:               "a2",
		StageID:          "stage-1",
		ActionInstanceID: "inst-broken",
		Event:            models.EventPubEnteredStage,
	})

	actor := models.UserActor("user-1")

	runs, err := executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubEnteredStage, actor)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byInstance := map[string]*models.ActionRun{}
	for _, run := range runs {
		byInstance[run.ActionInstanceID] = run

		assert.Equal(t, "pub-1", run.PubID)
		assert.Equal(t, models.EventPubEnteredStage, run.Event)
		assert.Equal(t, actor, run.Actor)
	}

	assert.Equal(t, models.RunStatusSuccess, byInstance["inst-ok"].Status)
	assert.Equal(t, models.RunStatusFailure, byInstance["inst-broken"].Status)
	assert.Equal(t, "boom", byInstance["inst-broken"].Result.Error)

	assert.Len(t, listRuns(t, store, "pub-1"), 2)
}

func TestHandleStageEventNoMatches(t *testing.T) {
	executor, store := newTestExecutor(t, 0, nil)

	seedPub(t, store, "pub-1", "stage-1", nil)

	runs, err := executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubEnteredStage, models.SystemActor())
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Empty(t, listRuns(t, store, "pub-1"))
}

func TestSequentialFanOutOnSuccess(t *testing.T) {
	executor, store := newTestExecutor(t, 0, nil, succeedFactory("ok"))

	seedPub(t, store, "pub-1", "stage-1", nil)
	seedInstance(t, store, "inst-a", "stage-1", "ok")
	seedInstance(t, store, "inst-b", "stage-1", "ok")
	seedInstance(t, store, "inst-c", "stage-1", "ok")

	source := "inst-a"

	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-a",
		Event:            models.EventPubEnteredStage,
	})
	seedAutomation(t, store, &models.Automation{
		ID:                     "s1",
		StageID:                "stage-1",
		ActionInstanceID:       "inst-b",
		Event:                  models.EventActionSucceeded,
		SourceActionInstanceID: &source,
	})
	seedAutomation(t, store, &models.Automation{
		ID:                     "s2",
		StageID:                "stage-1",
		ActionInstanceID:       "inst-c",
		Event:                  models.EventActionFailed,
		SourceActionInstanceID: &source,
	})

	runs, err := executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubEnteredStage, models.UserActor("user-1"))
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "inst-a", runs[0].ActionInstanceID)
	assert.Equal(t, "inst-b", runs[1].ActionInstanceID)

	// The downstream run is attributed to the run that fired it, not to the
	// user who moved the pub.
	assert.Equal(t, models.EventActionSucceeded, runs[1].Event)
	assert.Equal(t, models.RunActor(runs[0].ID), runs[1].Actor)
}

func TestSequentialFanOutOnFailure(t *testing.T) {
	executor, store := newTestExecutor(t, 0, nil, failFactory("broken"), succeedFactory("ok"))

	seedPub(t, store, "pub-1", "stage-1", nil)
	seedInstance(t, store, "inst-a", "stage-1", "broken")
	seedInstance(t, store, "inst-b", "stage-1", "ok")

	source := "inst-a"

	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-a",
		Event:            models.EventPubEnteredStage,
	})
	seedAutomation(t, store, &models.Automation{
		ID:                     "s1",
		StageID:                "stage-1",
		ActionInstanceID:       "inst-b",
		Event:                  models.EventActionFailed,
		SourceActionInstanceID: &source,
	})

	runs, err := executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubEnteredStage, models.SystemActor())
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, models.RunStatusFailure, runs[0].Status)
	assert.Equal(t, models.RunStatusSuccess, runs[1].Status)
	assert.Equal(t, models.EventActionFailed, runs[1].Event)
}

func TestConditionFalseIsSilentNonFire(t *testing.T) {
	executor, store := newTestExecutor(t, 0, nil, succeedFactory("ok"))

	seedPub(t, store, "pub-1", "stage-1", map[string]any{"wordcount": 100})
	seedInstance(t, store, "inst-a", "stage-1", "ok")
	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-a",
		Event:            models.EventPubEnteredStage,
		Condition:        models.Leaf("wordcount > 500"),
	})

	runs, err := executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubEnteredStage, models.SystemActor())
	require.NoError(t, err)
	assert.Empty(t, runs)

	// A non-fire leaves no trace in the run log.
	assert.Empty(t, listRuns(t, store, "pub-1"))
}

func TestConditionTrueFires(t *testing.T) {
	executor, store := newTestExecutor(t, 0, nil, succeedFactory("ok"))

	seedPub(t, store, "pub-1", "stage-1", map[string]any{"wordcount": 700})
	seedInstance(t, store, "inst-a", "stage-1", "ok")
	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-a",
		Event:            models.EventPubEnteredStage,
		Condition: models.And(
			models.Leaf("wordcount > 500"),
			models.Leaf(`status == "draft"`),
		),
	})

	runs, err := executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubEnteredStage, models.SystemActor())
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestConditionErrorAbortsFiring(t *testing.T) {
	executor, store := newTestExecutor(t, 0, nil, succeedFactory("ok"))

	seedPub(t, store, "pub-1", "stage-1", map[string]any{"wordcount": 700})
	seedInstance(t, store, "inst-a", "stage-1", "ok")
	seedInstance(t, store, "inst-b", "stage-1", "ok")
	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-a",
		Event:            models.EventPubEnteredStage,
	})
	seedAutomation(t, store, &models.Automation{
		ID:               "a2",
		StageID:          "stage-1",
		ActionInstanceID: "inst-b",
		Event:            models.EventPubEnteredStage,
		// Non-boolean leaf: an evaluation error, not a false.
		Condition: models.Leaf("wordcount + 1"),
	})

	_, err := executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubEnteredStage, models.SystemActor())

	var evalErr *condition.EvaluationError

	require.Error(t, err)
	require.ErrorAs(t, err, &evalErr)

	// The whole firing rolls back, including runs recorded before the error.
	assert.Empty(t, listRuns(t, store, "pub-1"))
}

func TestBlameRecordedOnSuccessOnly(t *testing.T) {
	failingWriter := factoryOf("failing-writer", func(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (models.ActionRunResult, error) {
		execCtx.SetValue("summary", "half-done")

		return models.ActionRunResult{}, errors.New("boom")
	})

	executor, store := newTestExecutor(t, 0, nil, setValueFactory("writer", "wordcount", 500), failingWriter)

	seedPub(t, store, "pub-1", "stage-1", map[string]any{"wordcount": 120})
	seedInstance(t, store, "inst-writer", "stage-1", "writer")
	seedInstance(t, store, "inst-failing", "stage-1", "failing-writer")
	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-writer",
		Event:            models.EventPubEnteredStage,
	})
	seedAutomation(t, store, &models.Automation{
		ID:               "a2",
		StageID:          "stage-1",
		ActionInstanceID: "inst-failing",
		Event:            models.EventPubEnteredStage,
	})

	runs, err := executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubEnteredStage, models.SystemActor())
	require.NoError(t, err)
	require.Len(t, runs, 2)

	var successRun *models.ActionRun
	for _, run := range runs {
		if run.Status == models.RunStatusSuccess {
			successRun = run
		}
	}
	require.NotNil(t, successRun)

	pub, err := store.Pubs().GetByID(context.Background(), "pub-1")
	require.NoError(t, err)
	assert.Equal(t, 500, pub.Values["wordcount"])

	// The failing action's staged write never landed.
	assert.NotContains(t, pub.Values, "summary")

	history, err := store.History().ListByPub(context.Background(), "pub-1")
	require.NoError(t, err)
	require.Len(t, history, 1)

	change := history[0]
	assert.Equal(t, "wordcount", change.FieldID)
	assert.Equal(t, 120, change.OldValue)
	assert.Equal(t, 500, change.NewValue)
	assert.Equal(t, successRun.ID, change.ActionRunID)
	assert.Equal(t, models.RunActor(successRun.ID), change.Actor)
}

func TestRepeatedFiringsAppendRows(t *testing.T) {
	executor, store := newTestExecutor(t, 0, nil, succeedFactory("ok"))

	seedPub(t, store, "pub-1", "stage-1", nil)
	seedInstance(t, store, "inst-a", "stage-1", "ok")
	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-a",
		Event:            models.EventPubEnteredStage,
	})

	for i := 0; i < 3; i++ {
		_, err := executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubEnteredStage, models.SystemActor())
		require.NoError(t, err)
	}

	// Re-firing the same trigger is never deduplicated.
	assert.Len(t, listRuns(t, store, "pub-1"), 3)
}

func TestChainDepthExceededAborts(t *testing.T) {
	executor, store := newTestExecutor(t, 1, nil, succeedFactory("ok"))

	seedPub(t, store, "pub-1", "stage-1", nil)
	seedInstance(t, store, "inst-a", "stage-1", "ok")
	seedInstance(t, store, "inst-b", "stage-1", "ok")
	seedInstance(t, store, "inst-c", "stage-1", "ok")

	sourceA := "inst-a"
	sourceB := "inst-b"

	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-a",
		Event:            models.EventPubEnteredStage,
	})
	// Seeded past the validator: a chain one edge deeper than the executor
	// trusts.
	seedAutomation(t, store, &models.Automation{
		ID:                     "s1",
		StageID:                "stage-1",
		ActionInstanceID:       "inst-b",
		Event:                  models.EventActionSucceeded,
		SourceActionInstanceID: &sourceA,
	})
	seedAutomation(t, store, &models.Automation{
		ID:                     "s2",
		StageID:                "stage-1",
		ActionInstanceID:       "inst-c",
		Event:                  models.EventActionSucceeded,
		SourceActionInstanceID: &sourceB,
	})

	_, err := executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubEnteredStage, models.SystemActor())
	require.ErrorIs(t, err, ErrChainTooDeep)

	assert.Empty(t, listRuns(t, store, "pub-1"))
}

func TestScheduledRunDoesNotFanOut(t *testing.T) {
	deferred := factoryOf("deferred", func(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (models.ActionRunResult, error) {
		return models.Scheduled("job-1"), nil
	})

	executor, store := newTestExecutor(t, 0, nil, deferred, succeedFactory("ok"))

	seedPub(t, store, "pub-1", "stage-1", nil)
	seedInstance(t, store, "inst-a", "stage-1", "deferred")
	seedInstance(t, store, "inst-b", "stage-1", "ok")

	source := "inst-a"

	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-a",
		Event:            models.EventPubEnteredStage,
	})
	seedAutomation(t, store, &models.Automation{
		ID:                     "s1",
		StageID:                "stage-1",
		ActionInstanceID:       "inst-b",
		Event:                  models.EventActionSucceeded,
		SourceActionInstanceID: &source,
	})

	runs, err := executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubEnteredStage, models.SystemActor())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, models.RunStatusScheduled, runs[0].Status)
	assert.Equal(t, "job-1", runs[0].Result.JobKey)
}

func TestMalformedResultFoldedToFailure(t *testing.T) {
	malformed := factoryOf("malformed", func(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (models.ActionRunResult, error) {
		// Success status carrying an error breaks the result contract.
		return models.ActionRunResult{Status: models.RunStatusSuccess, Error: "leftover"}, nil
	})

	executor, store := newTestExecutor(t, 0, nil, malformed)

	seedPub(t, store, "pub-1", "stage-1", nil)
	seedInstance(t, store, "inst-a", "stage-1", "malformed")
	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-a",
		Event:            models.EventPubEnteredStage,
	})

	runs, err := executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubEnteredStage, models.SystemActor())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, models.RunStatusFailure, runs[0].Status)
	assert.Equal(t, "action returned a malformed result", runs[0].Result.Report)
	require.NoError(t, runs[0].Result.Validate())
}

func TestUnregisteredActionTypeRecordsFailure(t *testing.T) {
	executor, store := newTestExecutor(t, 0, nil)

	seedPub(t, store, "pub-1", "stage-1", nil)
	seedInstance(t, store, "inst-a", "stage-1", "missing-type")
	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-a",
		Event:            models.EventPubEnteredStage,
	})

	runs, err := executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubEnteredStage, models.SystemActor())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, models.RunStatusFailure, runs[0].Status)
	assert.Contains(t, runs[0].Result.Error, "not registered")
}

func TestRunActionInstanceDirect(t *testing.T) {
	captured := map[string]any{}
	echo := &stubFactory{
		id: "echo",
		create: func(ctx context.Context, config map[string]any) (protocol.Action, error) {
			for k, v := range config {
				captured[k] = v
			}

			return actionFunc(func(ctx context.Context, execCtx *models.ExecutionContext, logger *slog.Logger) (models.ActionRunResult, error) {
				return models.Succeeded("echoed", nil), nil
			}), nil
		},
	}

	executor, store := newTestExecutor(t, 0, nil, echo)

	seedPub(t, store, "pub-1", "stage-1", nil)

	err := store.ActionInstances().Save(context.Background(), &models.ActionInstance{
		ID:            "inst-a",
		StageID:       "stage-1",
		Type:          "echo",
		Name:          "inst-a",
		Configuration: map[string]any{"channel": "base", "tone": "neutral"},
	})
	require.NoError(t, err)

	actor := models.UserActor("user-1")

	runs, err := executor.RunActionInstance(context.Background(), RunRequest{
		ActionInstanceID: "inst-a",
		PubID:            "pub-1",
		OverrideConfig:   map[string]any{"tone": "urgent"},
		Actor:            actor,
	})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, models.RunStatusSuccess, runs[0].Status)
	assert.Equal(t, actor, runs[0].Actor)

	// Overrides shadow the stored configuration key by key.
	assert.Equal(t, "base", captured["channel"])
	assert.Equal(t, "urgent", captured["tone"])
}

func TestRunActionInstanceDrainsSequentials(t *testing.T) {
	executor, store := newTestExecutor(t, 0, nil, succeedFactory("ok"))

	seedPub(t, store, "pub-1", "stage-1", nil)
	seedInstance(t, store, "inst-a", "stage-1", "ok")
	seedInstance(t, store, "inst-b", "stage-1", "ok")

	source := "inst-a"

	seedAutomation(t, store, &models.Automation{
		ID:                     "s1",
		StageID:                "stage-1",
		ActionInstanceID:       "inst-b",
		Event:                  models.EventActionSucceeded,
		SourceActionInstanceID: &source,
	})

	runs, err := executor.RunActionInstance(context.Background(), RunRequest{
		ActionInstanceID: "inst-a",
		PubID:            "pub-1",
		Actor:            models.SystemActor(),
	})
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "inst-b", runs[1].ActionInstanceID)
	assert.Equal(t, models.RunActor(runs[0].ID), runs[1].Actor)
}

func TestRunActionInstanceSkipsStaleDurationJob(t *testing.T) {
	executor, store := newTestExecutor(t, 0, nil, succeedFactory("ok"))

	// The pub moved on after the job was scheduled.
	seedPub(t, store, "pub-1", "stage-2", nil)
	seedInstance(t, store, "inst-a", "stage-1", "ok")
	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-a",
		Event:            models.EventPubInStageForDuration,
		Config:           &models.DurationConfig{Duration: 1, Interval: models.IntervalHour},
	})

	runs, err := executor.RunActionInstance(context.Background(), RunRequest{
		ActionInstanceID: "inst-a",
		PubID:            "pub-1",
		Event:            models.EventPubInStageForDuration,
		AutomationID:     "a1",
		Actor:            models.SystemActor(),
	})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.Empty(t, listRuns(t, store, "pub-1"))
}

func TestRunActionInstanceAppliesAutomationCondition(t *testing.T) {
	executor, store := newTestExecutor(t, 0, nil, succeedFactory("ok"))

	seedPub(t, store, "pub-1", "stage-1", map[string]any{"wordcount": 100})
	seedInstance(t, store, "inst-a", "stage-1", "ok")
	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-a",
		Event:            models.EventPubInStageForDuration,
		Config:           &models.DurationConfig{Duration: 1, Interval: models.IntervalHour},
		Condition:        models.Leaf("wordcount > 500"),
	})

	runs, err := executor.RunActionInstance(context.Background(), RunRequest{
		ActionInstanceID: "inst-a",
		PubID:            "pub-1",
		Event:            models.EventPubInStageForDuration,
		AutomationID:     "a1",
		Actor:            models.SystemActor(),
	})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestHandleStageEventManagesDurationJobs(t *testing.T) {
	scheduler := &mocks.MockJobScheduler{}
	executor, store := newTestExecutor(t, 0, scheduler, succeedFactory("ok"))

	seedPub(t, store, "pub-1", "stage-1", nil)
	seedInstance(t, store, "inst-a", "stage-1", "ok")
	seedAutomation(t, store, &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "inst-a",
		Event:            models.EventPubInStageForDuration,
		Config:           &models.DurationConfig{Duration: 2, Interval: models.IntervalHour},
	})

	key := DurationJobKey("a1", "pub-1")
	payload := protocol.JobPayload{
		ActionInstanceID: "inst-a",
		PubID:            "pub-1",
		Event:            models.EventPubInStageForDuration,
		AutomationID:     "a1",
	}

	scheduler.On("ScheduleJob", mock.Anything, key, payload, mock.MatchedBy(func(runAt time.Time) bool {
		return runAt.After(time.Now().UTC().Add(time.Hour))
	})).Return(nil)

	_, err := executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubEnteredStage, models.SystemActor())
	require.NoError(t, err)

	scheduler.On("UnscheduleJob", mock.Anything, key).Return(nil)

	_, err = executor.HandleStageEvent(context.Background(), "stage-1", "pub-1", models.EventPubLeftStage, models.SystemActor())
	require.NoError(t, err)

	scheduler.AssertExpectations(t)
}
