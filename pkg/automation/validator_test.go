package automation

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/persistence"
	"github.com/pubflow/pubflow/pkg/persistence/memory"
)

func newValidator(t *testing.T, maxDepth int) (*Validator, persistence.Persistence) {
	t.Helper()

	store := memory.NewPersistence()

	return NewValidator(store, maxDepth, slog.Default()), store
}

func regularAutomation(id, target string, event models.AutomationEvent) *models.Automation {
	return &models.Automation{
		ID:               id,
		StageID:          "stage-1",
		ActionInstanceID: target,
		Event:            event,
	}
}

func sequentialAutomation(id, source, target string, event models.AutomationEvent) *models.Automation {
	return &models.Automation{
		ID:                     id,
		StageID:                "stage-1",
		ActionInstanceID:       target,
		Event:                  event,
		SourceActionInstanceID: &source,
	}
}

func mustUpsert(t *testing.T, v *Validator, a *models.Automation) {
	t.Helper()

	_, err := v.Upsert(context.Background(), a)
	require.NoError(t, err)
}

func countAutomations(t *testing.T, store persistence.Persistence) int {
	t.Helper()

	automations, err := store.Automations().ListByStage(context.Background(), "stage-1")
	require.NoError(t, err)

	return len(automations)
}

func TestUpsertRegularAutomation(t *testing.T) {
	v, store := newValidator(t, 0)

	mustUpsert(t, v, regularAutomation("a1", "instance-1", models.EventPubEnteredStage))

	saved, err := store.Automations().GetByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, models.EventPubEnteredStage, saved.Event)
}

func TestUpsertShapeRejections(t *testing.T) {
	source := "instance-0"

	tests := []struct {
		name       string
		automation *models.Automation
		wantErr    error
	}{
		{
			name:       "unknown event",
			automation: regularAutomation("a1", "instance-1", "pubDeleted"),
			wantErr:    ErrAutomationConfig,
		},
		{
			name:       "missing target",
			automation: regularAutomation("a1", "", models.EventPubEnteredStage),
			wantErr:    ErrAutomationConfig,
		},
		{
			name:       "completion event without source",
			automation: regularAutomation("a1", "instance-1", models.EventActionSucceeded),
			wantErr:    ErrAutomationConfig,
		},
		{
			name:       "completion event with empty source",
			automation: sequentialAutomation("a1", "", "instance-1", models.EventActionSucceeded),
			wantErr:    ErrAutomationConfig,
		},
		{
			name: "lifecycle event with source",
			automation: &models.Automation{
				ID:                     "a1",
				StageID:                "stage-1",
				ActionInstanceID:       "instance-1",
				Event:                  models.EventPubEnteredStage,
				SourceActionInstanceID: &source,
			},
			wantErr: ErrAutomationConfig,
		},
		{
			name: "duration event without config",
			automation: regularAutomation(
				"a1", "instance-1", models.EventPubInStageForDuration,
			),
			wantErr: ErrAutomationConfig,
		},
		{
			name: "duration config on other event",
			automation: &models.Automation{
				ID:               "a1",
				StageID:          "stage-1",
				ActionInstanceID: "instance-1",
				Event:            models.EventPubEnteredStage,
				Config:           &models.DurationConfig{Duration: 1, Interval: models.IntervalDay},
			},
			wantErr: ErrAutomationConfig,
		},
		{
			name: "invalid condition tree",
			automation: &models.Automation{
				ID:               "a1",
				StageID:          "stage-1",
				ActionInstanceID: "instance-1",
				Event:            models.EventPubEnteredStage,
				Condition:        models.And(),
			},
			wantErr: ErrAutomationConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, store := newValidator(t, 0)

			_, err := v.Upsert(context.Background(), tt.automation)

			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsRejected(err))
			assert.Zero(t, countAutomations(t, store), "rejection must leave the set unchanged")
		})
	}
}

func TestUpsertDurationAutomation(t *testing.T) {
	v, _ := newValidator(t, 0)

	automation := &models.Automation{
		ID:               "a1",
		StageID:          "stage-1",
		ActionInstanceID: "instance-1",
		Event:            models.EventPubInStageForDuration,
		Config:           &models.DurationConfig{Duration: 2, Interval: models.IntervalDay},
	}

	mustUpsert(t, v, automation)
}

func TestUpsertDuplicateRegular(t *testing.T) {
	v, store := newValidator(t, 0)

	mustUpsert(t, v, regularAutomation("a1", "instance-1", models.EventPubEnteredStage))

	_, err := v.Upsert(context.Background(), regularAutomation("a2", "instance-1", models.EventPubEnteredStage))
	require.ErrorIs(t, err, ErrRegularAutomationExists)
	assert.Equal(t, 1, countAutomations(t, store))

	// Same target on a different event is fine.
	mustUpsert(t, v, regularAutomation("a3", "instance-1", models.EventPubLeftStage))
}

func TestUpsertDuplicateSequential(t *testing.T) {
	v, _ := newValidator(t, 0)

	mustUpsert(t, v, sequentialAutomation("s1", "instance-1", "instance-2", models.EventActionSucceeded))

	_, err := v.Upsert(context.Background(), sequentialAutomation("s2", "instance-1", "instance-2", models.EventActionSucceeded))
	require.ErrorIs(t, err, ErrSequentialAutomationExists)

	// Same edge on the failure event is a different automation.
	mustUpsert(t, v, sequentialAutomation("s3", "instance-1", "instance-2", models.EventActionFailed))

	// Same target and event from a different source is allowed.
	mustUpsert(t, v, sequentialAutomation("s4", "instance-3", "instance-2", models.EventActionSucceeded))
}

func TestUpsertReplaceById(t *testing.T) {
	v, store := newValidator(t, 0)

	mustUpsert(t, v, regularAutomation("a1", "instance-1", models.EventPubEnteredStage))

	// Re-saving the same ID replaces, never duplicates.
	updated := regularAutomation("a1", "instance-1", models.EventPubEnteredStage)
	updated.Condition = models.Leaf(`status == "draft"`)
	mustUpsert(t, v, updated)

	assert.Equal(t, 1, countAutomations(t, store))
}

func TestUpsertSelfLoop(t *testing.T) {
	v, _ := newValidator(t, 0)

	_, err := v.Upsert(context.Background(), sequentialAutomation("s1", "instance-1", "instance-1", models.EventActionSucceeded))

	require.ErrorIs(t, err, ErrAutomationCycle)
}

func TestUpsertCycleRejected(t *testing.T) {
	v, store := newValidator(t, 0)

	// 3 -> 2, 2 -> 1 is a valid chain.
	mustUpsert(t, v, sequentialAutomation("s1", "instance-3", "instance-2", models.EventActionSucceeded))
	mustUpsert(t, v, sequentialAutomation("s2", "instance-2", "instance-1", models.EventActionSucceeded))

	// 3 -> 1 shortcuts the chain without closing anything.
	mustUpsert(t, v, sequentialAutomation("s3", "instance-3", "instance-1", models.EventActionFailed))

	// 1 -> 3 closes the loop.
	_, err := v.Upsert(context.Background(), sequentialAutomation("s4", "instance-1", "instance-3", models.EventActionSucceeded))
	require.ErrorIs(t, err, ErrAutomationCycle)
	assert.Equal(t, 3, countAutomations(t, store))
}

func TestUpsertEditDoesNotCollideWithOwnEdge(t *testing.T) {
	v, _ := newValidator(t, 0)

	mustUpsert(t, v, sequentialAutomation("s1", "instance-1", "instance-2", models.EventActionSucceeded))

	// Reversing the edge by editing the same automation replaces the old edge
	// first, so it must not read as a cycle with itself.
	mustUpsert(t, v, sequentialAutomation("s1", "instance-2", "instance-1", models.EventActionSucceeded))
}

func TestUpsertMaxDepth(t *testing.T) {
	v, store := newValidator(t, 3)

	// Build the longest admissible chain: 3 edges.
	for i := 0; i < 3; i++ {
		mustUpsert(t, v, sequentialAutomation(
			fmt.Sprintf("s%d", i),
			fmt.Sprintf("instance-%d", i),
			fmt.Sprintf("instance-%d", i+1),
			models.EventActionSucceeded,
		))
	}

	// A fourth edge exceeds the bound.
	_, err := v.Upsert(context.Background(), sequentialAutomation("s4", "instance-3", "instance-4", models.EventActionSucceeded))
	require.ErrorIs(t, err, ErrAutomationMaxDepth)
	assert.Equal(t, 3, countAutomations(t, store))

	// A parallel edge that does not extend the longest chain still fits.
	mustUpsert(t, v, sequentialAutomation("s5", "instance-0", "instance-9", models.EventActionSucceeded))
}

func TestUpsertDefaultMaxDepth(t *testing.T) {
	v, _ := newValidator(t, 0)

	assert.Equal(t, DefaultMaxDepth, v.MaxDepth())
}

func TestDelete(t *testing.T) {
	v, store := newValidator(t, 0)

	mustUpsert(t, v, regularAutomation("a1", "instance-1", models.EventPubEnteredStage))

	require.NoError(t, v.Delete(context.Background(), "a1"))
	assert.Zero(t, countAutomations(t, store))

	err := v.Delete(context.Background(), "a1")
	require.ErrorIs(t, err, persistence.ErrAutomationNotFound)
}

// Deleting an edge out of a saturated chain must make room for a new one: the
// validator reads the live set, not a cached graph.
func TestUpsertAfterDelete(t *testing.T) {
	v, _ := newValidator(t, 2)

	mustUpsert(t, v, sequentialAutomation("s1", "instance-1", "instance-2", models.EventActionSucceeded))
	mustUpsert(t, v, sequentialAutomation("s2", "instance-2", "instance-3", models.EventActionSucceeded))

	_, err := v.Upsert(context.Background(), sequentialAutomation("s3", "instance-3", "instance-4", models.EventActionSucceeded))
	require.ErrorIs(t, err, ErrAutomationMaxDepth)

	require.NoError(t, v.Delete(context.Background(), "s1"))
	mustUpsert(t, v, sequentialAutomation("s3", "instance-3", "instance-4", models.EventActionSucceeded))
}
