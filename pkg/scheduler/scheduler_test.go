package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubflow/pubflow/pkg/protocol"
)

func payloadFor(pubID string) protocol.JobPayload {
	return protocol.JobPayload{
		ActionInstanceID: "inst-1",
		PubID:            pubID,
		Event:            "pubInStageForDuration",
		AutomationID:     "a1",
	}
}

func TestMemoryStoreDue(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Schedule(ctx, "past", payloadFor("pub-1"), now.Add(-time.Minute)))
	require.NoError(t, store.Schedule(ctx, "future", payloadFor("pub-2"), now.Add(time.Hour)))

	due, err := store.Due(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "past", due[0].Key)
	assert.Equal(t, "pub-1", due[0].Payload.PubID)

	// Claimed jobs never come back.
	due, err = store.Due(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)
	assert.Equal(t, 1, store.Pending())
}

func TestMemoryStoreScheduleReplaces(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.Schedule(ctx, "job", payloadFor("pub-1"), now.Add(-time.Minute)))
	require.NoError(t, store.Schedule(ctx, "job", payloadFor("pub-1"), now.Add(time.Hour)))

	// The rescheduled run time wins: nothing is due yet.
	due, err := store.Due(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)
	assert.Equal(t, 1, store.Pending())
}

func TestMemoryStoreUnschedule(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Schedule(ctx, "job", payloadFor("pub-1"), time.Now().UTC()))
	require.NoError(t, store.Unschedule(ctx, "job"))
	assert.Zero(t, store.Pending())

	// Unknown keys are a no-op.
	require.NoError(t, store.Unschedule(ctx, "missing"))
}

func TestTickReplaysDueJobs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Minute)

	require.NoError(t, store.Schedule(ctx, "j1", payloadFor("pub-1"), past))
	require.NoError(t, store.Schedule(ctx, "j2", payloadFor("pub-2"), past))

	var handled []string
	handler := func(ctx context.Context, job Job) error {
		handled = append(handled, job.Key)

		return nil
	}

	NewScheduler(store, handler, slog.Default()).Tick(ctx)

	sort.Strings(handled)
	assert.Equal(t, []string{"j1", "j2"}, handled)
	assert.Zero(t, store.Pending())
}

// One failing job must not starve the rest of the batch.
func TestTickHandlerErrorDoesNotStopBatch(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	past := time.Now().UTC().Add(-time.Minute)

	require.NoError(t, store.Schedule(ctx, "j1", payloadFor("pub-1"), past))
	require.NoError(t, store.Schedule(ctx, "j2", payloadFor("pub-2"), past))

	var handled int
	handler := func(ctx context.Context, job Job) error {
		handled++

		return errors.New("boom")
	}

	NewScheduler(store, handler, slog.Default()).Tick(ctx)

	assert.Equal(t, 2, handled)
}

func TestSchedulerImplementsJobScheduler(t *testing.T) {
	store := NewMemoryStore()

	var s protocol.JobScheduler = NewScheduler(store, func(ctx context.Context, job Job) error { return nil }, slog.Default())

	ctx := context.Background()
	require.NoError(t, s.ScheduleJob(ctx, "job", payloadFor("pub-1"), time.Now().UTC().Add(time.Hour)))
	assert.Equal(t, 1, store.Pending())

	require.NoError(t, s.UnscheduleJob(ctx, "job"))
	assert.Zero(t, store.Pending())
}
