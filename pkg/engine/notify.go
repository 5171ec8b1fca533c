package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pubflow/pubflow/pkg/events"
	"github.com/pubflow/pubflow/pkg/models"
)

// notify publishes a change notification for each recorded run after the
// transaction committed. Delivery is best-effort and at-most-once; a publish
// failure is logged, never propagated into the trigger's result.
func (e *Executor) notify(ctx context.Context, runs []*models.ActionRun) {
	if e.notifier == nil {
		return
	}

	for _, run := range runs {
		event := events.ActionRunRecorded{
			BaseEvent: events.BaseEvent{
				ID:        uuid.NewString(),
				Type:      events.ActionRunRecordedEvent,
				Timestamp: time.Now().UTC(),
			},
			ActionRunID:      run.ID,
			ActionInstanceID: run.ActionInstanceID,
			PubID:            run.PubID,
			Status:           run.Status,
		}

		if err := e.notifier.Publish(ctx, run.PubID, event); err != nil {
			e.logger.WarnContext(ctx, "Failed to publish run notification", "run_id", run.ID, "error", err)
		}
	}
}
