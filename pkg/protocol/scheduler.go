package protocol

import (
	"context"
	"time"

	"github.com/pubflow/pubflow/pkg/models"
)

// JobPayload is the trigger a deferred job replays through the engine when it
// comes due. It re-enters the executor through the same run contract as an
// inline firing.
type JobPayload struct {
	ActionInstanceID string                 `json:"action_instance_id"`
	PubID            string                 `json:"pub_id"`
	Event            models.AutomationEvent `json:"event"`
	AutomationID     string                 `json:"automation_id,omitempty"`
	Config           map[string]any         `json:"config,omitempty"`
}

// JobScheduler defers work past the triggering transaction. Scheduling the
// same key again replaces the pending job; unscheduling an unknown key is a
// no-op.
type JobScheduler interface {
	ScheduleJob(ctx context.Context, key string, payload JobPayload, runAt time.Time) error
	UnscheduleJob(ctx context.Context, key string) error
}
