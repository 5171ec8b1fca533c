package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/protocol"
)

// DurationJobKey identifies the deferred job for one (automation, pub) pair.
// Scheduling the same key replaces the pending job, so a pub re-entering a
// stage resets its residency clock.
func DurationJobKey(automationID, pubID string) string {
	return fmt.Sprintf("duration:%s:%s", automationID, pubID)
}

// manageDurationJobs schedules residency jobs when a pub enters a stage and
// cancels them when it leaves. It runs after the triggering transaction
// commits: scheduler I/O must not hold the transaction open, and a stale job
// that survives a crash is caught by the stage check on re-entry.
func (e *Executor) manageDurationJobs(ctx context.Context, stageID, pubID string, event models.AutomationEvent) {
	if e.scheduler == nil {
		return
	}

	switch event {
	case models.EventPubEnteredStage, models.EventPubLeftStage:
	default:
		return
	}

	automations, err := e.persistence.Automations().ListForEvent(ctx, stageID, models.EventPubInStageForDuration)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to list duration automations", "stage_id", stageID, "error", err)

		return
	}

	for _, automation := range automations {
		key := DurationJobKey(automation.ID, pubID)

		if event == models.EventPubLeftStage {
			if err := e.scheduler.UnscheduleJob(ctx, key); err != nil {
				e.logger.ErrorContext(ctx, "Failed to unschedule duration job", "key", key, "error", err)
			}

			continue
		}

		if automation.Config == nil {
			// The validator rejects this shape; rows written by another path
			// are skipped rather than fired immediately.
			e.logger.WarnContext(ctx, "Duration automation without config, skipping", "automation_id", automation.ID)

			continue
		}

		wait, err := automation.Config.Wait()
		if err != nil {
			e.logger.ErrorContext(ctx, "Invalid duration config", "automation_id", automation.ID, "error", err)

			continue
		}

		payload := protocol.JobPayload{
			ActionInstanceID: automation.ActionInstanceID,
			PubID:            pubID,
			Event:            models.EventPubInStageForDuration,
			AutomationID:     automation.ID,
		}

		err = e.scheduler.ScheduleJob(ctx, key, payload, time.Now().UTC().Add(wait))
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to schedule duration job", "key", key, "error", err)
		}
	}
}
