// Package blame records who changed which pub value, one append-only history
// row per changed field.
package blame

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/persistence"
)

// Recorder writes a pub value and its history row through the same
// transaction as the action run that caused the change. History rows are
// never mutated or deleted; they back blame views and rollback tooling.
type Recorder struct {
	logger *slog.Logger
}

func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger.With("module", "blame_recorder")}
}

// RecordValueChange persists one field mutation: the value write and the
// history row land in tx together. Attribution resolves to exactly one actor;
// an empty actionRunID attributes to the system (seeding and migration
// tooling).
func (r *Recorder) RecordValueChange(ctx context.Context, tx persistence.Persistence, pubID, fieldID string, oldValue, newValue any, actionRunID string) error {
	actor := models.SystemActor()
	if actionRunID != "" {
		actor = models.RunActor(actionRunID)
	}

	if err := actor.Validate(); err != nil {
		return err
	}

	if err := tx.Pubs().UpdateValue(ctx, pubID, fieldID, newValue); err != nil {
		return fmt.Errorf("failed to write pub value: %w", err)
	}

	change := &models.PubValueChange{
		PubID:       pubID,
		FieldID:     fieldID,
		OldValue:    oldValue,
		NewValue:    newValue,
		ActionRunID: actionRunID,
		Actor:       actor,
	}

	if err := tx.History().Append(ctx, change); err != nil {
		return fmt.Errorf("failed to append history row: %w", err)
	}

	r.logger.DebugContext(ctx, "Recorded value change",
		"pub_id", pubID,
		"field_id", fieldID,
		"action_run_id", actionRunID,
	)

	return nil
}
