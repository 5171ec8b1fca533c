package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/persistence"
)

// AutomationRepository handles automation database operations. Admissibility
// of a save is the graph validator's concern; this layer only stores rows.
type AutomationRepository struct {
	q      querier
	logger *slog.Logger
}

func NewAutomationRepository(q querier, logger *slog.Logger) *AutomationRepository {
	return &AutomationRepository{q: q, logger: logger}
}

const automationColumns = `
	id
  , stage_id
  , action_instance_id
  , event
  , source_action_instance_id
  , config
  , condition
  , created_at
  , updated_at
`

func (r *AutomationRepository) GetByID(ctx context.Context, id string) (*models.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE id = $1`

	automation, err := scanAutomation(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "automation", id, persistence.ErrAutomationNotFound)
		}

		return nil, fmt.Errorf("failed to scan automation: %w", err)
	}

	return automation, nil
}

func (r *AutomationRepository) ListByStage(ctx context.Context, stageID string) ([]*models.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE stage_id = $1 ORDER BY created_at`

	return r.list(ctx, query, stageID)
}

func (r *AutomationRepository) ListForEvent(ctx context.Context, stageID string, event models.AutomationEvent) ([]*models.Automation, error) {
	query := `
		SELECT ` + automationColumns + `
		FROM automations
		WHERE stage_id = $1 AND event = $2 AND source_action_instance_id IS NULL
		ORDER BY created_at
	`

	return r.list(ctx, query, stageID, string(event))
}

func (r *AutomationRepository) ListBySource(ctx context.Context, sourceActionInstanceID string, event models.AutomationEvent) ([]*models.Automation, error) {
	query := `
		SELECT ` + automationColumns + `
		FROM automations
		WHERE source_action_instance_id = $1 AND event = $2
		ORDER BY created_at
	`

	return r.list(ctx, query, sourceActionInstanceID, string(event))
}

func (r *AutomationRepository) Save(ctx context.Context, automation *models.Automation) error {
	configJSON, err := marshalNullable(automation.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal automation config: %w", err)
	}

	conditionJSON, err := marshalNullable(automation.Condition)
	if err != nil {
		return fmt.Errorf("failed to marshal automation condition: %w", err)
	}

	query := `
		INSERT INTO automations
			(id, stage_id, action_instance_id, event, source_action_instance_id, config, condition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			stage_id = EXCLUDED.stage_id,
			action_instance_id = EXCLUDED.action_instance_id,
			event = EXCLUDED.event,
			source_action_instance_id = EXCLUDED.source_action_instance_id,
			config = EXCLUDED.config,
			condition = EXCLUDED.condition,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.q.ExecContext(ctx, query,
		automation.ID,
		automation.StageID,
		automation.ActionInstanceID,
		string(automation.Event),
		automation.SourceActionInstanceID,
		configJSON,
		conditionJSON,
		automation.CreatedAt,
		automation.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStoreError("Save", "automation", automation.ID, err)
	}

	return nil
}

func (r *AutomationRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM automations WHERE id = $1`, id)
	if err != nil {
		return persistence.NewStoreError("Delete", "automation", id, err)
	}

	return requireRow(result, persistence.NewStoreError("Delete", "automation", id, persistence.ErrAutomationNotFound))
}

func (r *AutomationRepository) list(ctx context.Context, query string, args ...any) ([]*models.Automation, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query automations: %w", err)
	}
	defer closeRows(ctx, rows, r.logger)

	automations := make([]*models.Automation, 0)

	for rows.Next() {
		automation, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation: %w", err)
		}

		automations = append(automations, automation)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating automations: %w", err)
	}

	return automations, nil
}

func scanAutomation(row rowScanner) (*models.Automation, error) {
	var (
		automation    models.Automation
		event         string
		source        sql.NullString
		configJSON    []byte
		conditionJSON []byte
	)

	err := row.Scan(
		&automation.ID,
		&automation.StageID,
		&automation.ActionInstanceID,
		&event,
		&source,
		&configJSON,
		&conditionJSON,
		&automation.CreatedAt,
		&automation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	automation.Event = models.AutomationEvent(event)

	if source.Valid {
		automation.SourceActionInstanceID = &source.String
	}

	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &automation.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal automation config: %w", err)
		}
	}

	if len(conditionJSON) > 0 {
		if err := json.Unmarshal(conditionJSON, &automation.Condition); err != nil {
			return nil, fmt.Errorf("failed to unmarshal automation condition: %w", err)
		}
	}

	return &automation, nil
}

// marshalNullable maps a nil pointer to SQL NULL instead of the JSON "null"
// literal.
func marshalNullable(v any) (any, error) {
	switch value := v.(type) {
	case *models.DurationConfig:
		if value == nil {
			return nil, nil
		}
	case *models.ConditionNode:
		if value == nil {
			return nil, nil
		}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return raw, nil
}
