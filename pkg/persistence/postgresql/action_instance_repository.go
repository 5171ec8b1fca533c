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

// ActionInstanceRepository handles action instance database operations.
// Automations reference instances with ON DELETE CASCADE, so deleting an
// instance drops its automations in the same statement.
type ActionInstanceRepository struct {
	q      querier
	logger *slog.Logger
}

func NewActionInstanceRepository(q querier, logger *slog.Logger) *ActionInstanceRepository {
	return &ActionInstanceRepository{q: q, logger: logger}
}

const actionInstanceColumns = `
	id
  , stage_id
  , type
  , name
  , configuration
  , created_at
  , updated_at
`

func (r *ActionInstanceRepository) GetByID(ctx context.Context, id string) (*models.ActionInstance, error) {
	query := `SELECT ` + actionInstanceColumns + ` FROM action_instances WHERE id = $1`

	instance, err := scanActionInstance(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "action_instance", id, persistence.ErrActionInstanceNotFound)
		}

		return nil, fmt.Errorf("failed to scan action instance: %w", err)
	}

	return instance, nil
}

func (r *ActionInstanceRepository) ListByStage(ctx context.Context, stageID string) ([]*models.ActionInstance, error) {
	query := `SELECT ` + actionInstanceColumns + ` FROM action_instances WHERE stage_id = $1 ORDER BY created_at`

	rows, err := r.q.QueryContext(ctx, query, stageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query action instances: %w", err)
	}
	defer closeRows(ctx, rows, r.logger)

	instances := make([]*models.ActionInstance, 0)

	for rows.Next() {
		instance, err := scanActionInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action instance: %w", err)
		}

		instances = append(instances, instance)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action instances: %w", err)
	}

	return instances, nil
}

func (r *ActionInstanceRepository) Save(ctx context.Context, instance *models.ActionInstance) error {
	configJSON, err := json.Marshal(instance.Configuration)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	query := `
		INSERT INTO action_instances (id, stage_id, type, name, configuration, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			stage_id = EXCLUDED.stage_id,
			type = EXCLUDED.type,
			name = EXCLUDED.name,
			configuration = EXCLUDED.configuration,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.q.ExecContext(ctx, query,
		instance.ID, instance.StageID, instance.Type, instance.Name, configJSON,
		instance.CreatedAt, instance.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Save", "action_instance", instance.ID, err)
	}

	return nil
}

func (r *ActionInstanceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM action_instances WHERE id = $1`, id)
	if err != nil {
		return persistence.NewStoreError("Delete", "action_instance", id, err)
	}

	return requireRow(result, persistence.NewStoreError("Delete", "action_instance", id, persistence.ErrActionInstanceNotFound))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActionInstance(row rowScanner) (*models.ActionInstance, error) {
	var (
		instance   models.ActionInstance
		configJSON []byte
	)

	err := row.Scan(
		&instance.ID,
		&instance.StageID,
		&instance.Type,
		&instance.Name,
		&configJSON,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(configJSON, &instance.Configuration); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return &instance, nil
}

func closeRows(ctx context.Context, rows *sql.Rows, logger *slog.Logger) {
	if err := rows.Close(); err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
