package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/persistence"
)

// ActionRunRepository appends and reads immutable run rows. There is no
// update path: a run row is a historical fact.
type ActionRunRepository struct {
	q      querier
	logger *slog.Logger
}

func NewActionRunRepository(q querier, logger *slog.Logger) *ActionRunRepository {
	return &ActionRunRepository{q: q, logger: logger}
}

const actionRunColumns = `
	id
  , action_instance_id
  , pub_id
  , event
  , status
  , result
  , actor
  , created_at
`

func (r *ActionRunRepository) Create(ctx context.Context, run *models.ActionRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	resultJSON, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal run result: %w", err)
	}

	actorJSON, err := json.Marshal(run.Actor)
	if err != nil {
		return fmt.Errorf("failed to marshal run actor: %w", err)
	}

	query := `
		INSERT INTO action_runs (id, action_instance_id, pub_id, event, status, result, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.q.ExecContext(ctx, query,
		run.ID, run.ActionInstanceID, run.PubID, string(run.Event), string(run.Status),
		resultJSON, actorJSON, run.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("Create", "action_run", run.ID, err)
	}

	return nil
}

func (r *ActionRunRepository) GetByID(ctx context.Context, id string) (*models.ActionRun, error) {
	query := `SELECT ` + actionRunColumns + ` FROM action_runs WHERE id = $1`

	run, err := scanActionRun(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "action_run", id, persistence.ErrActionRunNotFound)
		}

		return nil, fmt.Errorf("failed to scan action run: %w", err)
	}

	return run, nil
}

func (r *ActionRunRepository) ListByPub(ctx context.Context, pubID string) ([]*models.ActionRun, error) {
	query := `SELECT ` + actionRunColumns + ` FROM action_runs WHERE pub_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, pubID)
	if err != nil {
		return nil, fmt.Errorf("failed to query action runs: %w", err)
	}
	defer closeRows(ctx, rows, r.logger)

	runs := make([]*models.ActionRun, 0)

	for rows.Next() {
		run, err := scanActionRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action runs: %w", err)
	}

	return runs, nil
}

func scanActionRun(row rowScanner) (*models.ActionRun, error) {
	var (
		run        models.ActionRun
		event      string
		status     string
		resultJSON []byte
		actorJSON  []byte
	)

	err := row.Scan(
		&run.ID,
		&run.ActionInstanceID,
		&run.PubID,
		&event,
		&status,
		&resultJSON,
		&actorJSON,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Event = models.AutomationEvent(event)
	run.Status = models.ActionRunStatus(status)

	if err := json.Unmarshal(resultJSON, &run.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run result: %w", err)
	}

	if err := json.Unmarshal(actorJSON, &run.Actor); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run actor: %w", err)
	}

	return &run, nil
}
