package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/persistence"
)

// HistoryRepository appends and reads pub value change rows. Append-only by
// contract: no update or delete statement exists here.
type HistoryRepository struct {
	q      querier
	logger *slog.Logger
}

func NewHistoryRepository(q querier, logger *slog.Logger) *HistoryRepository {
	return &HistoryRepository{q: q, logger: logger}
}

const historyColumns = `
	id
  , pub_id
  , field_id
  , old_value
  , new_value
  , action_run_id
  , actor
  , created_at
`

func (r *HistoryRepository) Append(ctx context.Context, change *models.PubValueChange) error {
	if change.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate history ID: %w", err)
		}

		change.ID = id.String()
	}

	if change.CreatedAt.IsZero() {
		change.CreatedAt = time.Now().UTC()
	}

	oldJSON, err := json.Marshal(change.OldValue)
	if err != nil {
		return fmt.Errorf("failed to marshal old value: %w", err)
	}

	newJSON, err := json.Marshal(change.NewValue)
	if err != nil {
		return fmt.Errorf("failed to marshal new value: %w", err)
	}

	actorJSON, err := json.Marshal(change.Actor)
	if err != nil {
		return fmt.Errorf("failed to marshal actor: %w", err)
	}

	var actionRunID any
	if change.ActionRunID != "" {
		actionRunID = change.ActionRunID
	}

	query := `
		INSERT INTO pub_value_changes (id, pub_id, field_id, old_value, new_value, action_run_id, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.q.ExecContext(ctx, query,
		change.ID, change.PubID, change.FieldID, oldJSON, newJSON, actionRunID, actorJSON, change.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("Append", "pub_value_change", change.ID, err)
	}

	return nil
}

func (r *HistoryRepository) ListByPub(ctx context.Context, pubID string) ([]*models.PubValueChange, error) {
	query := `SELECT ` + historyColumns + ` FROM pub_value_changes WHERE pub_id = $1 ORDER BY created_at DESC`

	return r.list(ctx, query, pubID)
}

func (r *HistoryRepository) ListByActionRun(ctx context.Context, actionRunID string) ([]*models.PubValueChange, error) {
	query := `SELECT ` + historyColumns + ` FROM pub_value_changes WHERE action_run_id = $1 ORDER BY created_at`

	return r.list(ctx, query, actionRunID)
}

func (r *HistoryRepository) list(ctx context.Context, query string, args ...any) ([]*models.PubValueChange, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer closeRows(ctx, rows, r.logger)

	changes := make([]*models.PubValueChange, 0)

	for rows.Next() {
		change, err := scanChange(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		changes = append(changes, change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return changes, nil
}

func scanChange(row rowScanner) (*models.PubValueChange, error) {
	var (
		change      models.PubValueChange
		oldJSON     []byte
		newJSON     []byte
		actionRunID sql.NullString
		actorJSON   []byte
	)

	err := row.Scan(
		&change.ID,
		&change.PubID,
		&change.FieldID,
		&oldJSON,
		&newJSON,
		&actionRunID,
		&actorJSON,
		&change.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if actionRunID.Valid {
		change.ActionRunID = actionRunID.String
	}

	if err := json.Unmarshal(oldJSON, &change.OldValue); err != nil {
		return nil, fmt.Errorf("failed to unmarshal old value: %w", err)
	}

	if err := json.Unmarshal(newJSON, &change.NewValue); err != nil {
		return nil, fmt.Errorf("failed to unmarshal new value: %w", err)
	}

	if err := json.Unmarshal(actorJSON, &change.Actor); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actor: %w", err)
	}

	return &change, nil
}
