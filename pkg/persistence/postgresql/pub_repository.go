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

// PubRepository handles pub-related database operations.
type PubRepository struct {
	q      querier
	logger *slog.Logger
}

func NewPubRepository(q querier, logger *slog.Logger) *PubRepository {
	return &PubRepository{q: q, logger: logger}
}

func (r *PubRepository) GetByID(ctx context.Context, id string) (*models.Pub, error) {
	query := `
		SELECT
			id
		  , title
		  , stage_id
		  , status
		  , field_values
		  , created_at
		  , updated_at
		FROM pubs
		WHERE id = $1
	`

	var (
		pub        models.Pub
		valuesJSON []byte
	)

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&pub.ID,
		&pub.Title,
		&pub.StageID,
		&pub.Status,
		&valuesJSON,
		&pub.CreatedAt,
		&pub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("GetByID", "pub", id, persistence.ErrPubNotFound)
		}

		return nil, fmt.Errorf("failed to scan pub: %w", err)
	}

	if err := json.Unmarshal(valuesJSON, &pub.Values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pub values: %w", err)
	}

	return &pub, nil
}

func (r *PubRepository) Save(ctx context.Context, pub *models.Pub) error {
	valuesJSON, err := json.Marshal(pub.Values)
	if err != nil {
		return fmt.Errorf("failed to marshal pub values: %w", err)
	}

	query := `
		INSERT INTO pubs (id, title, stage_id, status, field_values, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			stage_id = EXCLUDED.stage_id,
			status = EXCLUDED.status,
			field_values = EXCLUDED.field_values,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.q.ExecContext(ctx, query,
		pub.ID, pub.Title, pub.StageID, pub.Status, valuesJSON, pub.CreatedAt, pub.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Save", "pub", pub.ID, err)
	}

	return nil
}

// UpdateValue writes one field into the pub's value document.
func (r *PubRepository) UpdateValue(ctx context.Context, pubID, fieldID string, value any) error {
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal pub value: %w", err)
	}

	query := `
		UPDATE pubs
		SET field_values = jsonb_set(field_values, ARRAY[$2], $3::jsonb, true),
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, pubID, fieldID, valueJSON)
	if err != nil {
		return persistence.NewStoreError("UpdateValue", "pub", pubID, err)
	}

	return requireRow(result, persistence.NewStoreError("UpdateValue", "pub", pubID, persistence.ErrPubNotFound))
}

func (r *PubRepository) UpdateStage(ctx context.Context, pubID, stageID string) error {
	query := `
		UPDATE pubs
		SET stage_id = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q.ExecContext(ctx, query, pubID, stageID)
	if err != nil {
		return persistence.NewStoreError("UpdateStage", "pub", pubID, err)
	}

	return requireRow(result, persistence.NewStoreError("UpdateStage", "pub", pubID, persistence.ErrPubNotFound))
}

// requireRow maps a zero-row update to notFound.
func requireRow(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return notFound
	}

	return nil
}
