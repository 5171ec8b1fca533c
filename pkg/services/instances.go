package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/persistence"
	"github.com/pubflow/pubflow/pkg/registry"
)

// ActionInstanceService authors configured action instances. Deleting an
// instance cascades to the automations targeting or sourced from it.
type ActionInstanceService struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewActionInstanceService(p persistence.Persistence, reg *registry.Registry, logger *slog.Logger) *ActionInstanceService {
	return &ActionInstanceService{
		persistence: p,
		registry:    reg,
		validate:    validator.New(),
		logger:      logger.With("module", "action_instance_service"),
	}
}

// Save persists an instance after checking the action type is registered and
// the model fields hold. Configuration contents are validated by the action
// factory at execution time against its own schema.
func (s *ActionInstanceService) Save(ctx context.Context, instance *models.ActionInstance) (*models.ActionInstance, error) {
	if err := s.validate.Struct(instance); err != nil {
		return nil, err
	}

	if _, ok := s.registry.ActionFactory(instance.Type); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownActionType, instance.Type)
	}

	if instance.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate action instance ID: %w", err)
		}

		instance.ID = id.String()
		instance.CreatedAt = time.Now().UTC()
	}

	instance.UpdatedAt = time.Now().UTC()

	err := s.persistence.WithinTx(ctx, func(tx persistence.Persistence) error {
		return tx.ActionInstances().Save(ctx, instance)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Action instance saved",
		"action_instance_id", instance.ID,
		"action_type", instance.Type,
		"stage_id", instance.StageID,
	)

	return instance, nil
}

func (s *ActionInstanceService) Get(ctx context.Context, id string) (*models.ActionInstance, error) {
	return s.persistence.ActionInstances().GetByID(ctx, id)
}

func (s *ActionInstanceService) ListByStage(ctx context.Context, stageID string) ([]*models.ActionInstance, error) {
	return s.persistence.ActionInstances().ListByStage(ctx, stageID)
}

// Delete removes an instance and, through the repository cascade, every
// automation that targets it or fires from its completion.
func (s *ActionInstanceService) Delete(ctx context.Context, id string) error {
	return s.persistence.WithinTx(ctx, func(tx persistence.Persistence) error {
		return tx.ActionInstances().Delete(ctx, id)
	})
}
