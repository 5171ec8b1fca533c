// Package services exposes the authoring and pub lifecycle operations the API
// surface is built on.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pubflow/pubflow/pkg/automation"
	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/persistence"
)

// AutomationService authors trigger rules. Every write goes through the graph
// validator; a rejected proposal leaves the stored set untouched.
type AutomationService struct {
	persistence persistence.Persistence
	validator   *automation.Validator
	logger      *slog.Logger
}

func NewAutomationService(p persistence.Persistence, validator *automation.Validator, logger *slog.Logger) *AutomationService {
	return &AutomationService{
		persistence: p,
		validator:   validator,
		logger:      logger.With("module", "automation_service"),
	}
}

// Save validates and persists an automation, minting an ID for new rules.
func (s *AutomationService) Save(ctx context.Context, proposed *models.Automation) (*models.Automation, error) {
	if proposed.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate automation ID: %w", err)
		}

		proposed.ID = id.String()
		proposed.CreatedAt = time.Now().UTC()
	}

	proposed.UpdatedAt = time.Now().UTC()

	return s.validator.Upsert(ctx, proposed)
}

func (s *AutomationService) Get(ctx context.Context, id string) (*models.Automation, error) {
	return s.persistence.Automations().GetByID(ctx, id)
}

func (s *AutomationService) ListByStage(ctx context.Context, stageID string) ([]*models.Automation, error) {
	return s.persistence.Automations().ListByStage(ctx, stageID)
}

func (s *AutomationService) Delete(ctx context.Context, id string) error {
	return s.validator.Delete(ctx, id)
}
