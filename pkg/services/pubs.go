package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pubflow/pubflow/pkg/eventbus"
	"github.com/pubflow/pubflow/pkg/events"
	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/persistence"
)

// PubService owns the pub lifecycle. Moving a pub between stages commits the
// move first, then publishes the stage lifecycle events the worker turns into
// trigger firings. Publishing is not part of the move's durability guarantee.
type PubService struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewPubService(p persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *PubService {
	return &PubService{
		persistence: p,
		publisher:   publisher,
		validate:    validator.New(),
		logger:      logger.With("module", "pub_service"),
	}
}

// Create persists a new pub in its initial stage.
func (s *PubService) Create(ctx context.Context, pub *models.Pub) (*models.Pub, error) {
	if pub.Status == "" {
		pub.Status = models.PubStatusDraft
	}

	if err := s.validate.Struct(pub); err != nil {
		return nil, err
	}

	if pub.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate pub ID: %w", err)
		}

		pub.ID = id.String()
		pub.CreatedAt = time.Now().UTC()
	}

	pub.UpdatedAt = time.Now().UTC()

	err := s.persistence.WithinTx(ctx, func(tx persistence.Persistence) error {
		return tx.Pubs().Save(ctx, pub)
	})
	if err != nil {
		return nil, err
	}

	return pub, nil
}

func (s *PubService) Get(ctx context.Context, id string) (*models.Pub, error) {
	return s.persistence.Pubs().GetByID(ctx, id)
}

// MoveStage moves a pub into another stage and publishes pubLeftStage for the
// old stage followed by pubEnteredStage for the new one.
func (s *PubService) MoveStage(ctx context.Context, pubID, toStageID string, actor models.Actor) (*models.Pub, error) {
	if toStageID == "" {
		return nil, ErrStageRequired
	}

	if err := actor.Validate(); err != nil {
		return nil, err
	}

	var pub *models.Pub
	var fromStageID string

	err := s.persistence.WithinTx(ctx, func(tx persistence.Persistence) error {
		var err error

		pub, err = tx.Pubs().GetByID(ctx, pubID)
		if err != nil {
			return err
		}

		fromStageID = pub.StageID
		if fromStageID == toStageID {
			return ErrSameStage
		}

		return tx.Pubs().UpdateStage(ctx, pubID, toStageID)
	})
	if err != nil {
		return nil, err
	}

	pub.StageID = toStageID
	s.logger.InfoContext(ctx, "Pub moved",
		"pub_id", pubID,
		"from_stage_id", fromStageID,
		"to_stage_id", toStageID,
	)

	s.publishStageEvents(ctx, pubID, fromStageID, toStageID, actor)

	return pub, nil
}

func (s *PubService) publishStageEvents(ctx context.Context, pubID, fromStageID, toStageID string, actor models.Actor) {
	if s.publisher == nil {
		return
	}

	left := events.PubLeftStage{
		BaseEvent:   s.baseEvent(events.PubLeftStageEvent),
		PubID:       pubID,
		StageID:     fromStageID,
		NextStageID: toStageID,
		Actor:       actor,
	}
	if err := s.publisher.Publish(ctx, pubID, left); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish stage event", "event", left.GetType(), "error", err)
	}

	entered := events.PubEnteredStage{
		BaseEvent:       s.baseEvent(events.PubEnteredStageEvent),
		PubID:           pubID,
		StageID:         toStageID,
		PreviousStageID: fromStageID,
		Actor:           actor,
	}
	if err := s.publisher.Publish(ctx, pubID, entered); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish stage event", "event", entered.GetType(), "error", err)
	}
}

func (s *PubService) baseEvent(eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// SetValue records a direct edit of one pub field: the value write and its
// history row commit together, attributed to the editing actor.
func (s *PubService) SetValue(ctx context.Context, pubID, fieldID string, value any, actor models.Actor) error {
	if fieldID == "" {
		return ErrFieldRequired
	}

	if err := actor.Validate(); err != nil {
		return err
	}

	return s.persistence.WithinTx(ctx, func(tx persistence.Persistence) error {
		pub, err := tx.Pubs().GetByID(ctx, pubID)
		if err != nil {
			return err
		}

		oldValue := pub.Values[fieldID]

		if err := tx.Pubs().UpdateValue(ctx, pubID, fieldID, value); err != nil {
			return err
		}

		return tx.History().Append(ctx, &models.PubValueChange{
			PubID:    pubID,
			FieldID:  fieldID,
			OldValue: oldValue,
			NewValue: value,
			Actor:    actor,
		})
	})
}

// HealthCheck reports storage health.
func (s *PubService) HealthCheck(ctx context.Context) error {
	return s.persistence.HealthCheck(ctx)
}

// History lists a pub's value changes, newest first.
func (s *PubService) History(ctx context.Context, pubID string) ([]*models.PubValueChange, error) {
	return s.persistence.History().ListByPub(ctx, pubID)
}

// Runs lists a pub's action runs, newest first.
func (s *PubService) Runs(ctx context.Context, pubID string) ([]*models.ActionRun, error) {
	return s.persistence.ActionRuns().ListByPub(ctx, pubID)
}
