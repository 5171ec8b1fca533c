package web

import "github.com/pubflow/pubflow/pkg/models"

// CreatePubRequest is the payload for creating a pub.
type CreatePubRequest struct {
	Title   string           `json:"title"    validate:"required,min=1"`
	StageID string           `json:"stage_id" validate:"required"`
	Status  models.PubStatus `json:"status"`
	Values  map[string]any   `json:"values"`
}

// MovePubRequest moves a pub to another stage.
type MovePubRequest struct {
	StageID string        `json:"stage_id" validate:"required"`
	Actor   *models.Actor `json:"actor"`
}

// SetValueRequest records a direct edit of one pub field.
type SetValueRequest struct {
	FieldID string        `json:"field_id" validate:"required"`
	Value   any           `json:"value"`
	Actor   *models.Actor `json:"actor"`
}

// SaveActionInstanceRequest creates or updates an action instance.
type SaveActionInstanceRequest struct {
	StageID       string         `json:"stage_id" validate:"required"`
	Type          string         `json:"type"     validate:"required"`
	Name          string         `json:"name"     validate:"required,min=1"`
	Configuration map[string]any `json:"configuration"`
}

// SaveAutomationRequest creates or updates an automation.
type SaveAutomationRequest struct {
	StageID                string                 `json:"stage_id"           validate:"required"`
	ActionInstanceID       string                 `json:"action_instance_id" validate:"required"`
	Event                  models.AutomationEvent `json:"event"              validate:"required"`
	SourceActionInstanceID *string                `json:"source_action_instance_id,omitempty"`
	Config                 *models.DurationConfig `json:"config,omitempty"`
	Condition              *models.ConditionNode  `json:"condition,omitempty"`
}

// RunActionRequest triggers one action instance manually for a pub.
type RunActionRequest struct {
	PubID  string         `json:"pub_id" validate:"required"`
	Config map[string]any `json:"config,omitempty"`
	Actor  *models.Actor  `json:"actor"`
}

// actorOrSystem resolves the optional actor of a request, defaulting to the
// system actor.
func actorOrSystem(actor *models.Actor) models.Actor {
	if actor == nil {
		return models.SystemActor()
	}

	return *actor
}
