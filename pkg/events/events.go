// Package events defines the typed events the engine publishes and consumes.
package events

import (
	"time"

	"github.com/pubflow/pubflow/pkg/models"
)

type EventType string

// Topic carries stage lifecycle events into the worker and action run
// notifications out to listeners.
const Topic = "pubflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Stage lifecycle events.
	PubEnteredStageEvent EventType = "pub.entered_stage"
	PubLeftStageEvent    EventType = "pub.left_stage"

	// Change notification on ActionRun insert. Delivery is at-most-once and
	// best-effort; it is published after the triggering transaction commits
	// and is not part of its durability guarantee.
	ActionRunRecordedEvent EventType = "action_run.recorded"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// PubEnteredStage is raised when a pub moves into a stage.
type PubEnteredStage struct {
	BaseEvent

	PubID           string       `json:"pub_id"`
	StageID         string       `json:"stage_id"`
	PreviousStageID string       `json:"previous_stage_id,omitempty"`
	Actor           models.Actor `json:"actor"`
}

func (e PubEnteredStage) GetType() EventType {
	return PubEnteredStageEvent
}

// PubLeftStage is raised when a pub moves out of a stage.
type PubLeftStage struct {
	BaseEvent

	PubID       string       `json:"pub_id"`
	StageID     string       `json:"stage_id"`
	NextStageID string       `json:"next_stage_id,omitempty"`
	Actor       models.Actor `json:"actor"`
}

func (e PubLeftStage) GetType() EventType {
	return PubLeftStageEvent
}

// ActionRunRecorded notifies listeners that a run row was inserted.
type ActionRunRecorded struct {
	BaseEvent

	ActionRunID      string                 `json:"action_run_id"`
	ActionInstanceID string                 `json:"action_instance_id"`
	PubID            string                 `json:"pub_id"`
	Status           models.ActionRunStatus `json:"status"`
}

func (e ActionRunRecorded) GetType() EventType {
	return ActionRunRecordedEvent
}
