package models

import (
	"errors"
	"time"
)

// AutomationEvent identifies what kind of occurrence fires an automation.
type AutomationEvent string

const (
	// Stage lifecycle events ("regular" automations).
	EventPubEnteredStage       AutomationEvent = "pubEnteredStage"
	EventPubLeftStage          AutomationEvent = "pubLeftStage"
	EventPubInStageForDuration AutomationEvent = "pubInStageForDuration"

	// Action completion events ("sequential" automations).
	EventActionSucceeded AutomationEvent = "actionSucceeded"
	EventActionFailed    AutomationEvent = "actionFailed"
)

// KnownEvents lists every automation event the engine understands.
var KnownEvents = []AutomationEvent{
	EventPubEnteredStage,
	EventPubLeftStage,
	EventPubInStageForDuration,
	EventActionSucceeded,
	EventActionFailed,
}

// IsCompletionEvent reports whether the event is raised by another action
// instance finishing. Only these events may carry a source action instance.
func (e AutomationEvent) IsCompletionEvent() bool {
	return e == EventActionSucceeded || e == EventActionFailed
}

// IsKnown reports whether the event is one the engine understands.
func (e AutomationEvent) IsKnown() bool {
	for _, known := range KnownEvents {
		if e == known {
			return true
		}
	}

	return false
}

// DurationInterval is the time unit for duration automations.
type DurationInterval string

const (
	IntervalMinute DurationInterval = "minute"
	IntervalHour   DurationInterval = "hour"
	IntervalDay    DurationInterval = "day"
	IntervalWeek   DurationInterval = "week"
	IntervalMonth  DurationInterval = "month"
)

var ErrUnknownInterval = errors.New("unknown duration interval")

// DurationConfig is the event-specific configuration required by
// pubInStageForDuration automations and forbidden for every other event.
type DurationConfig struct {
	Duration int              `json:"duration" validate:"required,min=1"`
	Interval DurationInterval `json:"interval" validate:"required"`
}

// Wait returns the configured residency duration as a time.Duration.
// Months are approximated as 30 days; the job scheduler rounds the rest.
func (c DurationConfig) Wait() (time.Duration, error) {
	var unit time.Duration

	switch c.Interval {
	case IntervalMinute:
		unit = time.Minute
	case IntervalHour:
		unit = time.Hour
	case IntervalDay:
		unit = 24 * time.Hour
	case IntervalWeek:
		unit = 7 * 24 * time.Hour
	case IntervalMonth:
		unit = 30 * 24 * time.Hour
	default:
		return 0, ErrUnknownInterval
	}

	return time.Duration(c.Duration) * unit, nil
}

// Automation is a directed trigger rule: when Event occurs (optionally scoped
// to SourceActionInstanceID for completion events), run the target action
// instance, gated by Condition when present.
//
// A sequential automation (SourceActionInstanceID set) is an edge
// source -> target in the per-stage trigger graph; the validator keeps that
// graph acyclic and depth-bounded.
type Automation struct {
	ID                     string           `json:"id"`
	StageID                string           `json:"stage_id"           validate:"required"`
	ActionInstanceID       string           `json:"action_instance_id" validate:"required"`
	Event                  AutomationEvent  `json:"event"              validate:"required"`
	SourceActionInstanceID *string          `json:"source_action_instance_id,omitempty"`
	Config                 *DurationConfig  `json:"config,omitempty"`
	Condition              *ConditionNode   `json:"condition,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// IsSequential reports whether the automation is triggered by another action
// instance's completion rather than a stage lifecycle event.
func (a *Automation) IsSequential() bool {
	return a.SourceActionInstanceID != nil
}

// Source returns the source action instance ID, or "" for regular automations.
func (a *Automation) Source() string {
	if a.SourceActionInstanceID == nil {
		return ""
	}

	return *a.SourceActionInstanceID
}
