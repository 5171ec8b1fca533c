package models

import (
	"errors"
	"fmt"
	"time"
)

// ActionRunStatus is the terminal state of one action execution.
type ActionRunStatus string

const (
	RunStatusSuccess   ActionRunStatus = "success"
	RunStatusFailure   ActionRunStatus = "failure"
	RunStatusScheduled ActionRunStatus = "scheduled"
)

var ErrInvalidRunResult = errors.New("invalid action run result")

// ActionRunResult is the stable result contract shared by all action types.
// Status discriminates which payload fields are meaningful:
//
//	success:   Report + Data
//	failure:   Error (+ optional Report, Cause)
//	scheduled: JobKey referencing the deferred job
//
// Build values through Succeeded, Failed or Scheduled so the shape invariants
// hold by construction.
type ActionRunResult struct {
	Status ActionRunStatus `json:"status"`
	Report string          `json:"report,omitempty"`
	Data   map[string]any  `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
	Cause  any             `json:"cause,omitempty"`
	JobKey string          `json:"job_key,omitempty"`
}

// Succeeded builds a success result.
func Succeeded(report string, data map[string]any) ActionRunResult {
	if data == nil {
		data = map[string]any{}
	}

	return ActionRunResult{Status: RunStatusSuccess, Report: report, Data: data}
}

// Failed builds a failure result from an error.
func Failed(report string, err error) ActionRunResult {
	result := ActionRunResult{Status: RunStatusFailure, Report: report}
	if err != nil {
		result.Error = err.Error()
		if cause := errors.Unwrap(err); cause != nil {
			result.Cause = cause.Error()
		}
	}

	return result
}

// Scheduled builds a scheduled result referencing a deferred job key.
func Scheduled(jobKey string) ActionRunResult {
	return ActionRunResult{Status: RunStatusScheduled, JobKey: jobKey}
}

// Validate checks that the payload fields match the declared status.
func (r ActionRunResult) Validate() error {
	switch r.Status {
	case RunStatusSuccess:
		if r.Error != "" || r.JobKey != "" {
			return fmt.Errorf("%w: success result carries failure or scheduled fields", ErrInvalidRunResult)
		}
	case RunStatusFailure:
		if r.Error == "" {
			return fmt.Errorf("%w: failure result requires an error", ErrInvalidRunResult)
		}

		if r.JobKey != "" {
			return fmt.Errorf("%w: failure result carries a job key", ErrInvalidRunResult)
		}
	case RunStatusScheduled:
		if r.JobKey == "" {
			return fmt.Errorf("%w: scheduled result requires a job key", ErrInvalidRunResult)
		}

		if r.Error != "" || len(r.Data) != 0 {
			return fmt.Errorf("%w: scheduled result carries success or failure fields", ErrInvalidRunResult)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRunResult, r.Status)
	}

	return nil
}

// ActionRun is an immutable record of one action execution. Rows are only ever
// inserted; the engine never deduplicates repeated triggers, so re-firing the
// same (action instance, pub, event) produces a new row each time.
type ActionRun struct {
	ID               string          `json:"id"`
	ActionInstanceID string          `json:"action_instance_id"`
	PubID            string          `json:"pub_id"`
	Event            AutomationEvent `json:"event"`
	Status           ActionRunStatus `json:"status"`
	Result           ActionRunResult `json:"result"`
	Actor            Actor           `json:"actor"`
	CreatedAt        time.Time       `json:"created_at"`
}
