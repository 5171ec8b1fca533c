// Package automation validates and persists trigger rules, keeping the
// per-stage sequential-trigger graph free of duplicates, cycles and
// over-long chains.
package automation

import (
	"errors"
	"fmt"
)

// Validation error types. All of them surface as rejected writes; the
// validator never auto-corrects a proposed automation.
var (
	// ErrRegularAutomationExists indicates another automation already targets
	// the same action instance for the same stage lifecycle event.
	ErrRegularAutomationExists = errors.New("regular automation already exists for this action instance and event")

	// ErrSequentialAutomationExists indicates an edge with the same
	// (source, event, target) already exists.
	ErrSequentialAutomationExists = errors.New("sequential automation already exists for this source, event and target")

	// ErrAutomationCycle indicates the proposed edge would make an action
	// instance reachable from itself.
	ErrAutomationCycle = errors.New("automation would create a cycle")

	// ErrAutomationMaxDepth indicates the proposed edge would extend the
	// longest trigger chain beyond the configured maximum.
	ErrAutomationMaxDepth = errors.New("automation chain exceeds maximum depth")

	// ErrAutomationConfig indicates the event-specific configuration does not
	// match the shape the event requires.
	ErrAutomationConfig = errors.New("invalid automation configuration")
)

// AutomationError wraps validation errors with authoring context.
type AutomationError struct {
	Op           string // Operation being performed ("Upsert", "Delete")
	AutomationID string
	StageID      string
	Err          error
}

func (e *AutomationError) Error() string {
	target := e.AutomationID
	if target == "" {
		target = "(new)"
	}

	return fmt.Sprintf("%s failed for automation %s in stage %s: %v", e.Op, target, e.StageID, e.Err)
}

func (e *AutomationError) Unwrap() error {
	return e.Err
}

func (e *AutomationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsRejected checks whether an error is any of the validator's rejections, as
// opposed to a storage failure.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRegularAutomationExists) ||
		errors.Is(err, ErrSequentialAutomationExists) ||
		errors.Is(err, ErrAutomationCycle) ||
		errors.Is(err, ErrAutomationMaxDepth) ||
		errors.Is(err, ErrAutomationConfig)
}
