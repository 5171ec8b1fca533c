package automation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pubflow/pubflow/pkg/models"
	"github.com/pubflow/pubflow/pkg/persistence"
)

// DefaultMaxDepth bounds the longest sequential trigger chain, in edges.
// Execution walks the graph recursively at run time, so the bound is enforced
// here at authoring time.
const DefaultMaxDepth = 10

// Validator checks proposed automations against the existing set for a stage
// and persists them atomically with the checks. Validation and write run in
// one serializable transaction: two concurrent edits validating against stale
// snapshots must not be able to close a cycle together.
type Validator struct {
	persistence persistence.Persistence
	maxDepth    int
	logger      *slog.Logger
}

func NewValidator(p persistence.Persistence, maxDepth int, logger *slog.Logger) *Validator {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	return &Validator{
		persistence: p,
		maxDepth:    maxDepth,
		logger:      logger.With("module", "automation_validator"),
	}
}

// MaxDepth returns the configured chain depth bound.
func (v *Validator) MaxDepth() int {
	return v.maxDepth
}

// Upsert validates and persists a proposed automation, insert-or-replace by
// ID. Rejections leave the automation set unchanged. Editing an automation's
// source or target is treated as delete-old-edge-then-validate-new-edge, so
// moving an automation cannot collide with its own prior edge.
func (v *Validator) Upsert(ctx context.Context, proposed *models.Automation) (*models.Automation, error) {
	if err := v.validateShape(proposed); err != nil {
		return nil, v.reject(proposed, err)
	}

	err := v.persistence.WithinSerializableTx(ctx, func(tx persistence.Persistence) error {
		existing, err := tx.Automations().ListByStage(ctx, proposed.StageID)
		if err != nil {
			return fmt.Errorf("failed to load stage automations: %w", err)
		}

		if err := v.checkDuplicates(proposed, existing); err != nil {
			return err
		}

		if proposed.IsSequential() {
			if err := v.checkGraph(proposed, existing); err != nil {
				return err
			}
		}

		return tx.Automations().Save(ctx, proposed)
	})
	if err != nil {
		return nil, v.reject(proposed, err)
	}

	v.logger.InfoContext(ctx, "Automation saved",
		"automation_id", proposed.ID,
		"stage_id", proposed.StageID,
		"event", proposed.Event,
		"sequential", proposed.IsSequential(),
	)

	return proposed, nil
}

// Delete removes an automation.
func (v *Validator) Delete(ctx context.Context, id string) error {
	err := v.persistence.WithinTx(ctx, func(tx persistence.Persistence) error {
		return tx.Automations().Delete(ctx, id)
	})
	if err != nil {
		return &AutomationError{Op: "Delete", AutomationID: id, Err: err}
	}

	return nil
}

// validateShape checks the parts of the proposal that need no graph snapshot:
// the event, the source rules, the event config shape and the condition tree.
func (v *Validator) validateShape(proposed *models.Automation) error {
	if !proposed.Event.IsKnown() {
		return fmt.Errorf("%w: unknown event %q", ErrAutomationConfig, proposed.Event)
	}

	if proposed.ActionInstanceID == "" {
		return fmt.Errorf("%w: target action instance is required", ErrAutomationConfig)
	}

	if proposed.Event.IsCompletionEvent() {
		// An empty source would persist a graph edge no firing can ever reach.
		if !proposed.IsSequential() || proposed.Source() == "" {
			return fmt.Errorf("%w: event %s requires a source action instance", ErrAutomationConfig, proposed.Event)
		}
	} else if proposed.IsSequential() {
		return fmt.Errorf("%w: event %s must not carry a source action instance", ErrAutomationConfig, proposed.Event)
	}

	if err := validateEventConfig(proposed); err != nil {
		return err
	}

	if proposed.Condition != nil {
		if err := proposed.Condition.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrAutomationConfig, err)
		}
	}

	return nil
}

func (v *Validator) checkDuplicates(proposed *models.Automation, existing []*models.Automation) error {
	for _, other := range existing {
		if other.ID == proposed.ID {
			continue
		}

		if other.ActionInstanceID != proposed.ActionInstanceID || other.Event != proposed.Event {
			continue
		}

		if !proposed.IsSequential() && !other.IsSequential() {
			return ErrRegularAutomationExists
		}

		if proposed.IsSequential() && other.Source() == proposed.Source() {
			return ErrSequentialAutomationExists
		}
	}

	return nil
}

// checkGraph runs the cycle and depth checks for the proposed edge
// source -> target over the stage's sequential subgraph.
func (v *Validator) checkGraph(proposed *models.Automation, existing []*models.Automation) error {
	source := proposed.Source()
	target := proposed.ActionInstanceID

	// A self-loop is a degenerate cycle.
	if source == target {
		return fmt.Errorf("%w: action instance %s would trigger itself", ErrAutomationCycle, source)
	}

	g := buildGraph(existing, proposed.ID)

	// If source is already reachable from target, the new edge closes a cycle.
	if g.reachable(target, source) {
		return fmt.Errorf("%w: %s is already reachable from %s", ErrAutomationCycle, source, target)
	}

	g.addEdge(source, target)

	if depth := g.longestPath(); depth > v.maxDepth {
		return fmt.Errorf("%w: chain depth %d exceeds maximum %d", ErrAutomationMaxDepth, depth, v.maxDepth)
	}

	return nil
}

func (v *Validator) reject(proposed *models.Automation, err error) error {
	return &AutomationError{
		Op:           "Upsert",
		AutomationID: proposed.ID,
		StageID:      proposed.StageID,
		Err:          err,
	}
}
